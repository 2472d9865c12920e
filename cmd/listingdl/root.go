package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/listingdl/internal/catalog"
	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/fetcher"
	"github.com/nao1215/listingdl/internal/ledger"
	applog "github.com/nao1215/listingdl/internal/log"
	"github.com/nao1215/listingdl/internal/pipeline"
	"github.com/nao1215/listingdl/internal/report"
	"github.com/nao1215/listingdl/internal/tags"
)

// NewRootCmd creates the root command for listingdl.
// Listing URLs given as arguments are downloaded by the root command itself.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listingdl <listing-url>...",
		Short: "Download and sort the photos of real-estate listings",
		Long: `listingdl downloads every photo of one or more real-estate listing pages.

Photos are tagged by matching the keywords in tags.json against the
listing description and the image's own name, alt text and title. Each
photo is saved as JPEG (WebP is converted) under

  <base-dir>/<address>/<tag>/NNN_<name>_<key>.jpg

URLs that were fully processed are remembered in processed_urls.json and
skipped on the next run.

Examples:
  # Download two listings with a two second pause between requests
  listingdl https://example.com/listing/1 https://example.com/listing/2 -d 2

  # Save into a different base directory (remembered for later runs)
  listingdl -b ~/Pictures/houses https://example.com/listing/1

  # Create tags.json and .listingdl templates
  listingdl init

  # Show what has been downloaded so far
  listingdl history`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runRootCmd,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Request flags
	cmd.Flags().Float64P("delay", "d", config.DefaultDelay.Seconds(),
		"Seconds to wait between HTTP requests")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")

	// Input and output locations
	cmd.Flags().StringP("base-dir", "b", "",
		"Base directory for downloaded photos (saved to config.json)")
	cmd.Flags().StringP("tags", "t", "",
		"Tag rules file (default: tags.json, then the XDG config directory)")
	cmd.Flags().StringP("state-dir", "s", ".",
		"Directory holding config.json, processed_urls.json and scrape.log")
	cmd.Flags().StringP("config", "c", "",
		"Site configuration file (default: .listingdl in current or home directory)")
	cmd.Flags().String("log-file", "",
		"Log file path (default: scrape.log in the state directory, '-' disables)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the download catalog")

	// Output toggles
	cmd.Flags().Bool("no-catalog", false,
		"Do not record downloads in the catalog")
	cmd.Flags().Bool("no-summary", false,
		"Do not write LISTING_<key>.md summaries into address folders")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON")

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runRootCmd executes a download run.
func runRootCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv, cmd.Flags().Changed); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoTarget) {
			_ = cmd.Usage()
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cmd.ErrOrStderr(), cfg)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runDownload(ctx, cmd.OutOrStdout(), cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	delay, err := flags.GetFloat64("delay")
	if err != nil {
		return nil, err
	}
	cfg.Delay = config.SecondsToDuration(delay)

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.BaseDir, err = flags.GetString("base-dir"); err != nil {
		return nil, err
	}
	if cfg.TagsFile, err = flags.GetString("tags"); err != nil {
		return nil, err
	}
	if cfg.StateDir, err = flags.GetString("state-dir"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.SiteConfigPath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	noCatalog, err := flags.GetBool("no-catalog")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noCatalog

	noSummary, err := flags.GetBool("no-summary")
	if err != nil {
		return nil, err
	}
	cfg.WriteSummary = !noSummary

	if cfg.JSONOutput, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicitly named site config must exist. Without one, a missing
	// .listingdl just means no per-site settings.
	configPath := config.FindConfigFile(cfg.SiteConfigPath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.SiteConfigPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.SiteConfigPath)
	default:
		cfg.SiteConfigs = config.EmptyFile()
	}

	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates the run logger. The returned func closes the log file.
// A log file that cannot be opened only disables file logging.
func setupLogger(console io.Writer, cfg *config.Config) (*slog.Logger, func()) {
	path := cfg.LogPath()
	if path == "" {
		return applog.NewLogger(console, nil, cfg.Verbose), func() {}
	}

	file, err := openLogFile(path)
	if err != nil {
		logger := applog.NewLogger(console, nil, cfg.Verbose)
		logger.Warn("file logging disabled", "path", path, "error", err)
		return logger, func() {}
	}

	return applog.NewLogger(console, file, cfg.Verbose), func() { _ = file.Close() }
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // user-provided log path
}

// runDownload processes cfg.Targets and writes the run report to out.
func runDownload(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	store := config.NewStore(cfg.SettingsPath(), config.WithStoreLogger(logger))
	baseDir, err := store.ResolveBaseDir(cfg.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	tagsPath := config.FindTagsFile(cfg.TagsFile)
	if tagsPath == "" {
		return fmt.Errorf("%w: %s (run 'listingdl init' to create one)", tags.ErrTagsNotFound, config.DefaultTagsFile)
	}
	rules, err := tags.Load(tagsPath)
	if err != nil {
		return err
	}
	if rules.Len() == 0 {
		logger.Warn("tag rules are empty, every image will be untagged", "path", tagsPath)
	}

	clientOpts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithDelay(cfg.Delay),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithMaxImageSize(cfg.MaxImageSize),
		fetcher.WithSiteConfigs(cfg.SiteConfigs),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, fetcher.WithProxy(cfg.ProxyAddress))
	}
	client, err := fetcher.NewClient(clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	processed := ledger.Open(cfg.LedgerPath(), logger)

	procOpts := []pipeline.ProcessorOption{
		pipeline.WithProcessorLogger(logger),
		pipeline.WithSiteSettings(cfg.SiteConfigs),
		pipeline.WithListingSummary(cfg.WriteSummary),
	}
	if cfg.SaveToDB {
		db, dbErr := catalog.Open(cfg.DBDir, catalog.DefaultOptions())
		if dbErr != nil {
			logger.Warn("download catalog unavailable", "dir", cfg.DBDir, "error", dbErr)
		} else {
			defer db.Close()
			procOpts = append(procOpts, pipeline.WithRecorder(db))
		}
	}

	logger.Info("starting run",
		"targets", len(cfg.Targets),
		"baseDir", baseDir,
		"tags", tagsPath,
		"delay", cfg.Delay,
	)

	summary := pipeline.NewProcessor(client, processed, rules, baseDir, procOpts...).Run(ctx, cfg.Targets)

	var w report.RunWriter
	if cfg.JSONOutput {
		w = report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	} else {
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	if _, err := w.WriteRun(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}
