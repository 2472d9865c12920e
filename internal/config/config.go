package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "listingdl"

	// DefaultBaseDir is the output directory used when neither the flag,
	// the environment nor config.json names one.
	DefaultBaseDir = "listings"

	// DefaultDelay is the pause between consecutive HTTP requests.
	// Listing portals rate-limit aggressively; one second keeps a run polite.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout bounds every single HTTP request.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent identifies the tool in HTTP requests.
	DefaultUserAgent = "Mozilla/5.0 (compatible; ListingBot/1.0)"

	// DefaultMaxBodySize limits how much of a listing page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxImageSize limits how much of a single image is read.
	DefaultMaxImageSize = 25 * 1024 * 1024 // 25MB

	// DefaultTagsFile is the tag rule file looked up in the working directory.
	DefaultTagsFile = "tags.json"

	// SettingsFileName holds the persisted base directory.
	SettingsFileName = "config.json"

	// ProcessedFileName holds the processed-URL ledger.
	ProcessedFileName = "processed_urls.json"

	// LogFileName is the run log written into the state directory.
	LogFileName = "scrape.log"

	// DisabledLogFile turns the log file off when passed as --log-file.
	DisabledLogFile = "-"
)

// Config holds all runtime options for a download run.
// It is populated from CLI flags, environment overrides and config files,
// and passed through the application explicitly.
type Config struct {
	// Targets is the list of listing URLs given on the command line.
	Targets []string

	// BaseDir is the output directory supplied by the user for this run.
	// Empty means "use the directory stored in config.json".
	BaseDir string

	// Delay is the pause between HTTP requests.
	Delay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent is sent with every request unless a site config overrides it.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// TagsFile is the path to the tag rules. Empty means search the
	// working directory and then the XDG config directory.
	TagsFile string

	// StateDir is where config.json, processed_urls.json and scrape.log live.
	StateDir string

	// LogFile is the log file path. Empty means StateDir/scrape.log,
	// DisabledLogFile turns file logging off.
	LogFile string

	// SiteConfigPath is the path to the .listingdl site settings file.
	SiteConfigPath string

	// SiteConfigs holds per-site request settings loaded from SiteConfigPath.
	SiteConfigs *File

	// DBDir is the directory of the SQLite download catalog.
	DBDir string

	// SaveToDB records every saved image in the catalog.
	SaveToDB bool

	// WriteSummary writes a LISTING_<key>.md summary into each address folder.
	WriteSummary bool

	// JSONOutput prints the run summary as JSON.
	JSONOutput bool

	// Verbose enables debug output on the console.
	Verbose bool

	// MaxBodySize limits listing page bodies.
	MaxBodySize int64

	// MaxImageSize limits image bodies.
	MaxImageSize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Delay:        DefaultDelay,
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		StateDir:     ".",
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
		WriteSummary: true,
		MaxBodySize:  DefaultMaxBodySize,
		MaxImageSize: DefaultMaxImageSize,
	}
}

// SettingsPath returns the path of config.json inside the state directory.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.StateDir, SettingsFileName)
}

// LedgerPath returns the path of processed_urls.json inside the state directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.StateDir, ProcessedFileName)
}

// LogPath returns the log file path, or "" when file logging is disabled.
func (c *Config) LogPath() string {
	switch c.LogFile {
	case DisabledLogFile:
		return ""
	case "":
		return filepath.Join(c.StateDir, LogFileName)
	default:
		return c.LogFile
	}
}

// XDGDataDir returns the XDG data directory for listingdl.
// On Linux: ~/.local/share/listingdl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for listingdl.
// On Linux: ~/.config/listingdl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SecondsToDuration converts a fractional number of seconds, as accepted
// by --delay, into a time.Duration.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Validate checks if the configuration is valid.
// It returns the first sentinel error that applies.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 || c.MaxImageSize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyAddress != "" {
		host, port, err := net.SplitHostPort(c.ProxyAddress)
		if err != nil || host == "" || port == "" {
			return ErrInvalidProxyAddress
		}
	}

	return nil
}
