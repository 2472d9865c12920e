package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/tags"
)

//go:embed templates/tags.json templates/listingdl.yaml
var templates embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create tags.json and .listingdl templates",
		Long: `Init writes a starter tags.json and a .listingdl site configuration
into the current directory.

tags.json maps each tag folder to the keywords that select it:
  {"kitchen": ["kitchen", "#pantry"], "pool": ["pool", "spa"]}

.listingdl holds per-site cookies, headers, User-Agent overrides and
image URL patterns to ignore.

Examples:
  # Create both files in the current directory
  listingdl init

  # Write them somewhere else
  listingdl init --tags-output ~/.config/listingdl/tags.json -o ~/.listingdl

  # Overwrite existing files
  listingdl init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().String("tags-output", config.DefaultTagsFile,
		"Output path for the tag rules")
	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output path for the site configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	tagsPath, err := cmd.Flags().GetString("tags-output")
	if err != nil {
		return err
	}
	sitePath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		for _, p := range []string{tagsPath, sitePath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("file already exists: %s (use -f to overwrite)", p)
			}
		}
	}

	// The tag template goes through the rules loader so a broken template
	// can never be written.
	raw, err := templates.ReadFile("templates/tags.json")
	if err != nil {
		return fmt.Errorf("failed to read tags template: %w", err)
	}
	rules, err := tags.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid tags template: %w", err)
	}
	if err := tags.Write(tagsPath, rules.Raw()); err != nil {
		return fmt.Errorf("failed to write %s: %w", tagsPath, err)
	}

	content, err := templates.ReadFile("templates/listingdl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read site config template: %w", err)
	}
	if dir := filepath.Dir(sitePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	// Site configs may carry session cookies.
	if err := os.WriteFile(sitePath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", sitePath, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created tag rules: %s (%d tags)\n", tagsPath, rules.Len())
	fmt.Fprintf(out, "Created site configuration: %s\n", sitePath)
	fmt.Fprintln(out, "\nEdit tags.json to choose the folders photos are sorted into.")

	return nil
}
