package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/listingdl/internal/catalog"
	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/model"
	"github.com/nao1215/listingdl/internal/organizer"
)

// historyTimeLayout formats catalog timestamps for the terminal.
const historyTimeLayout = "2006-01-02 15:04"

// NewHistoryCmd creates the history command.
// It reads the download catalog written by previous runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [listing-url]",
		Short: "Show previously downloaded listings",
		Long: `History lists what earlier runs saved, as recorded in the download catalog.

Without arguments it shows the most recent runs and every cataloged
listing. With a listing URL it shows each photo saved for that listing
and the files it was written to.

Examples:
  # Recent runs and all listings
  listingdl history

  # Photos of one listing
  listingdl history https://example.com/listing/1

  # Show only the last three runs
  listingdl history --limit 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the download catalog")
	cmd.Flags().IntP("limit", "n", 10,
		"Number of recent runs to show")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("invalid limit %d: must be positive", limit)
	}

	out := cmd.OutOrStdout()

	opts := catalog.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := catalog.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			fmt.Fprintln(out, "No downloads recorded yet.")
			fmt.Fprintln(out, "\nUse 'listingdl <listing-url>' to download a listing.")
			return nil
		}
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		return listListingDownloads(ctx, out, db, args[0])
	}

	if err := listRecentRuns(ctx, out, db, limit); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return listCatalogedListings(ctx, out, db)
}

// listRecentRuns prints up to limit runs, newest first.
func listRecentRuns(ctx context.Context, out io.Writer, db *catalog.Catalog, limit int) error {
	runs, err := db.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(out, "Recent runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-16s  %5s  %5s  %5s  %5s  %s\n",
		"Run ID", "Started", "New", "Skip", "Inv", "Fail", "Images")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))

	for _, r := range runs {
		images := fmt.Sprintf("%d saved", r.ImagesSaved)
		if r.ImagesFailed > 0 {
			images += fmt.Sprintf(", %d failed", r.ImagesFailed)
		}
		if r.FinishedAt.IsZero() {
			images += " (unfinished)"
		}
		fmt.Fprintf(out, "  %-36s  %-16s  %5d  %5d  %5d  %5d  %s\n",
			r.ID,
			r.StartedAt.Local().Format(historyTimeLayout),
			r.Downloaded, r.Skipped, r.Invalid, r.Failed,
			images,
		)
	}

	return nil
}

// listCatalogedListings prints every listing with saved photos.
func listCatalogedListings(ctx context.Context, out io.Writer, db *catalog.Catalog) error {
	listings, err := db.ListListings(ctx)
	if err != nil {
		return err
	}

	if len(listings) == 0 {
		fmt.Fprintln(out, "No listings cataloged.")
		return nil
	}

	fmt.Fprintf(out, "Listings (%d):\n\n", len(listings))
	for _, l := range listings {
		address := l.Address
		if address == "" {
			address = model.UnknownAddress
		}
		fmt.Fprintf(out, "  • %s\n", address)
		fmt.Fprintf(out, "      %s (%d images, last saved %s)\n",
			l.ListingURL, l.Images, l.LastSaved.Local().Format(historyTimeLayout))
	}
	fmt.Fprintln(out, "\nUse 'listingdl history <listing-url>' to see the photos of a listing.")

	return nil
}

// listListingDownloads prints the photos saved for one listing.
func listListingDownloads(ctx context.Context, out io.Writer, db *catalog.Catalog, listingURL string) error {
	records, err := db.ListDownloads(ctx, listingURL)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No downloads found for %s\n", listingURL)
		return nil
	}

	fmt.Fprintf(out, "Downloads for %s (%d):\n\n", listingURL, len(records))
	for _, r := range records {
		tagList := organizer.UntaggedDir
		if len(r.Tags) > 0 {
			tagList = strings.Join(r.Tags, ", ")
		}
		fmt.Fprintf(out, "  %s  [%s]\n", r.ImageURL, tagList)
		for _, p := range r.Paths {
			fmt.Fprintf(out, "      -> %s\n", p)
		}
		if r.Camera != "" {
			fmt.Fprintf(out, "      camera: %s\n", r.Camera)
		}
	}

	return nil
}
