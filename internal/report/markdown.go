package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/model"
	"github.com/nao1215/listingdl/internal/organizer"
)

// listingFilePrefix starts the name of every listing summary. The listing
// key follows so listings sharing an address folder keep their own file.
const listingFilePrefix = "LISTING_"

// ListingFileName returns the summary file name for listing,
// LISTING_<key>.md.
func ListingFileName(listing *model.Listing) string {
	key := listing.Key
	if key == "" {
		key = model.ListingKey(listing.URL)
	}
	return listingFilePrefix + key + ".md"
}

// MarkdownWriter renders a listing summary in Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteListing outputs the summary of one listing.
func (w *MarkdownWriter) WriteListing(listing *model.Listing) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, listing)
	w.writeTags(md, listing)
	w.writeDescription(md, listing)
	w.writeImages(md, listing)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteListingFile writes the listing's summary into its address folder and
// returns its path. The file is replaced when the same listing is
// downloaded again.
func WriteListingFile(listing *model.Listing) (string, error) {
	if listing.Dir == "" {
		return "", fmt.Errorf("listing %s has no output directory", listing.URL)
	}

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).WriteListing(listing); err != nil {
		return "", fmt.Errorf("failed to render listing summary: %w", err)
	}

	path := filepath.Join(listing.Dir, ListingFileName(listing))
	if err := config.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, listing *model.Listing) {
	address := listing.Address
	if address == "" {
		address = model.UnknownAddress
	}
	md.H1(address)
	md.PlainText("")

	price := listing.Price
	if price == "" {
		price = "-"
	}
	fetched := "-"
	if !listing.FetchedAt.IsZero() {
		fetched = listing.FetchedAt.Format("2006-01-02 15:04:05 MST")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", listing.URL},
			{"Price", price},
			{"Fetched", fetched},
			{"Listing Key", "`" + listing.Key + "`"},
			{"Images", fmt.Sprintf("%d saved, %d failed", listing.SavedImages(), listing.FailedImages())},
		},
	})
	md.PlainText("")

	if listing.FailedImages() > 0 {
		md.Warningf("%d image(s) could not be saved. See the log for details.", listing.FailedImages())
		md.PlainText("")
	}
}

// writeTags writes the per-tag image counts and, when more than one folder
// received images, a pie chart of the distribution.
func (w *MarkdownWriter) writeTags(md *markdown.Markdown, listing *model.Listing) {
	md.H2("Tags")
	md.PlainText("")

	if len(listing.Tags) > 0 {
		md.PlainTextf("Description tags: %s", strings.Join(listing.Tags, ", "))
		md.PlainText("")
	}

	counts := tagCounts(listing)
	if len(counts) == 0 {
		md.PlainText("No images saved.")
		md.PlainText("")
		return
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rows := make([][]string, len(labels))
	for i, label := range labels {
		rows[i] = []string{label, strconv.Itoa(counts[label])}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tag", "Images"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(labels) > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Images per Tag"),
			piechart.WithShowData(true),
		)
		for _, label := range labels {
			chart.LabelAndIntValue(label, uint64(counts[label]))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeDescription(md *markdown.Markdown, listing *model.Listing) {
	desc := strings.TrimSpace(listing.DescriptionMarkdown)
	if desc == "" {
		desc = strings.TrimSpace(listing.Description)
	}
	if desc == "" {
		return
	}

	md.H2("Description")
	md.PlainText("")
	md.PlainText(desc)
	md.PlainText("")
}

func (w *MarkdownWriter) writeImages(md *markdown.Markdown, listing *model.Listing) {
	md.H2("Images")
	md.PlainText("")

	if len(listing.Images) == 0 {
		md.Note("No photos were found on the listing page.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(listing.Images))
	var failed []string
	for _, img := range listing.Images {
		if !img.Saved() {
			if img.Err != "" {
				failed = append(failed, fmt.Sprintf("#%d %s: %s", img.Index, img.URL, img.Err))
			}
			continue
		}

		files := make([]string, len(img.Paths))
		for i, p := range img.Paths {
			files[i] = "`" + relativeTo(listing.Dir, p) + "`"
		}
		tags := organizer.UntaggedDir
		if len(img.Tags) > 0 {
			tags = strings.Join(img.Tags, ", ")
		}
		camera := img.EXIF.Camera()
		if camera == "" {
			camera = "-"
		}

		rows = append(rows, []string{
			strconv.Itoa(img.Index),
			strings.Join(files, " "),
			tags,
			truncateString(img.URL, 60),
			camera,
		})
	}

	if len(rows) > 0 {
		md.Table(markdown.TableSet{
			Header: []string{"#", "File", "Tags", "Source", "Camera"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(failed) > 0 {
		md.Details("Skipped images", strings.Join(failed, "\n"))
		md.PlainText("")
	}
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by listingdl*")
}

// tagCounts returns the number of saved images per folder label.
func tagCounts(listing *model.Listing) map[string]int {
	counts := make(map[string]int)
	for _, img := range listing.Images {
		if !img.Saved() {
			continue
		}
		if len(img.Tags) == 0 {
			counts[organizer.UntaggedDir]++
			continue
		}
		for _, tag := range img.Tags {
			counts[tag]++
		}
	}
	return counts
}

func relativeTo(dir, path string) string {
	if dir == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
