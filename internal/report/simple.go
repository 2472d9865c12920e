package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/listingdl/internal/model"
)

// SimpleWriter outputs the human-readable end-of-run report.
type SimpleWriter struct {
	baseWriter

	// verbose adds output directories and error details per listing.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteRun outputs the run summary.
func (w *SimpleWriter) WriteRun(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeListings(&sb, summary)
	w.writeTotals(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LISTINGDL RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:         %s\n", summary.RunID)
	fmt.Fprintf(sb, "Started:        %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d := summary.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:       %s\n", d.Round(100*time.Millisecond))
	}
	fmt.Fprintf(sb, "Base directory: %s\n", summary.BaseDir)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeListings(sb *strings.Builder, summary *model.RunSummary) {
	if len(summary.Listings) == 0 {
		sb.WriteString("  No URLs given\n\n")
		return
	}

	for _, l := range summary.Listings {
		fmt.Fprintf(sb, "[%s] %s\n", statusIndicator(l.Status), l.URL)

		switch l.Status {
		case model.StatusDownloaded:
			line := fmt.Sprintf("    %s: %d image(s) saved", displayAddress(l.Address), l.ImagesSaved)
			if l.ImagesFailed > 0 {
				line += fmt.Sprintf(", %d failed", l.ImagesFailed)
			}
			sb.WriteString(line + "\n")
			if w.verbose && l.Dir != "" {
				fmt.Fprintf(sb, "    Directory: %s\n", l.Dir)
			}
		case model.StatusSkipped:
			sb.WriteString("    already processed\n")
		case model.StatusInvalid, model.StatusFailed, model.StatusCanceled:
			fmt.Fprintf(sb, "    %s", l.Status)
			if l.Error != "" {
				fmt.Fprintf(sb, ": %s", l.Error)
			}
			sb.WriteString("\n")
		case model.StatusPending:
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, summary *model.RunSummary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  DOWNLOADED: %d\n", summary.Downloaded)
	fmt.Fprintf(sb, "  SKIPPED:    %d\n", summary.Skipped)
	fmt.Fprintf(sb, "  INVALID:    %d\n", summary.Invalid)
	fmt.Fprintf(sb, "  FAILED:     %d\n", summary.Failed)
	fmt.Fprintf(sb, "  IMAGES:     %d saved, %d failed\n", summary.ImagesSaved, summary.ImagesFailed)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// statusIndicator returns a short marker for the listing status.
func statusIndicator(s model.Status) string {
	switch s {
	case model.StatusDownloaded:
		return "+"
	case model.StatusSkipped:
		return "="
	case model.StatusInvalid:
		return "?"
	case model.StatusFailed, model.StatusCanceled:
		return "!"
	case model.StatusPending:
		return " "
	default:
		return " "
	}
}

func displayAddress(address string) string {
	if address == "" {
		return model.UnknownAddress
	}
	return address
}
