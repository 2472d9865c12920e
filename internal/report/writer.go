package report

import (
	"io"

	"github.com/nao1215/listingdl/internal/model"
)

// RunWriter writes the end-of-run report.
// SimpleWriter and JSONWriter implement it so the CLI can pick one by flag.
type RunWriter interface {
	// WriteRun outputs the summary and returns the number of bytes written.
	WriteRun(summary *model.RunSummary) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
