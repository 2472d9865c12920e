package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/fetcher"
	"github.com/nao1215/listingdl/internal/ledger"
	"github.com/nao1215/listingdl/internal/model"
	"github.com/nao1215/listingdl/internal/tags"
)

// Processor downloads a list of listing URLs one after another, skipping
// those already in the ledger.
type Processor struct {
	client   Fetcher
	ledger   *ledger.Ledger
	rules    *tags.Rules
	baseDir  string
	sites    *config.File
	recorder Recorder
	summary  bool
	logger   *slog.Logger
	newRunID func() string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger used by the processor and its steps.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRecorder records runs and downloads, typically in the catalog.
func WithRecorder(r Recorder) ProcessorOption {
	return func(p *Processor) {
		p.recorder = r
	}
}

// WithSiteSettings supplies per-site ignore patterns to the extract step.
func WithSiteSettings(sites *config.File) ProcessorOption {
	return func(p *Processor) {
		p.sites = sites
	}
}

// WithListingSummary toggles writing LISTING_<key>.md for each listing.
func WithListingSummary(enabled bool) ProcessorOption {
	return func(p *Processor) {
		p.summary = enabled
	}
}

// WithRunIDGenerator replaces the UUID run ID generator.
func WithRunIDGenerator(fn func() string) ProcessorOption {
	return func(p *Processor) {
		p.newRunID = fn
	}
}

// NewProcessor creates a Processor writing into baseDir.
func NewProcessor(client Fetcher, l *ledger.Ledger, rules *tags.Rules, baseDir string, opts ...ProcessorOption) *Processor {
	p := &Processor{
		client:   client,
		ledger:   l,
		rules:    rules,
		baseDir:  baseDir,
		summary:  true,
		newRunID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// newPipeline builds the step sequence for one listing.
func (p *Processor) newPipeline(runID string) *Pipeline {
	pl := New(WithLogger(p.logger))
	pl.AddSteps(
		NewFetchPageStep(p.client, p.logger),
		NewExtractStep(p.sites, p.logger),
		NewClassifyStep(p.rules, p.logger),
		NewDownloadStep(p.client, p.baseDir, runID, p.recorder, p.logger),
	)
	if p.summary {
		pl.AddStep(NewSummaryStep(p.logger))
	}
	return pl
}

// Run processes urls in order and returns the run summary. It never fails
// as a whole: each URL ends up downloaded, skipped, invalid, failed or
// canceled. Once ctx is canceled the remaining URLs are reported as
// canceled and left unmarked so the next run picks them up.
func (p *Processor) Run(ctx context.Context, urls []string) *model.RunSummary {
	summary := model.NewRunSummary(p.newRunID(), p.baseDir)

	if p.recorder != nil {
		if err := p.recorder.StartRun(ctx, summary); err != nil {
			p.logger.Warn("failed to record run start in catalog", "run_id", summary.RunID, "error", err)
		}
	}

	p.logger.Info("starting run",
		"run_id", summary.RunID,
		"urls", len(urls),
		"base_dir", p.baseDir,
		"ledger", p.ledger.Len(),
	)

	for i, raw := range urls {
		if ctx.Err() != nil {
			summary.Add(model.ListingResult{
				URL:    strings.TrimSpace(raw),
				Status: model.StatusCanceled,
				Error:  ctx.Err().Error(),
			})
			continue
		}

		p.logger.Info("processing listing", "url", raw, "index", i+1, "total", len(urls))
		summary.Add(p.process(ctx, summary.RunID, raw))
	}

	summary.Finish()

	if p.recorder != nil {
		// The run is recorded even after an interrupt.
		if err := p.recorder.FinishRun(context.WithoutCancel(ctx), summary); err != nil {
			p.logger.Warn("failed to record run in catalog", "run_id", summary.RunID, "error", err)
		}
	}

	p.logger.Info("run complete",
		"run_id", summary.RunID,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"invalid", summary.Invalid,
		"failed", summary.Failed,
		"images_saved", summary.ImagesSaved,
		"images_failed", summary.ImagesFailed,
		"elapsed", summary.Duration(),
	)

	return summary
}

// process handles a single URL.
func (p *Processor) process(ctx context.Context, runID, raw string) model.ListingResult {
	target := strings.TrimSpace(raw)
	result := model.ListingResult{URL: target}

	u, err := fetcher.ValidateURL(target)
	if err != nil {
		p.logger.Warn("skipping invalid URL", "url", raw, "error", err)
		result.Status = model.StatusInvalid
		result.Error = err.Error()
		return result
	}
	target = u.String()
	result.URL = target

	if p.ledger.IsProcessed(target) {
		p.logger.Info("skipping already processed listing", "url", target)
		result.Status = model.StatusSkipped
		return result
	}

	listing := model.NewListing(target)
	if err := p.newPipeline(runID).Execute(ctx, listing); err != nil {
		result.Address = listing.Address
		result.Dir = listing.Dir
		result.ImagesSaved = listing.SavedImages()
		result.ImagesFailed = listing.FailedImages()
		result.Error = err.Error()
		result.Status = model.StatusFailed
		if ctx.Err() != nil {
			result.Status = model.StatusCanceled
		}
		return result
	}

	result.Status = model.StatusDownloaded
	result.Address = listing.Address
	result.Dir = listing.Dir
	result.ImagesSaved = listing.SavedImages()
	result.ImagesFailed = listing.FailedImages()

	if err := p.ledger.MarkProcessed(target); err != nil {
		p.logger.Error("failed to mark listing as processed", "url", target, "error", err)
		result.Error = err.Error()
	}

	return result
}
