package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/listingdl/internal/catalog"
	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/fetcher"
	"github.com/nao1215/listingdl/internal/imaging"
	"github.com/nao1215/listingdl/internal/model"
	"github.com/nao1215/listingdl/internal/organizer"
	"github.com/nao1215/listingdl/internal/report"
	"github.com/nao1215/listingdl/internal/tags"
)

// Fetcher is the HTTP side of the pipeline. *fetcher.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*fetcher.Page, error)
	FetchImage(ctx context.Context, imageURL string) (*fetcher.Download, error)
	Wait(ctx context.Context) error
}

// Recorder stores download history. *catalog.Catalog implements it.
type Recorder interface {
	StartRun(ctx context.Context, run *model.RunSummary) error
	FinishRun(ctx context.Context, run *model.RunSummary) error
	InsertDownload(ctx context.Context, rec *catalog.DownloadRecord) (int64, error)
}

// ErrNoPageBody is returned when a listing page came back empty.
var ErrNoPageBody = errors.New("listing page is empty")

// FetchPageStep downloads the listing HTML and then waits the politeness
// delay before anything else is requested.
type FetchPageStep struct {
	client Fetcher
	logger *slog.Logger
}

// NewFetchPageStep creates the fetch_page step.
func NewFetchPageStep(client Fetcher, logger *slog.Logger) *FetchPageStep {
	return &FetchPageStep{client: client, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *FetchPageStep) Name() string {
	return "fetch_page"
}

// Do executes the fetch_page step.
func (s *FetchPageStep) Do(ctx context.Context, listing *model.Listing) error {
	page, err := s.client.FetchPage(ctx, listing.URL)
	if err != nil {
		return err
	}
	if page.Truncated {
		s.logger.Warn("listing page truncated at size limit", "url", listing.URL, "bytes", len(page.Body))
	}
	if len(page.Body) == 0 {
		return fmt.Errorf("%w: %s", ErrNoPageBody, listing.URL)
	}

	listing.HTML = page.Body
	listing.FinalURL = page.FinalURL
	listing.FetchedAt = time.Now()

	s.logger.Info("fetched listing page", "url", listing.URL, "status", page.StatusCode, "bytes", len(page.Body))

	return s.client.Wait(ctx)
}

// ExtractStep parses address, price, description and images out of the
// page. Site-specific ignore patterns are taken from the site config.
type ExtractStep struct {
	sites  *config.File
	logger *slog.Logger
}

// NewExtractStep creates the extract step. sites may be nil.
func NewExtractStep(sites *config.File, logger *slog.Logger) *ExtractStep {
	if sites == nil {
		sites = config.EmptyFile()
	}
	return &ExtractStep{sites: sites, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extract step.
func (s *ExtractStep) Do(_ context.Context, listing *model.Listing) error {
	base := listing.FinalURL
	if base == "" {
		base = listing.URL
	}

	var opts []fetcher.ParserOption
	if u, err := url.Parse(base); err == nil {
		site := s.sites.GetSiteConfig(u.Hostname())
		ignore, err := fetcher.CompileIgnoreList(site.IgnorePatterns)
		if err != nil {
			s.logger.Warn("ignoring invalid image patterns", "host", u.Hostname(), "error", err)
		}
		if len(ignore) > 0 {
			opts = append(opts, fetcher.WithIgnoreList(ignore))
		}
	}

	parser, err := fetcher.NewParser(base, opts...)
	if err != nil {
		return fmt.Errorf("invalid page URL %s: %w", base, err)
	}

	result, err := parser.Parse(listing.HTML)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", listing.URL, err)
	}

	listing.Address = strings.TrimSpace(result.Address)
	listing.Price = result.Price
	listing.Description = result.Description
	listing.DescriptionMarkdown = result.DescriptionMarkdown
	listing.Images = result.Images

	s.logger.Info("extracted listing",
		"url", listing.URL,
		"address", listing.Address,
		"price", listing.Price,
		"images", len(listing.Images),
	)
	if len(listing.Images) == 0 {
		s.logger.Warn("no images found on listing page", "url", listing.URL)
	}
	return nil
}

// ClassifyStep assigns tags to the listing and to each image.
// An image is tagged from its own file name, alt text and title; when
// nothing matches it inherits the tags found in the listing description.
type ClassifyStep struct {
	rules  *tags.Rules
	logger *slog.Logger
}

// NewClassifyStep creates the classify step.
func NewClassifyStep(rules *tags.Rules, logger *slog.Logger) *ClassifyStep {
	return &ClassifyStep{rules: rules, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classify step.
func (s *ClassifyStep) Do(_ context.Context, listing *model.Listing) error {
	if s.rules == nil {
		return nil
	}

	text := listing.Description
	if md := strings.TrimSpace(listing.DescriptionMarkdown); md != "" && md != text {
		text += " " + md
	}
	listing.Tags = s.rules.Match(text)

	for _, img := range listing.Images {
		img.Tags = s.rules.Match(img.MatchText())
		if len(img.Tags) == 0 && len(listing.Tags) > 0 {
			img.Tags = append([]string(nil), listing.Tags...)
		}
		s.logger.Debug("classified image", "index", img.Index, "url", img.URL, "tags", img.Tags)
	}
	return nil
}

// DownloadStep fetches every image, converts WebP to JPEG, places the
// files and records them. A failing image is logged on the image and
// skipped; only cancellation stops the step.
type DownloadStep struct {
	client   Fetcher
	baseDir  string
	runID    string
	recorder Recorder
	logger   *slog.Logger
}

// NewDownloadStep creates the download step. recorder may be nil.
func NewDownloadStep(client Fetcher, baseDir, runID string, recorder Recorder, logger *slog.Logger) *DownloadStep {
	return &DownloadStep{
		client:   client,
		baseDir:  baseDir,
		runID:    runID,
		recorder: recorder,
		logger:   orDefault(logger),
	}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do executes the download step.
func (s *DownloadStep) Do(ctx context.Context, listing *model.Listing) error {
	listing.Dir = organizer.AddressDir(s.baseDir, listing.Address)

	for _, img := range listing.Images {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.downloadImage(ctx, listing, img)

		if err := s.client.Wait(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("listing downloaded",
		"url", listing.URL,
		"dir", listing.Dir,
		"saved", listing.SavedImages(),
		"failed", listing.FailedImages(),
	)
	return nil
}

func (s *DownloadStep) downloadImage(ctx context.Context, listing *model.Listing, img *model.Image) {
	dl, err := s.client.FetchImage(ctx, img.URL)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.skip(img, "image download failed", err)
		return
	}

	data, ext, converted, err := imaging.Prepare(dl.ContentType, img.URL, dl.Data)
	if err != nil {
		s.skip(img, "unsupported image", err)
		return
	}

	img.ContentType = dl.ContentType
	img.Converted = converted
	img.Data = data
	img.EXIF = imaging.ReadEXIF(dl.Data)
	img.ComputeDigest()

	paths, err := organizer.Place(s.baseDir, listing, img, ext, data)
	img.Paths = paths
	switch {
	case err != nil && len(paths) == 0:
		s.skip(img, "failed to write image", err)
		img.Data = nil
		return
	case err != nil:
		s.logger.Warn("image written to some tag folders only", "url", img.URL, "paths", paths, "error", err)
	}

	s.logger.Info("saved image",
		"url", img.URL,
		"paths", img.Paths,
		"tags", img.Tags,
		"converted", img.Converted,
	)

	if s.recorder != nil {
		if _, err := s.recorder.InsertDownload(ctx, catalog.NewDownloadRecord(s.runID, listing, img)); err != nil {
			s.logger.Warn("failed to record download in catalog", "url", img.URL, "error", err)
		}
	}

	// The bytes are on disk; keep only the metadata.
	img.Data = nil
}

func (s *DownloadStep) skip(img *model.Image, msg string, err error) {
	img.Err = err.Error()
	s.logger.Warn(msg, "index", img.Index, "url", img.URL, "error", err)
}

// SummaryStep writes the listing summary into the address folder. Failing
// to write the summary never fails the listing.
type SummaryStep struct {
	logger *slog.Logger
}

// NewSummaryStep creates the summary step.
func NewSummaryStep(logger *slog.Logger) *SummaryStep {
	return &SummaryStep{logger: orDefault(logger)}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the summary step.
func (s *SummaryStep) Do(_ context.Context, listing *model.Listing) error {
	if listing.Dir == "" {
		return nil
	}

	path, err := report.WriteListingFile(listing)
	if err != nil {
		s.logger.Warn("failed to write listing summary", "url", listing.URL, "error", err)
		return nil
	}
	s.logger.Debug("wrote listing summary", "path", path)
	return nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
