package model

import "time"

// RunSummary is the outcome of one invocation over a list of URLs.
type RunSummary struct {
	// RunID identifies the run in the catalog.
	RunID string `json:"run_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// BaseDir is the output directory used by the run.
	BaseDir string `json:"base_dir"`

	// Listings holds one entry per URL argument in the order given.
	Listings []ListingResult `json:"listings"`

	Downloaded   int `json:"downloaded"`
	Skipped      int `json:"skipped"`
	Invalid      int `json:"invalid"`
	Failed       int `json:"failed"`
	ImagesSaved  int `json:"images_saved"`
	ImagesFailed int `json:"images_failed"`
}

// ListingResult is the per-URL line of a RunSummary.
type ListingResult struct {
	URL          string `json:"url"`
	Address      string `json:"address,omitempty"`
	Dir          string `json:"dir,omitempty"`
	Status       Status `json:"status"`
	ImagesSaved  int    `json:"images_saved"`
	ImagesFailed int    `json:"images_failed"`
	Error        string `json:"error,omitempty"`
}

// NewRunSummary creates an empty summary for the given run.
func NewRunSummary(runID, baseDir string) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		BaseDir:   baseDir,
		StartedAt: time.Now(),
		Listings:  make([]ListingResult, 0),
	}
}

// Add appends a result and updates the counters.
func (r *RunSummary) Add(result ListingResult) {
	r.Listings = append(r.Listings, result)

	switch result.Status {
	case StatusDownloaded:
		r.Downloaded++
	case StatusSkipped:
		r.Skipped++
	case StatusInvalid:
		r.Invalid++
	case StatusFailed, StatusCanceled:
		r.Failed++
	case StatusPending:
	}

	r.ImagesSaved += result.ImagesSaved
	r.ImagesFailed += result.ImagesFailed
}

// Finish records the finish time.
func (r *RunSummary) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took.
func (r *RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
