package model

import "fmt"

// Status is the outcome of processing one listing URL.
type Status int

const (
	// StatusPending is the state before the listing has been processed.
	StatusPending Status = iota

	// StatusDownloaded means the listing was processed and marked in the ledger.
	// Individual images may still have failed.
	StatusDownloaded

	// StatusSkipped means the URL was already in the ledger.
	StatusSkipped

	// StatusInvalid means the argument was not an absolute http(s) URL.
	StatusInvalid

	// StatusFailed means the page could not be fetched or parsed.
	// The URL is not marked, so the next run retries it.
	StatusFailed

	// StatusCanceled means the run was interrupted while the listing was in progress.
	StatusCanceled
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusInvalid:
		return "invalid"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name so JSON output stays readable.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusPending; candidate <= StatusCanceled; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown listing status %q", text)
}
