// Package report renders listing summaries and run reports.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: LISTING_<key>.md written next to a listing's photos
//   - SimpleWriter: human-readable end-of-run text for the terminal
//   - JSONWriter: the run summary as JSON for scripts
//
// The data being rendered lives in the model package.
package report
