// Package log provides structured logging for listingdl, built on top of
// the standard slog package.
//
// Site configurations may carry session cookies and authorization headers
// for listing portals that require a login. The SecureHandler masks those
// values before they reach any output, so a shared scrape.log never leaks
// credentials.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, logFile, verbose)
//	slog.SetDefault(logger)
//
//	logger.Info("fetching listing",
//	    "url", "https://example.com/homes/123",
//	    "cookie", "session=abc123", // written as ***REDACTED***
//	)
//
// The console receives warnings (or everything with verbose), while the log
// file always receives Info and above, mirroring what scrape.log contained
// historically.
package log
