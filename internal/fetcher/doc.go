// Package fetcher downloads listing pages and photos and extracts listing
// data from the page HTML.
//
// The Client wraps net/http with the politeness delay, per-site cookies and
// headers from the .listingdl file, size limits and an optional SOCKS5
// proxy. The Parser turns a listing page into an address, a price, a
// description and the list of photo URLs worth downloading.
//
// Fetching is sequential. The caller invokes Wait between requests so
// that a run never issues two requests to a portal back to back.
package fetcher
