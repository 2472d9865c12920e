// Package ledger persists the set of listing URLs that have already been
// processed, so that repeated runs over the same URL list do not download
// anything twice.
//
// The ledger is a JSON array of URL strings kept in insertion order. It is
// append-only: URLs are added after a listing completes and never removed.
// Every insertion rewrites the file atomically, so an interrupted run keeps
// every URL marked before the interruption.
//
// A missing or unreadable file yields an empty ledger. Losing the ledger only
// causes re-downloads, which is preferable to refusing to run.
package ledger
