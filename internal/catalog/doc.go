// Package catalog provides SQLite-based history of listingdl runs.
//
// The catalog stores:
//   - Runs with their start and finish times and counters
//   - One download record per saved photo: listing, address, image URL,
//     written paths, tags, content digest and camera metadata
//
// The processed-URL ledger decides what gets downloaded; the catalog only
// records what happened and powers the history command. A catalog failure
// never stops a download.
//
// SQLite is provided by modernc.org/sqlite, which needs no cgo.
package catalog
