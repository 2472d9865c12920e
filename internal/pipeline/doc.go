// Package pipeline runs the per-listing processing steps.
//
// A listing goes through fetch_page, extract, classify, download and
// summary in that order. Each stage is a Step that receives the listing
// and fills in more of it. A Processor drives one pipeline per URL,
// consulting the processed-URL ledger before and marking it after.
//
// Processing is sequential. The only suspension points are HTTP requests
// and the politeness delay between them, and both honor context
// cancellation.
package pipeline
