// Package model defines the data structures shared by the listingdl packages.
//
// This package contains the following main types:
//   - Listing: A listing page with its derived address, price, tags and images
//   - Image: A single photo discovered on a listing page
//   - EXIFSummary: Camera metadata read from a downloaded photo
//   - RunSummary: The outcome of one invocation over a list of URLs
//
// Models live in their own package so that the fetcher, pipeline, catalog
// and report packages can share them without import cycles. They are
// serializable to JSON for --json output.
package model
