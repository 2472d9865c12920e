// Package main provides the entry point for the listingdl CLI.
//
// listingdl downloads the photos of real-estate listing pages, tags them
// by keyword and files them under an address-derived folder.
//
// Usage:
//
//	listingdl <listing-url> [<listing-url>...] [--delay SECONDS]
//	listingdl init
//	listingdl history [listing-url]
//
// See --help for all available options.
package main

// main is the entry point for listingdl.
func main() {
	Execute()
}
