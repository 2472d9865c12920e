// Package organizer decides where downloaded photos are stored and writes
// them there.
//
// The layout is base/address/tag/file, where address is the sanitized
// listing address and tag is a matched tag label or "untagged". File names
// carry the photo's position on the page and a short key derived from the
// listing URL, so two listings that share an address write into the same
// folder without overwriting each other.
package organizer
