// Package tags loads keyword tag rules and matches them against text.
//
// Rules come from a JSON object mapping a tag label to its trigger keywords:
//
//	{
//	  "kitchen": ["kitchen", "#island", "pantry"],
//	  "pool":    ["pool", "spa"]
//	}
//
// A label matches a text when any of its keywords occurs in the text.
// Comparison uses Unicode case folding and ignores punctuation and spacing,
// so "open-concept" matches "Open concept". Labels have no precedence;
// every matching label is returned.
package tags
