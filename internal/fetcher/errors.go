package fetcher

import "errors"

var (
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when an image exceeds the size limit.
	// A truncated image would be written as a corrupt file.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrInvalidURL is returned for arguments that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid listing URL: must be an absolute http or https URL")

	// ErrInvalidPattern is returned for ignore patterns that are not valid globs.
	ErrInvalidPattern = errors.New("invalid ignore pattern")
)
