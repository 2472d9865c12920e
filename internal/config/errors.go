package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no listing URL is given.
	ErrNoTarget = errors.New("no target specified: provide one or more listing URLs")

	// ErrInvalidDelay is returned when the delay between requests is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when a size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxyAddress is returned when --proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// Errors returned while reading configuration files.
var (
	// ErrConfigNotFound is returned when the site configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrCorruptSettings is returned when config.json exists but cannot be decoded.
	ErrCorruptSettings = errors.New("settings file is corrupt")
)
