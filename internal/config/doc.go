// Package config provides configuration structures and utilities for listingdl.
// It covers command-line settings, the persisted base-directory store
// (config.json), per-site request settings (.listingdl) and environment
// overrides (.env).
package config
