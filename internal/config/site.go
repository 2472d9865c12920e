package config

import (
	"maps"
	"strings"
)

// SiteConfig holds request settings for a single listing portal.
// Portals that only show full-size photos to signed-in users need a
// session cookie or extra headers.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// IgnorePatterns are glob patterns matched against image URLs.
	// Matching images are not downloaded (e.g. "*/logos/*", "*.svg").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// File represents the structure of the .listingdl configuration file.
type File struct {
	// Sites maps host names (e.g. "www.zillow.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// The lookup is case-insensitive and a leading "www." is ignored when the
// exact host has no entry.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		result.Headers = maps.Clone(result.Headers)
	}

	site, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = append(append([]string{}, result.IgnorePatterns...), site.IgnorePatterns...)
	}

	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	candidates := []string{host}
	if trimmed, found := strings.CutPrefix(host, "www."); found {
		candidates = append(candidates, trimmed)
	} else {
		candidates = append(candidates, "www."+host)
	}

	for _, candidate := range candidates {
		for key, site := range cf.Sites {
			if strings.EqualFold(key, candidate) {
				return site, true
			}
		}
	}
	return SiteConfig{}, false
}
