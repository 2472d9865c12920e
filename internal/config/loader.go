package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default site configuration file name.
const DefaultConfigFile = ".listingdl"

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// EmptyFile returns a site configuration with no entries.
func EmptyFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// FindConfigFile searches for the site configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .listingdl in the current directory
// 3. Look for .listingdl in the user's home directory
//
// Returns the path if found, or an empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// FindTagsFile locates the tag rules file.
// An explicit path is returned as-is so that the caller reports a missing
// file by name. Otherwise tags.json is searched in the working directory
// and then in the XDG config directory. Returns "" when nothing is found.
func FindTagsFile(tagsPath string) string {
	if tagsPath != "" {
		return tagsPath
	}

	candidates := []string{
		DefaultTagsFile,
		filepath.Join(XDGConfigDir(), DefaultTagsFile),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
