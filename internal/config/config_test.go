package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional, so each one is asserted here.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Delay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.Delay != time.Second {
			t.Errorf("expected Delay to be 1s, got %v", cfg.Delay)
		}
	})

	t.Run("default Timeout is 15 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 15*time.Second {
			t.Errorf("expected Timeout to be 15s, got %v", cfg.Timeout)
		}
	})

	t.Run("default StateDir is the working directory", func(t *testing.T) {
		t.Parallel()
		if cfg.StateDir != "." {
			t.Errorf("expected StateDir to be '.', got %q", cfg.StateDir)
		}
	})

	t.Run("catalog and summaries are on by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if !cfg.WriteSummary {
			t.Error("expected WriteSummary to be true")
		}
	})

	t.Run("BaseDir is empty so config.json decides", func(t *testing.T) {
		t.Parallel()
		if cfg.BaseDir != "" {
			t.Errorf("expected empty BaseDir, got %q", cfg.BaseDir)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"https://homes.example.com/listing/1"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid config returns nil", mutate: func(*Config) {}},
		{name: "zero delay is allowed", mutate: func(c *Config) { c.Delay = 0 }},
		{name: "no target", mutate: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }, wantErr: ErrInvalidDelay},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "negative image size", mutate: func(c *Config) { c.MaxImageSize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "proxy without port", mutate: func(c *Config) { c.ProxyAddress = "127.0.0.1" }, wantErr: ErrInvalidProxyAddress},
		{name: "proxy without host", mutate: func(c *Config) { c.ProxyAddress = ":1080" }, wantErr: ErrInvalidProxyAddress},
		{name: "valid proxy", mutate: func(c *Config) { c.ProxyAddress = "127.0.0.1:1080" }},
		{
			name: "first failing rule wins",
			mutate: func(c *Config) {
				c.Targets = nil
				c.Delay = -1
			},
			wantErr: ErrNoTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigPaths tests the state file locations.
func TestConfigPaths(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.StateDir = filepath.Join("var", "state")

	if got, want := cfg.SettingsPath(), filepath.Join("var", "state", "config.json"); got != want {
		t.Errorf("SettingsPath() = %q, want %q", got, want)
	}
	if got, want := cfg.LedgerPath(), filepath.Join("var", "state", "processed_urls.json"); got != want {
		t.Errorf("LedgerPath() = %q, want %q", got, want)
	}

	t.Run("default log path is in the state dir", func(t *testing.T) {
		t.Parallel()
		c := *cfg
		if got, want := c.LogPath(), filepath.Join("var", "state", "scrape.log"); got != want {
			t.Errorf("LogPath() = %q, want %q", got, want)
		}
	})

	t.Run("dash disables the log file", func(t *testing.T) {
		t.Parallel()
		c := *cfg
		c.LogFile = DisabledLogFile
		if got := c.LogPath(); got != "" {
			t.Errorf("LogPath() = %q, want empty", got)
		}
	})

	t.Run("explicit log file is used as-is", func(t *testing.T) {
		t.Parallel()
		c := *cfg
		c.LogFile = "/tmp/run.log"
		if got := c.LogPath(); got != "/tmp/run.log" {
			t.Errorf("LogPath() = %q, want /tmp/run.log", got)
		}
	})
}

// TestSecondsToDuration tests fractional delay conversion.
func TestSecondsToDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds float64
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{0.25, 250 * time.Millisecond},
		{2.5, 2500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := SecondsToDuration(tt.seconds); got != tt.want {
			t.Errorf("SecondsToDuration(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

// TestFileGetSiteConfig tests the GetSiteConfig method.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Cookie: "default_cookie=abc"},
			Sites:    map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("unknown.example.com")
		if cfg.Cookie != "default_cookie=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Cookie: "default_cookie=abc", UserAgent: "default-agent"},
			Sites: map[string]SiteConfig{
				"homes.example.com": {Cookie: "session=xyz"},
			},
		}

		cfg := file.GetSiteConfig("homes.example.com")
		if cfg.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
		if cfg.UserAgent != "default-agent" {
			t.Errorf("expected default user agent to be inherited, got %q", cfg.UserAgent)
		}
	})

	t.Run("merges headers from defaults and site", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Headers: map[string]string{"X-Default": "value1", "Accept": "text/html"}},
			Sites: map[string]SiteConfig{
				"homes.example.com": {Headers: map[string]string{"Accept": "*/*"}},
			},
		}

		cfg := file.GetSiteConfig("homes.example.com")
		if cfg.Headers["X-Default"] != "value1" {
			t.Errorf("expected default header, got %q", cfg.Headers["X-Default"])
		}
		if cfg.Headers["Accept"] != "*/*" {
			t.Errorf("expected site header to override default, got %q", cfg.Headers["Accept"])
		}
		if file.Defaults.Headers["Accept"] != "text/html" {
			t.Error("merging must not modify the defaults")
		}
	})

	t.Run("appends ignore patterns", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{IgnorePatterns: []string{"*.svg"}},
			Sites: map[string]SiteConfig{
				"homes.example.com": {IgnorePatterns: []string{"*/logos/*"}},
			},
		}

		cfg := file.GetSiteConfig("homes.example.com")
		if len(cfg.IgnorePatterns) != 2 {
			t.Errorf("expected 2 ignore patterns, got %v", cfg.IgnorePatterns)
		}
		if len(file.Defaults.IgnorePatterns) != 1 {
			t.Error("merging must not modify the defaults")
		}
	})

	t.Run("host lookup ignores case and www prefix", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Sites: map[string]SiteConfig{
				"Homes.Example.com": {Cookie: "a=1"},
				"www.realty.test":   {Cookie: "b=2"},
			},
		}

		if got := file.GetSiteConfig("www.homes.example.com").Cookie; got != "a=1" {
			t.Errorf("expected a=1 for www host, got %q", got)
		}
		if got := file.GetSiteConfig("realty.test").Cookie; got != "b=2" {
			t.Errorf("expected b=2 for bare host, got %q", got)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), ".listingdl"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".listingdl")
		content := `defaults:
  userAgent: "test-agent"
sites:
  homes.example.com:
    cookie: "session=xyz"
    headers:
      Referer: "https://homes.example.com/"
    ignorePatterns:
      - "*/logos/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Defaults.UserAgent != "test-agent" {
			t.Errorf("expected default user agent, got %q", cfg.Defaults.UserAgent)
		}

		site, ok := cfg.Sites["homes.example.com"]
		if !ok {
			t.Fatal("expected homes.example.com in sites")
		}
		if site.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", site.Cookie)
		}
		if site.Headers["Referer"] != "https://homes.example.com/" {
			t.Errorf("expected Referer header, got %v", site.Headers)
		}
		if len(site.IgnorePatterns) != 1 {
			t.Errorf("expected 1 ignore pattern, got %d", len(site.IgnorePatterns))
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".listingdl")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".listingdl")
		if err := os.WriteFile(configPath, []byte("defaults:\n  cookie: a=b\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestFindTagsFile tests tag file resolution.
func TestFindTagsFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path is returned even when missing", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nope.json")
		if got := FindTagsFile(path); got != path {
			t.Errorf("FindTagsFile(%q) = %q", path, got)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"XDGDataDir":   XDGDataDir(),
		"XDGConfigDir": XDGConfigDir(),
	} {
		if dir == "" {
			t.Errorf("%s returned empty path", name)
		}
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("%s = %q, expected suffix %q", name, dir, AppName)
		}
	}
}
