package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Settings is the content of config.json.
type Settings struct {
	// BaseDirectory is the root of the downloaded listing folders.
	BaseDirectory string `json:"base_directory"`
}

// settingsFile accepts the legacy "base_dir" key alongside base_directory.
type settingsFile struct {
	BaseDirectory string `json:"base_directory"`
	LegacyBaseDir string `json:"base_dir,omitempty"`
}

// Store persists Settings as JSON.
type Store struct {
	path   string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger that reports a corrupt settings file.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings. A missing file yields zero Settings and no error.
// A file that cannot be decoded yields ErrCorruptSettings.
func (s *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", s.path, err)
	}

	var raw settingsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSettings, s.path, err)
	}

	settings := &Settings{BaseDirectory: raw.BaseDirectory}
	if settings.BaseDirectory == "" {
		settings.BaseDirectory = raw.LegacyBaseDir
	}
	return settings, nil
}

// Save writes the settings, replacing the file atomically.
func (s *Store) Save(settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return WriteFileAtomic(s.path, append(data, '\n'), 0o600)
}

// ResolveBaseDir decides the base directory for this run and persists it.
// An override (flag or environment) wins and replaces whatever config.json
// held, even a corrupt file. Without an override the stored value is used,
// falling back to DefaultBaseDir. A corrupt file is logged and the run uses
// DefaultBaseDir for now; the file is left as is so it can be repaired.
func (s *Store) ResolveBaseDir(override string) (string, error) {
	if override != "" {
		if err := s.Save(&Settings{BaseDirectory: override}); err != nil {
			return "", err
		}
		return override, nil
	}

	settings, err := s.Load()
	if errors.Is(err, ErrCorruptSettings) {
		s.logger.Warn("ignoring corrupt settings file, using the default base directory",
			"path", s.path, "baseDir", DefaultBaseDir, "error", err)
		return DefaultBaseDir, nil
	}
	if err != nil {
		return "", err
	}

	if settings.BaseDirectory == "" {
		settings.BaseDirectory = DefaultBaseDir
		if err := s.Save(settings); err != nil {
			return "", err
		}
	}

	return settings.BaseDirectory, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
