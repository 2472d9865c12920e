package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/nao1215/listingdl/internal/config"
)

// Ledger is the processed-URL set. It is not safe for concurrent use;
// a run processes listings sequentially.
type Ledger struct {
	path   string
	urls   []string
	index  map[string]struct{}
	logger *slog.Logger
}

// Open loads the ledger at path. Problems reading the file are logged and
// result in an empty ledger rather than an error.
func Open(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	l := &Ledger{
		path:   path,
		urls:   make([]string, 0),
		index:  make(map[string]struct{}),
		logger: logger,
	}

	entries, err := readEntries(path)
	if err != nil {
		logger.Warn("ignoring unreadable processed-URL ledger", "path", path, "error", err)
		return l
	}

	for _, entry := range entries {
		key := Normalize(entry)
		if key == "" {
			continue
		}
		if _, seen := l.index[key]; seen {
			continue
		}
		l.index[key] = struct{}{}
		l.urls = append(l.urls, key)
	}

	logger.Debug("loaded processed-URL ledger", "path", path, "count", len(l.urls))
	return l
}

func readEntries(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the state directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid ledger JSON: %w", err)
	}
	return entries, nil
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// IsProcessed reports whether rawURL has been marked.
func (l *Ledger) IsProcessed(rawURL string) bool {
	_, ok := l.index[Normalize(rawURL)]
	return ok
}

// MarkProcessed adds rawURL and persists the ledger.
// Marking a URL that is already present does not touch the file.
func (l *Ledger) MarkProcessed(rawURL string) error {
	key := Normalize(rawURL)
	if key == "" {
		return fmt.Errorf("cannot mark empty URL")
	}
	if _, ok := l.index[key]; ok {
		return nil
	}

	l.index[key] = struct{}{}
	l.urls = append(l.urls, key)

	if err := l.save(); err != nil {
		// Keep memory and disk in agreement so a retry writes the URL again.
		delete(l.index, key)
		l.urls = l.urls[:len(l.urls)-1]
		return err
	}

	l.logger.Debug("marked listing as processed", "url", key)
	return nil
}

// URLs returns a copy of the processed URLs in insertion order.
func (l *Ledger) URLs() []string {
	out := make([]string, len(l.urls))
	copy(out, l.urls)
	return out
}

// Len returns the number of processed URLs.
func (l *Ledger) Len() int {
	return len(l.urls)
}

func (l *Ledger) save() error {
	data, err := json.MarshalIndent(l.urls, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := config.WriteFileAtomic(l.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// Normalize returns the form URLs are compared in: surrounding whitespace
// trimmed, the fragment dropped and scheme and host lower-cased.
// Strings that do not parse as URLs are only trimmed.
func Normalize(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
