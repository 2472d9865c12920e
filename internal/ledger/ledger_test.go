package ledger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFile(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		t.Fatalf("ledger is not a JSON array: %v (%s)", err, data)
	}
	return urls
}

// TestOpen tests loading the ledger from various file states.
func TestOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content *string
		want    int
		warns   bool
	}{
		{name: "missing file", content: nil, want: 0},
		{name: "empty file", content: ptr(""), want: 0},
		{name: "valid array", content: ptr(`["https://a.test/1", "https://a.test/2"]`), want: 2},
		{name: "duplicates collapse", content: ptr(`["https://a.test/1", "https://A.test/1#photos"]`), want: 1},
		{name: "corrupt file fails open", content: ptr(`{"not": "an array"}`), want: 0, warns: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "processed_urls.json")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0600); err != nil {
					t.Fatalf("failed to write ledger: %v", err)
				}
			}

			var logs bytes.Buffer
			l := Open(path, slog.New(slog.NewTextHandler(&logs, nil)))

			if l.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", l.Len(), tt.want)
			}
			if got := strings.Contains(logs.String(), "level=WARN"); got != tt.warns {
				t.Errorf("warning logged = %v, want %v (logs: %s)", got, tt.warns, logs.String())
			}
		})
	}
}

func ptr(s string) *string { return &s }

// TestMarkProcessed tests insertion, persistence and reload.
func TestMarkProcessed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_urls.json")
	l := Open(path, nil)

	if l.IsProcessed("https://homes.example.com/listing/1") {
		t.Fatal("expected fresh ledger to be empty")
	}

	for _, u := range []string{
		"https://homes.example.com/listing/1",
		"https://homes.example.com/listing/2",
	} {
		if err := l.MarkProcessed(u); err != nil {
			t.Fatalf("MarkProcessed(%q) error: %v", u, err)
		}
	}

	if !l.IsProcessed("https://homes.example.com/listing/1") {
		t.Error("expected listing/1 to be processed")
	}
	if got := readFile(t, path); len(got) != 2 || got[0] != "https://homes.example.com/listing/1" {
		t.Errorf("unexpected file content: %v", got)
	}

	reloaded := Open(path, nil)
	if reloaded.Len() != 2 {
		t.Errorf("expected 2 URLs after reload, got %d", reloaded.Len())
	}
	if !reloaded.IsProcessed("https://homes.example.com/listing/2") {
		t.Error("expected listing/2 to survive reload")
	}
}

// TestMarkProcessed_NoDuplicates tests that re-marking is a no-op.
func TestMarkProcessed_NoDuplicates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_urls.json")
	l := Open(path, nil)

	if err := l.MarkProcessed("https://homes.example.com/listing/1"); err != nil {
		t.Fatalf("MarkProcessed() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}

	for _, variant := range []string{
		"https://homes.example.com/listing/1",
		"  https://HOMES.example.com/listing/1  ",
		"HTTPS://homes.example.com/listing/1#gallery",
	} {
		if err := l.MarkProcessed(variant); err != nil {
			t.Fatalf("MarkProcessed(%q) error: %v", variant, err)
		}
	}

	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if !after.ModTime().Equal(info.ModTime()) || after.Size() != info.Size() {
		t.Error("expected file to be untouched when marking a known URL")
	}
}

// TestMarkProcessed_Empty tests that empty URLs are rejected.
func TestMarkProcessed_Empty(t *testing.T) {
	t.Parallel()

	l := Open(filepath.Join(t.TempDir(), "processed_urls.json"), nil)
	if err := l.MarkProcessed("   "); err == nil {
		t.Error("expected error for empty URL")
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

// TestMarkProcessed_RepairsCorruptFile tests that a corrupt ledger is replaced on write.
func TestMarkProcessed_RepairsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "processed_urls.json")
	if err := os.WriteFile(path, []byte("[broken"), 0600); err != nil {
		t.Fatalf("failed to write ledger: %v", err)
	}

	l := Open(path, nil)
	if err := l.MarkProcessed("https://homes.example.com/listing/9"); err != nil {
		t.Fatalf("MarkProcessed() error: %v", err)
	}
	if got := readFile(t, path); len(got) != 1 {
		t.Errorf("expected repaired ledger with one URL, got %v", got)
	}
}

// TestURLs tests that URLs returns a copy in insertion order.
func TestURLs(t *testing.T) {
	t.Parallel()

	l := Open(filepath.Join(t.TempDir(), "processed_urls.json"), nil)
	for _, u := range []string{"https://b.test/", "https://a.test/"} {
		if err := l.MarkProcessed(u); err != nil {
			t.Fatalf("MarkProcessed() error: %v", err)
		}
	}

	urls := l.URLs()
	if len(urls) != 2 || urls[0] != "https://b.test/" || urls[1] != "https://a.test/" {
		t.Errorf("URLs() = %v", urls)
	}
	urls[0] = "mutated"
	if l.URLs()[0] != "https://b.test/" {
		t.Error("expected URLs to return a copy")
	}
}

// TestNormalize tests URL normalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://homes.example.com/listing/1", "https://homes.example.com/listing/1"},
		{"  https://homes.example.com/listing/1\n", "https://homes.example.com/listing/1"},
		{"HTTPS://Homes.Example.COM/Listing/1", "https://homes.example.com/Listing/1"},
		{"https://homes.example.com/listing/1#photo-3", "https://homes.example.com/listing/1"},
		{"https://homes.example.com/listing?id=1", "https://homes.example.com/listing?id=1"},
		{"not a url", "not a url"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
