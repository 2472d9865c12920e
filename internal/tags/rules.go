package tags

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// ErrTagsNotFound is returned by Load when the rules file does not exist.
var ErrTagsNotFound = errors.New("tags file not found")

// Rules is an immutable set of tag labels and their keywords.
type Rules struct {
	labels   []string
	keywords map[string][]string
	raw      map[string][]string
}

// Load reads rules from a JSON file.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided tags path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTagsNotFound, path)
		}
		return nil, fmt.Errorf("failed to read tags %s: %w", path, err)
	}

	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tags %s: %w", path, err)
	}
	return rules, nil
}

// Parse builds rules from the JSON form {"label": ["keyword", ...]}.
func Parse(data []byte) (*Rules, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return New(raw), nil
}

// New builds rules from a label to keywords map. A leading '#' is dropped
// from each keyword and blank keywords are skipped. Blank labels are ignored.
func New(raw map[string][]string) *Rules {
	r := &Rules{
		keywords: make(map[string][]string, len(raw)),
		raw:      make(map[string][]string, len(raw)),
	}

	for label, words := range raw {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		normalized := make([]string, 0, len(words))
		for _, w := range words {
			if n := normalize(strings.TrimLeft(strings.TrimSpace(w), "#")); n != "" {
				normalized = append(normalized, n)
			}
		}

		r.labels = append(r.labels, label)
		r.keywords[label] = normalized
		r.raw[label] = slices.Clone(words)
	}

	slices.Sort(r.labels)
	return r
}

// Labels returns all labels in sorted order.
func (r *Rules) Labels() []string {
	return slices.Clone(r.labels)
}

// Keywords returns the keywords of label as written in the rules file.
func (r *Rules) Keywords(label string) []string {
	return slices.Clone(r.raw[label])
}

// Raw returns the rules as written, keyed by label.
func (r *Rules) Raw() map[string][]string {
	out := make(map[string][]string, len(r.raw))
	for label, words := range r.raw {
		out[label] = slices.Clone(words)
	}
	return out
}

// Len returns the number of labels.
func (r *Rules) Len() int {
	return len(r.labels)
}

// Match returns, sorted, the labels with at least one keyword in text.
func (r *Rules) Match(text string) []string {
	haystack := normalize(text)
	if haystack == "" {
		return nil
	}

	var matched []string
	for _, label := range r.labels {
		for _, kw := range r.keywords[label] {
			if strings.Contains(haystack, kw) {
				matched = append(matched, label)
				break
			}
		}
	}
	return matched
}

// normalize case-folds s and turns every run of characters other than
// letters and digits into a single space, so words never merge.
func normalize(s string) string {
	// A Caser keeps state between calls, so each call gets its own.
	folded := cases.Fold().String(s)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// Write stores raw as an indented JSON rules file.
func Write(path string, raw map[string][]string) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write tags %s: %w", path, err)
	}
	return nil
}
