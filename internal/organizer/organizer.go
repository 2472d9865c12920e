package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nao1215/listingdl/internal/config"
	"github.com/nao1215/listingdl/internal/model"
)

const (
	// UntaggedDir holds images that matched no tag.
	UntaggedDir = "untagged"

	// FallbackName is used when an address sanitizes to nothing.
	FallbackName = "listing"

	// FallbackStem is used when an image URL has no usable file name.
	FallbackStem = "img"

	// MaxNameLength caps a sanitized path element, in runes.
	MaxNameLength = 100

	// maxStemLength caps the image stem inside a file name.
	maxStemLength = 40
)

var (
	forbiddenChars = regexp.MustCompile(`[\\/:*?<>|]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Sanitize turns free text into a single safe path element: path and shell
// metacharacters become underscores, whitespace runs collapse to one
// underscore and the result is capped at MaxNameLength runes. Text that
// sanitizes to nothing, "." or ".." yields FallbackName.
func Sanitize(text string) string {
	s := forbiddenChars.ReplaceAllString(text, "_")
	s = whitespaceRuns.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return '_'
		}
		return r
	}, s)

	if runes := []rune(s); len(runes) > MaxNameLength {
		s = string(runes[:MaxNameLength])
	}

	if strings.Trim(s, "._") == "" {
		return FallbackName
	}
	return s
}

// Dir returns base/address/tag with address and tag sanitized.
// An empty tag selects UntaggedDir.
func Dir(base, address, tag string) string {
	if strings.TrimSpace(tag) == "" {
		tag = UntaggedDir
	}
	return filepath.Join(base, Sanitize(address), Sanitize(tag))
}

// AddressDir returns base/address.
func AddressDir(base, address string) string {
	return filepath.Join(base, Sanitize(address))
}

// FileName returns NNN_stem_key.ext for the index-th image of a listing.
// The stem is the sanitized image file name without extension.
func FileName(listingKey string, index int, imageURL, ext string) string {
	stem := imageStem(imageURL)
	return fmt.Sprintf("%03d_%s_%s%s", index, stem, listingKey, ext)
}

func imageStem(imageURL string) string {
	base := (&model.Image{URL: imageURL}).BaseName()
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.TrimSpace(stem) == "" {
		return FallbackStem
	}

	stem = Sanitize(stem)
	if stem == FallbackName {
		return FallbackStem
	}
	if runes := []rune(stem); len(runes) > maxStemLength {
		stem = string(runes[:maxStemLength])
	}
	return stem
}

// Write creates dir if needed and writes data to dir/name atomically.
// It returns the written path.
func Write(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := config.WriteFileAtomic(path, data, 0o644); err != nil { //nolint:gosec // photos are meant to be shared
		return "", err
	}
	return path, nil
}

// Place writes an image under every tag folder of img, or under UntaggedDir
// when it has no tags. The first copy is written normally; the others are
// hard links to it, falling back to a copy where linking is not possible.
// It returns every path written.
func Place(base string, listing *model.Listing, img *model.Image, ext string, data []byte) ([]string, error) {
	tags := img.Tags
	if len(tags) == 0 {
		tags = []string{""}
	}

	name := FileName(listing.Key, img.Index, img.URL, ext)
	paths := make([]string, 0, len(tags))

	first, err := Write(Dir(base, listing.Address, tags[0]), name, data)
	if err != nil {
		return nil, err
	}
	paths = append(paths, first)

	for _, tag := range tags[1:] {
		dir := Dir(base, listing.Address, tag)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return paths, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		target := filepath.Join(dir, name)
		if err := link(first, target); err != nil {
			return paths, err
		}
		paths = append(paths, target)
	}

	return paths, nil
}

// link hard-links src to dst, replacing dst, or copies when the file
// system refuses the link.
func link(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src) //nolint:gosec // src was just written by Place
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return config.WriteFileAtomic(dst, data, 0o644) //nolint:gosec // photos are meant to be shared
}
