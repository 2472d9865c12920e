package model

import (
	"encoding/hex"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// ListingKeyLength is the number of hex characters kept from the URL digest.
// Eight characters keep file names short while making collisions between
// listings that share an address practically impossible.
const ListingKeyLength = 8

// UnknownAddress is used when a listing page carries no usable title.
const UnknownAddress = "unknown_address"

// Listing represents one listing page and everything derived from it.
type Listing struct {
	// URL is the listing page URL as given on the command line.
	URL string `json:"url"`

	// Key is a short digest of URL. It namespaces image file names so two
	// listings with the same address never overwrite each other.
	Key string `json:"key"`

	// FinalURL is the page URL after redirects. Relative image URLs
	// resolve against it.
	FinalURL string `json:"final_url,omitempty"`

	// Address is the raw address text taken from the page.
	// The organizer sanitizes it before using it as a folder name.
	Address string `json:"address"`

	// Price is the first dollar amount found on the page.
	Price string `json:"price,omitempty"`

	// Description is the og:description text.
	Description string `json:"description,omitempty"`

	// DescriptionMarkdown is the listing's description block converted to Markdown.
	DescriptionMarkdown string `json:"-"`

	// Tags are the labels matched against the description.
	// Images with no tag of their own fall back to these.
	Tags []string `json:"tags,omitempty"`

	// Images are the photos discovered on the page in document order.
	Images []*Image `json:"images,omitempty"`

	// Dir is the address folder the images were written under.
	Dir string `json:"dir,omitempty"`

	// HTML is the raw page body.
	HTML []byte `json:"-"`

	// FetchedAt is when the page was downloaded.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewListing creates a listing for rawURL with its key computed.
func NewListing(rawURL string) *Listing {
	return &Listing{
		URL: rawURL,
		Key: ListingKey(rawURL),
	}
}

// ListingKey returns the first ListingKeyLength hex characters of the
// SHA3-256 digest of rawURL.
func ListingKey(rawURL string) string {
	sum := sha3.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:ListingKeyLength]
}

// SavedImages returns the number of images written to disk.
func (l *Listing) SavedImages() int {
	n := 0
	for _, img := range l.Images {
		if img.Saved() {
			n++
		}
	}
	return n
}

// FailedImages returns the number of images that could not be saved.
func (l *Listing) FailedImages() int {
	n := 0
	for _, img := range l.Images {
		if img.Err != "" {
			n++
		}
	}
	return n
}

// Image is a single photo discovered on a listing page.
type Image struct {
	// Index is the 1-based position of the image on the page.
	Index int `json:"index"`

	// URL is the absolute image URL.
	URL string `json:"url"`

	// Alt is the img alt attribute.
	Alt string `json:"alt,omitempty"`

	// Title is the img title attribute.
	Title string `json:"title,omitempty"`

	// Tags are the labels this image is filed under.
	// Empty means untagged.
	Tags []string `json:"tags,omitempty"`

	// ContentType is the Content-Type of the downloaded body.
	ContentType string `json:"content_type,omitempty"`

	// Converted is true when the body was WebP and re-encoded as JPEG.
	Converted bool `json:"converted,omitempty"`

	// Data holds the bytes written to disk.
	Data []byte `json:"-"`

	// Digest is the SHA3-256 hex digest of Data.
	Digest string `json:"digest,omitempty"`

	// Paths are the files the image was written to, one per tag folder.
	Paths []string `json:"paths,omitempty"`

	// EXIF is the camera metadata found in the image, if any.
	EXIF *EXIFSummary `json:"exif,omitempty"`

	// Err describes why the image was skipped.
	Err string `json:"error,omitempty"`
}

// Saved reports whether the image was written at least once.
func (i *Image) Saved() bool {
	return len(i.Paths) > 0
}

// BaseName returns the unescaped last path element of the image URL,
// or "" when the URL path has none.
func (i *Image) BaseName() string {
	p := i.URL
	if u, err := url.Parse(i.URL); err == nil {
		p = u.Path
	} else if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	return path.Base(p)
}

// MatchText returns the text tags are matched against for this image:
// the file name, alt text and title joined by spaces.
func (i *Image) MatchText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{i.BaseName(), i.Alt, i.Title} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ComputeDigest calculates and sets the SHA3-256 digest of Data.
func (i *Image) ComputeDigest() {
	if len(i.Data) == 0 {
		i.Digest = ""
		return
	}
	sum := sha3.Sum256(i.Data)
	i.Digest = hex.EncodeToString(sum[:])
}

// EXIFSummary is the subset of EXIF metadata shown in listing summaries.
type EXIFSummary struct {
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	DateTime string `json:"date_time,omitempty"`
	HasGPS   bool   `json:"has_gps,omitempty"`
}

// Camera returns make and model joined, avoiding the duplication many
// manufacturers put into the model field.
func (e *EXIFSummary) Camera() string {
	if e == nil {
		return ""
	}
	mk := strings.TrimSpace(e.Make)
	md := strings.TrimSpace(e.Model)
	switch {
	case mk == "":
		return md
	case md == "":
		return mk
	case strings.HasPrefix(strings.ToLower(md), strings.ToLower(mk)):
		return md
	default:
		return mk + " " + md
	}
}

// IsEmpty reports whether no field was found.
func (e *EXIFSummary) IsEmpty() bool {
	return e == nil || (e.Make == "" && e.Model == "" && e.DateTime == "" && !e.HasGPS)
}
