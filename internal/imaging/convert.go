package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // registers the PNG format for image.DecodeConfig
	"net/url"
	"path"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// JPEGQuality is the quality used when re-encoding WebP photos.
const JPEGQuality = 95

// DefaultExtension is used when the image URL has no usable extension.
const DefaultExtension = ".jpg"

var (
	// ErrUndecodable is returned when an image body cannot be decoded.
	ErrUndecodable = errors.New("undecodable image")

	// ErrUnsupportedFormat is returned for bodies that are not JPEG, PNG or
	// WebP, such as HTML error pages served with status 200.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// keptExtensions are written with the extension found in the URL.
var keptExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsWebP reports whether an image body is WebP, judged by the Content-Type
// header, the URL extension or the RIFF/WEBP magic bytes.
func IsWebP(contentType, imageURL string, data []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "image/webp") {
		return true
	}
	if URLExtension(imageURL) == ".webp" {
		return true
	}
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
}

// ToJPEG decodes a WebP body and encodes it as JPEG. Transparent areas
// are flattened onto white.
func ToJPEG(data []byte) ([]byte, error) {
	src, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension to store a non-WebP image under.
// .jpg, .jpeg and .png from the URL are kept, anything else becomes .jpg.
func Extension(imageURL string) string {
	ext := URLExtension(imageURL)
	if keptExtensions[ext] {
		return ext
	}
	return DefaultExtension
}

// URLExtension returns the lower-cased extension of the URL path,
// ignoring any query string or fragment.
func URLExtension(imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		p = u.Path
	} else if idx := strings.IndexAny(p, "?#"); idx >= 0 {
		p = p[:idx]
	}
	return strings.ToLower(path.Ext(p))
}

// Prepare turns a downloaded body into the bytes to write and the extension
// to write them under. converted reports whether a WebP body was re-encoded.
// JPEG and PNG bodies are written unchanged; anything else is rejected with
// ErrUnsupportedFormat.
func Prepare(contentType, imageURL string, data []byte) (out []byte, ext string, converted bool, err error) {
	if IsWebP(contentType, imageURL, data) {
		out, err = ToJPEG(data)
		if err != nil {
			return nil, "", false, err
		}
		return out, DefaultExtension, true, nil
	}

	format, err := DetectFormat(data)
	if err != nil {
		return nil, "", false, err
	}
	return data, formatExtension(format, imageURL), false, nil
}

// DetectFormat returns "jpeg" or "png" for bodies in those formats.
func DetectFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	switch format {
	case "jpeg", "png":
		return format, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// formatExtension keeps the URL extension when it agrees with the decoded
// format, so a PNG served from a .jpg URL is still stored as .png.
func formatExtension(format, imageURL string) string {
	ext := Extension(imageURL)
	if format == "png" {
		return ".png"
	}
	if ext == ".png" {
		return DefaultExtension
	}
	return ext
}
