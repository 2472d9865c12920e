package imaging

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/listingdl/internal/model"
)

// ReadEXIF extracts a camera and capture time summary from image bytes.
// It returns nil when the image carries no EXIF block or the block cannot
// be parsed; missing metadata is normal for portal photos.
func ReadEXIF(data []byte) *model.EXIFSummary {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	summary := &model.EXIFSummary{}
	for _, entry := range entries {
		value := strings.TrimSpace(strings.Trim(entry.Formatted, "\x00"))

		switch entry.TagName {
		case "Make":
			summary.Make = value
		case "Model":
			summary.Model = value
		case "DateTimeOriginal":
			summary.DateTime = value
		case "DateTime":
			if summary.DateTime == "" {
				summary.DateTime = value
			}
		case "GPSLatitude", "GPSLongitude":
			summary.HasGPS = true
		}
	}

	if summary.IsEmpty() {
		return nil
	}
	return summary
}
