// Package imaging inspects and converts downloaded listing photos.
//
// Listing portals increasingly serve WebP. Photos are stored as JPEG so
// that every viewer can open them, which means WebP bodies are decoded and
// re-encoded. Other formats are written unchanged. The package also reads
// a small EXIF summary (camera and capture time) for listing summaries.
package imaging
