package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nao1215/listingdl/internal/catalog"
	"github.com/nao1215/listingdl/internal/fetcher"
	"github.com/nao1215/listingdl/internal/model"
	"github.com/nao1215/listingdl/internal/tags"
)

// losslessWebP is a 2x2 lossless WebP filled with RGBA(200, 100, 50, 255).
const losslessWebP = "UklGRhwAAABXRUJQVlA4TBAAAAAvAUAAEChZkSvT/wAAAAAA"

const elmStreetPage = `<!DOCTYPE html>
<html><head>
<title>Listing 1 | Homes</title>
<meta property="og:title" content="12 Elm Street">
<meta property="og:description" content="Renovated kitchen and a heated pool">
</head><body>
<p>Offered at $450,000</p>
<img src="/img/kitchen-1.jpg" alt="Kitchen">
<img data-src="/img/front.webp" src="/img/placeholder.gif">
<img src="/img/thumb-small.jpg">
<img src="/img/missing.jpg">
</body></html>`

const twinPage = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="12 Elm Street">
</head><body>
<img src="/img/kitchen-1.jpg" alt="Kitchen">
</body></html>`

// oakRoadPage links an image URL that answers 200 with an HTML error page.
const oakRoadPage = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="3 Oak Road">
</head><body>
<img src="/img/removed.jpg" alt="Kitchen">
</body></html>`

// listingServer serves two listings at the same address, their images and
// a failing page. It counts image requests.
type listingServer struct {
	*httptest.Server

	mu          sync.Mutex
	imageHits   int
	pageHits    int
	jpegFixture []byte
}

func newListingServer(t *testing.T) *listingServer {
	t.Helper()

	webp, err := base64.StdEncoding.DecodeString(losslessWebP)
	if err != nil {
		t.Fatalf("failed to decode WebP fixture: %v", err)
	}

	s := &listingServer{jpegFixture: jpegFixture(t)}

	mux := http.NewServeMux()
	mux.HandleFunc("/listing/1", func(w http.ResponseWriter, _ *http.Request) {
		s.countPage()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, elmStreetPage)
	})
	mux.HandleFunc("/listing/2", func(w http.ResponseWriter, _ *http.Request) {
		s.countPage()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, twinPage)
	})
	mux.HandleFunc("/listing/3", func(w http.ResponseWriter, _ *http.Request) {
		s.countPage()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, oakRoadPage)
	})
	mux.HandleFunc("/listing/gone", func(w http.ResponseWriter, _ *http.Request) {
		s.countPage()
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/img/kitchen-1.jpg", func(w http.ResponseWriter, _ *http.Request) {
		s.countImage()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(s.jpegFixture)
	})
	mux.HandleFunc("/img/front.webp", func(w http.ResponseWriter, _ *http.Request) {
		s.countImage()
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write(webp)
	})
	mux.HandleFunc("/img/removed.jpg", func(w http.ResponseWriter, _ *http.Request) {
		s.countImage()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>This photo is no longer available</body></html>")
	})
	mux.HandleFunc("/img/missing.jpg", func(w http.ResponseWriter, r *http.Request) {
		s.countImage()
		http.NotFound(w, r)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *listingServer) countPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageHits++
}

func (s *listingServer) countImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageHits++
}

func (s *listingServer) hits() (pages, images int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageHits, s.imageHits
}

func jpegFixture(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode JPEG fixture: %v", err)
	}
	return buf.Bytes()
}

func newTestClient(t *testing.T) *fetcher.Client {
	t.Helper()

	client, err := fetcher.NewClient(fetcher.WithDelay(0))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func testRules() *tags.Rules {
	return tags.New(map[string][]string{
		"kitchen":  {"kitchen"},
		"pool":     {"#pool"},
		"exterior": {"front", "facade"},
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRecorder is an in-memory Recorder.
type fakeRecorder struct {
	mu        sync.Mutex
	started   []string
	finished  []*model.RunSummary
	downloads []*catalog.DownloadRecord
}

func (f *fakeRecorder) StartRun(_ context.Context, run *model.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, run.RunID)
	return nil
}

func (f *fakeRecorder) FinishRun(_ context.Context, run *model.RunSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeRecorder) InsertDownload(_ context.Context, rec *catalog.DownloadRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, rec)
	return int64(len(f.downloads)), nil
}
