package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/nao1215/listingdl/internal/report"
)

const cottagePage = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="7 Harbor Lane">
<meta property="og:description" content="Sunny cottage with a big kitchen">
</head><body>
<p>Price: $329,000</p>
<img src="/img/kitchen.jpg" alt="Kitchen">
<img src="/img/garden.jpg" alt="Back garden">
</body></html>`

// portal serves one listing page and its two photos.
type portal struct {
	*httptest.Server
	imageHits atomic.Int64
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	photo := testJPEG(t)
	p := &portal{}

	mux := http.NewServeMux()
	mux.HandleFunc("/listing/cottage", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, cottagePage)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, _ *http.Request) {
		p.imageHits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(photo)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: 90, G: 160, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// workspace is a throwaway set of directories for one CLI invocation.
type workspace struct {
	base     string
	state    string
	db       string
	tags     string
	siteConf string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	dir := t.TempDir()
	ws := &workspace{
		base:     filepath.Join(dir, "photos"),
		state:    filepath.Join(dir, "state"),
		db:       filepath.Join(dir, "db"),
		tags:     filepath.Join(dir, "tags.json"),
		siteConf: filepath.Join(dir, ".listingdl"),
	}

	rules := `{"kitchen": ["kitchen"], "yard": ["garden", "#yard"]}`
	if err := os.WriteFile(ws.tags, []byte(rules), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.siteConf, []byte("sites: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return ws
}

// args returns the flags that point a run at ws.
func (ws *workspace) args(extra ...string) []string {
	args := []string{
		"-b", ws.base,
		"-s", ws.state,
		"-t", ws.tags,
		"-c", ws.siteConf,
		"--db-dir", ws.db,
		"-d", "0",
	}
	return append(args, extra...)
}

// executeRoot runs the root command and returns stdout.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func decodeRunReport(t *testing.T, out string) *report.JSONReport {
	t.Helper()

	var r report.JSONReport
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("failed to decode JSON report: %v\n%s", err, out)
	}
	if r.Run == nil {
		t.Fatalf("JSON report has no run: %s", out)
	}
	return &r
}
