package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/listingdl/internal/model"
)

// FileName is the catalog database file inside the catalog directory.
const FileName = "listingdl.db"

// timeLayout is how timestamps written by this package are stored.
const timeLayout = "2006-01-02 15:04:05"

// Catalog is the download history database.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Options configures Catalog behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ErrNotFound is returned by Open when the database does not exist and
// CreateIfNotExists is false.
var ErrNotFound = errors.New("catalog database not found")

// Open opens or creates the catalog in dbDir.
func Open(dbDir string, opts Options) (*Catalog, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	c := &Catalog{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := c.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return c, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.dbPath
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (c *Catalog) createTables() error {
	schema := `
	-- One row per invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		base_dir TEXT NOT NULL,
		downloaded INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		invalid INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		images_saved INTEGER DEFAULT 0,
		images_failed INTEGER DEFAULT 0,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per saved photo
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		listing_url TEXT NOT NULL,
		listing_key TEXT NOT NULL,
		address TEXT NOT NULL,
		image_url TEXT NOT NULL,
		paths TEXT NOT NULL,
		tags TEXT,
		digest TEXT,
		content_type TEXT,
		size INTEGER,
		converted INTEGER DEFAULT 0,
		camera TEXT,
		taken_at TEXT,
		has_gps INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, image_url)
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_listing ON downloads(listing_url);
	CREATE INDEX IF NOT EXISTS idx_downloads_digest ON downloads(digest);
	CREATE INDEX IF NOT EXISTS idx_downloads_timestamp ON downloads(timestamp);
	`

	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun records the beginning of a run.
func (c *Catalog) StartRun(ctx context.Context, run *model.RunSummary) error {
	query := `
	INSERT INTO runs (id, started_at, base_dir)
	VALUES (?, ?, ?)
	`
	if _, err := c.db.ExecContext(ctx, query, run.RunID, formatTime(run.StartedAt), run.BaseDir); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and the summary of a run.
func (c *Catalog) FinishRun(ctx context.Context, run *model.RunSummary) error {
	summaryJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run summary: %w", err)
	}

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		downloaded = ?,
		skipped = ?,
		invalid = ?,
		failed = ?,
		images_saved = ?,
		images_failed = ?,
		summary_json = ?
	WHERE id = ?
	`
	result, err := c.db.ExecContext(ctx, query,
		formatTime(finished),
		run.Downloaded,
		run.Skipped,
		run.Invalid,
		run.Failed,
		run.ImagesSaved,
		run.ImagesFailed,
		string(summaryJSON),
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: run %s was never started", run.RunID)
	}
	return nil
}

// RunRecord is a stored run.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	BaseDir      string
	Downloaded   int
	Skipped      int
	Invalid      int
	Failed       int
	ImagesSaved  int
	ImagesFailed int
}

// RecentRuns returns up to limit runs, newest first.
func (c *Catalog) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, started_at, finished_at, base_dir, downloaded, skipped, invalid, failed, images_saved, images_failed
	FROM runs
	ORDER BY started_at DESC, rowid DESC
	LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &r.BaseDir, &r.Downloaded, &r.Skipped,
			&r.Invalid, &r.Failed, &r.ImagesSaved, &r.ImagesFailed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		if finished.Valid {
			r.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// DownloadRecord is one saved photo.
type DownloadRecord struct {
	ID          int64
	RunID       string
	ListingURL  string
	ListingKey  string
	Address     string
	ImageURL    string
	Paths       []string
	Tags        []string
	Digest      string
	ContentType string
	Size        int64
	Converted   bool
	Camera      string
	TakenAt     string
	HasGPS      bool
	Timestamp   time.Time
}

// NewDownloadRecord builds a record for a saved image of listing.
func NewDownloadRecord(runID string, listing *model.Listing, img *model.Image) *DownloadRecord {
	rec := &DownloadRecord{
		RunID:       runID,
		ListingURL:  listing.URL,
		ListingKey:  listing.Key,
		Address:     listing.Address,
		ImageURL:    img.URL,
		Paths:       img.Paths,
		Tags:        img.Tags,
		Digest:      img.Digest,
		ContentType: img.ContentType,
		Size:        int64(len(img.Data)),
		Converted:   img.Converted,
	}
	if img.EXIF != nil {
		rec.Camera = img.EXIF.Camera()
		rec.TakenAt = img.EXIF.DateTime
		rec.HasGPS = img.EXIF.HasGPS
	}
	return rec
}

// InsertDownload stores a download record. A second insert for the same
// run and image URL replaces the first.
func (c *Catalog) InsertDownload(ctx context.Context, rec *DownloadRecord) (int64, error) {
	pathsJSON, err := json.Marshal(rec.Paths)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize paths: %w", err)
	}

	query := `
	INSERT INTO downloads (run_id, listing_url, listing_key, address, image_url, paths, tags, digest,
		content_type, size, converted, camera, taken_at, has_gps)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, image_url) DO UPDATE SET
		paths = excluded.paths,
		tags = excluded.tags,
		digest = excluded.digest,
		content_type = excluded.content_type,
		size = excluded.size,
		converted = excluded.converted,
		camera = excluded.camera,
		taken_at = excluded.taken_at,
		has_gps = excluded.has_gps,
		timestamp = CURRENT_TIMESTAMP
	`

	result, err := c.db.ExecContext(ctx, query,
		rec.RunID,
		rec.ListingURL,
		rec.ListingKey,
		rec.Address,
		rec.ImageURL,
		string(pathsJSON),
		strings.Join(rec.Tags, ","),
		rec.Digest,
		rec.ContentType,
		rec.Size,
		boolToInt(rec.Converted),
		rec.Camera,
		rec.TakenAt,
		boolToInt(rec.HasGPS),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert download record: %w", err)
	}

	return result.LastInsertId()
}

// ListDownloads returns the download records of a listing in the order
// they were saved.
func (c *Catalog) ListDownloads(ctx context.Context, listingURL string) ([]DownloadRecord, error) {
	query := `
	SELECT id, run_id, listing_url, listing_key, address, image_url, paths, tags, digest,
		content_type, size, converted, camera, taken_at, has_gps, timestamp
	FROM downloads
	WHERE listing_url = ?
	ORDER BY id
	`

	rows, err := c.db.QueryContext(ctx, query, listingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var records []DownloadRecord
	for rows.Next() {
		var rec DownloadRecord
		var pathsJSON, timestamp string
		var tags, digest, contentType, camera, takenAt sql.NullString
		var converted, hasGPS int

		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.ListingURL, &rec.ListingKey, &rec.Address, &rec.ImageURL,
			&pathsJSON, &tags, &digest, &contentType, &rec.Size, &converted, &camera, &takenAt, &hasGPS,
			&timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}

		if err := json.Unmarshal([]byte(pathsJSON), &rec.Paths); err != nil {
			return nil, fmt.Errorf("failed to parse paths: %w", err)
		}
		if tags.String != "" {
			rec.Tags = strings.Split(tags.String, ",")
		}
		rec.Digest = digest.String
		rec.ContentType = contentType.String
		rec.Camera = camera.String
		rec.TakenAt = takenAt.String
		rec.Converted = converted != 0
		rec.HasGPS = hasGPS != 0
		rec.Timestamp = parseTimestamp(timestamp)

		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListingSummary is one cataloged listing.
type ListingSummary struct {
	ListingURL string
	Address    string
	Images     int
	LastSaved  time.Time
}

// ListListings returns every cataloged listing, most recently saved first.
func (c *Catalog) ListListings(ctx context.Context) ([]ListingSummary, error) {
	query := `
	SELECT listing_url, MAX(address), COUNT(DISTINCT image_url), MAX(timestamp) AS last_saved
	FROM downloads
	GROUP BY listing_url
	ORDER BY last_saved DESC, listing_url
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []ListingSummary
	for rows.Next() {
		var s ListingSummary
		var last string
		if err := rows.Scan(&s.ListingURL, &s.Address, &s.Images, &last); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		s.LastSaved = parseTimestamp(last)
		listings = append(listings, s)
	}

	return listings, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,                // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
