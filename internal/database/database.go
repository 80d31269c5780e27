package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"imagelite/internal/logging"
	"imagelite/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when no artifact is recorded for a cache path.
var ErrNotFound = errors.New("artifact not recorded")

// Artifact is one manifest row.
type Artifact struct {
	CachePath   string
	SourcePath  string
	Strategy    string
	Width       int
	Height      int
	Format      string
	Bytes       int64
	GeneratedAt time.Time
	Generations int
}

// StrategyStats aggregates the artifacts produced by one strategy.
type StrategyStats struct {
	Strategy  string
	Artifacts int
	Bytes     int64
}

// Stats summarises the manifest.
type Stats struct {
	Artifacts   int
	Sources     int
	TotalBytes  int64
	Generations int
	Oldest      time.Time
	Newest      time.Time
	ByStrategy  []StrategyStats
}

// Database is the artifact manifest.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New opens (creating if needed) the manifest at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Manifest path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Manifest permission diagnostics: %v", err)
	}

	// busy_timeout keeps concurrent writers from failing with "database is locked"
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close manifest after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to manifest: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close manifest after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize manifest schema: %w", err)
	}

	logging.Debug("Manifest initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		cache_path TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		strategy TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		format TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		generated_at INTEGER NOT NULL,
		generations INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_source ON artifacts(source_path);
	CREATE INDEX IF NOT EXISTS idx_artifacts_generated ON artifacts(generated_at);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Path returns the manifest file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// RecordArtifact inserts a row for a freshly written artifact, or bumps the
// generation count of an existing one.
func (d *Database) RecordArtifact(ctx context.Context, a Artifact) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_artifact", start, err) }()

	if a.CachePath == "" {
		err = fmt.Errorf("record artifact: empty cache path")
		return err
	}
	if a.GeneratedAt.IsZero() {
		a.GeneratedAt = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO artifacts (cache_path, source_path, strategy, width, height, format, bytes, generated_at, generations)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	ON CONFLICT(cache_path) DO UPDATE SET
		source_path = excluded.source_path,
		strategy = excluded.strategy,
		width = excluded.width,
		height = excluded.height,
		format = excluded.format,
		bytes = excluded.bytes,
		generated_at = excluded.generated_at,
		generations = artifacts.generations + 1
	`,
		a.CachePath,
		a.SourcePath,
		a.Strategy,
		a.Width,
		a.Height,
		a.Format,
		a.Bytes,
		a.GeneratedAt.Unix(),
	)
	return err
}

// GetArtifact returns the row for cachePath, or ErrNotFound.
func (d *Database) GetArtifact(ctx context.Context, cachePath string) (*Artifact, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_artifact", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a Artifact
	var generatedAt int64
	err = d.db.QueryRowContext(ctx, `
	SELECT cache_path, source_path, strategy, width, height, format, bytes, generated_at, generations
	FROM artifacts WHERE cache_path = ?
	`, cachePath).Scan(
		&a.CachePath, &a.SourcePath, &a.Strategy, &a.Width, &a.Height,
		&a.Format, &a.Bytes, &generatedAt, &a.Generations,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// a miss is not a query failure
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.GeneratedAt = time.Unix(generatedAt, 0)
	return &a, nil
}

// Stats summarises every recorded artifact and refreshes the artifact gauge.
func (d *Database) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s Stats
	var oldest, newest sql.NullInt64
	err = d.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COUNT(DISTINCT source_path), COALESCE(SUM(bytes), 0),
		COALESCE(SUM(generations), 0), MIN(generated_at), MAX(generated_at)
	FROM artifacts
	`).Scan(&s.Artifacts, &s.Sources, &s.TotalBytes, &s.Generations, &oldest, &newest)
	if err != nil {
		return Stats{}, err
	}
	if oldest.Valid {
		s.Oldest = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		s.Newest = time.Unix(newest.Int64, 0)
	}

	rows, err := d.db.QueryContext(ctx, `
	SELECT strategy, COUNT(*), COALESCE(SUM(bytes), 0)
	FROM artifacts GROUP BY strategy ORDER BY strategy
	`)
	if err != nil {
		return Stats{}, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	for rows.Next() {
		var ss StrategyStats
		if err = rows.Scan(&ss.Strategy, &ss.Artifacts, &ss.Bytes); err != nil {
			return Stats{}, err
		}
		s.ByStrategy = append(s.ByStrategy, ss)
	}
	if err = rows.Err(); err != nil {
		return Stats{}, err
	}

	metrics.ManifestArtifacts.Set(float64(s.Artifacts))
	return s, nil
}

// recordQuery records manifest query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ManifestQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.ManifestQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks the manifest directory and WAL files
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat manifest directory: %w", err)
	}

	logging.Debug("Manifest directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("manifest directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Manifest file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Manifest file %s is read-only (mode %v)", path, info.Mode())
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				logging.Error("Failed to fix manifest file permissions: %v", chmodErr)
			} else {
				logging.Info("Fixed permissions on %s", path)
			}
		}
	}

	return nil
}
