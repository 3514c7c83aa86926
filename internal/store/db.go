package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trend-pipeline/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT NOT NULL,
	source TEXT NOT NULL,
	kind TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	points INTEGER NOT NULL,
	groups_count INTEGER NOT NULL,
	quality TEXT,
	error TEXT,
	PRIMARY KEY (id, source)
);
CREATE TABLE IF NOT EXISTS points (
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	group_key TEXT NOT NULL,
	date DATETIME NOT NULL,
	value REAL NOT NULL,
	count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS series (
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	group_key TEXT NOT NULL,
	bucket TEXT NOT NULL,
	date DATETIME NOT NULL,
	value REAL NOT NULL,
	kind TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS trends (
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	group_key TEXT NOT NULL,
	slope REAL,
	intercept REAL,
	offsets TEXT,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_series_run ON series (run_id, source, group_key);
CREATE INDEX IF NOT EXISTS idx_trends_run ON trends (run_id, source);
`

// DB is the SQLite export sink. Each run is written once and only read
// back by the HTTP API.
type DB struct {
	db *sql.DB
}

// Open connects to the SQLite database at path and creates the tables.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (s *DB) Close() error { return s.db.Close() }

// Present stores every result of a run in one transaction.
func (s *DB) Present(ctx context.Context, results []model.SourceResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range results {
		if err := saveResult(ctx, tx, r); err != nil {
			return fmt.Errorf("save %s: %w", r.Source, err)
		}
	}
	return tx.Commit()
}

func saveResult(ctx context.Context, tx *sql.Tx, r model.SourceResult) error {
	quality, err := json.Marshal(r.Quality)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, kind, started_at, duration_ms, points, groups_count, quality, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Source, r.Kind, r.StartedAt.UTC(), r.Duration.Milliseconds(), len(r.Points), len(r.Groups), string(quality), r.Error,
	); err != nil {
		return err
	}

	pointStmt, err := tx.PrepareContext(ctx, `INSERT INTO points (run_id, source, group_key, date, value, count) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()
	for _, p := range r.Points {
		if _, err := pointStmt.ExecContext(ctx, r.RunID, r.Source, p.GroupKey.String(), p.Date.UTC(), p.Value, p.Count); err != nil {
			return err
		}
	}

	seriesStmt, err := tx.PrepareContext(ctx, `INSERT INTO series (run_id, source, group_key, bucket, date, value, kind) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer seriesStmt.Close()
	trendStmt, err := tx.PrepareContext(ctx, `INSERT INTO trends (run_id, source, group_key, slope, intercept, offsets, error) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer trendStmt.Close()

	for _, g := range r.Groups {
		key := g.GroupKey.String()
		for _, p := range g.Series.Points {
			if _, err := seriesStmt.ExecContext(ctx, r.RunID, r.Source, key, string(g.Series.Bucket), p.Date.UTC(), p.Value, string(p.Kind)); err != nil {
				return err
			}
		}

		var slope, intercept sql.NullFloat64
		var offsets sql.NullString
		if g.Model != nil {
			slope = sql.NullFloat64{Float64: g.Model.Slope, Valid: true}
			intercept = sql.NullFloat64{Float64: g.Model.Intercept, Valid: true}
			b, err := json.Marshal(g.Model.Offsets)
			if err != nil {
				return err
			}
			offsets = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := trendStmt.ExecContext(ctx, r.RunID, r.Source, key, slope, intercept, offsets, g.Err); err != nil {
			return err
		}
	}
	return nil
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Sources   int       `json:"sources"`
	Failed    int       `json:"failed"`
}

// SourceSummary describes one source of a stored run.
type SourceSummary struct {
	Source     string              `json:"source"`
	Kind       string              `json:"kind"`
	StartedAt  time.Time           `json:"started_at"`
	DurationMS int64               `json:"duration_ms"`
	Points     int                 `json:"points"`
	Groups     int                 `json:"groups"`
	Quality    *model.QualityNotes `json:"quality,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// RunDetail is a stored run with its sources.
type RunDetail struct {
	ID      string          `json:"id"`
	Sources []SourceSummary `json:"sources"`
}

// Trend is a stored per-group fit.
type Trend struct {
	Source   string            `json:"source"`
	GroupKey model.GroupKey    `json:"group_key"`
	Model    *model.TrendModel `json:"model,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// SeriesFilter narrows a series query. Empty fields match everything.
type SeriesFilter struct {
	Source   string
	GroupKey string
}

// ListRuns returns all runs, newest first.
func (s *DB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, MIN(started_at), COUNT(*), SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END)
		FROM runs GROUP BY id ORDER BY MIN(started_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Sources, &r.Failed); err != nil {
			return nil, err
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches every source of one run.
func (s *DB) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, kind, started_at, duration_ms, points, groups_count, quality, error
		FROM runs WHERE id = ? ORDER BY source`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail := &RunDetail{ID: runID}
	for rows.Next() {
		var src SourceSummary
		var quality sql.NullString
		if err := rows.Scan(&src.Source, &src.Kind, &src.StartedAt, &src.DurationMS, &src.Points, &src.Groups, &quality, &src.Error); err != nil {
			return nil, err
		}
		if quality.Valid && quality.String != "" && quality.String != "null" {
			src.Quality = &model.QualityNotes{}
			if err := json.Unmarshal([]byte(quality.String), src.Quality); err != nil {
				return nil, err
			}
		}
		detail.Sources = append(detail.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(detail.Sources) == 0 {
		return nil, ErrNotFound
	}
	return detail, nil
}

// GetSeries returns the combined series of a run, one entry per source and
// group.
func (s *DB) GetSeries(ctx context.Context, runID string, f SeriesFilter) ([]SourceSeries, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, group_key, bucket, date, value, kind FROM series
		WHERE run_id = ? AND (? = '' OR source = ?) AND (? = '' OR group_key = ?)
		ORDER BY source, group_key, date, CASE kind WHEN 'actual' THEN 0 ELSE 1 END`,
		runID, f.Source, f.Source, f.GroupKey, f.GroupKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SourceSeries{}
	for rows.Next() {
		var source, key, bucket, kind string
		var p model.SeriesPoint
		if err := rows.Scan(&source, &key, &bucket, &p.Date, &p.Value, &kind); err != nil {
			return nil, err
		}
		p.Kind = model.PointKind(kind)
		if n := len(out); n == 0 || out[n-1].Source != source || out[n-1].Series.GroupKey.String() != key {
			out = append(out, SourceSeries{
				Source: source,
				Series: model.CombinedSeries{GroupKey: model.ParseGroupKey(key), Bucket: model.Bucket(bucket)},
			})
		}
		last := &out[len(out)-1]
		last.Series.Points = append(last.Series.Points, p)
	}
	return out, rows.Err()
}

// SourceSeries is a combined series tagged with its source.
type SourceSeries struct {
	Source string               `json:"source"`
	Series model.CombinedSeries `json:"series"`
}

// GetTrends returns the per-group fits of a run.
func (s *DB) GetTrends(ctx context.Context, runID string) ([]Trend, error) {
	if err := s.exists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, group_key, slope, intercept, offsets, error FROM trends
		WHERE run_id = ? ORDER BY source, group_key`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Trend{}
	for rows.Next() {
		var t Trend
		var key string
		var slope, intercept sql.NullFloat64
		var offsets sql.NullString
		if err := rows.Scan(&t.Source, &key, &slope, &intercept, &offsets, &t.Error); err != nil {
			return nil, err
		}
		t.GroupKey = model.ParseGroupKey(key)
		if slope.Valid {
			t.Model = &model.TrendModel{Slope: slope.Float64, Intercept: intercept.Float64}
			if offsets.Valid {
				if err := json.Unmarshal([]byte(offsets.String), &t.Model.Offsets); err != nil {
					return nil, err
				}
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *DB) exists(ctx context.Context, runID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlite returns aggregate DATETIME columns as text.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
