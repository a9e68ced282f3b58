// Package store keeps a SQLite history of forecast runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// Run is one completed forecast.
type Run struct {
	ID        string    `json:"id"`
	County    string    `json:"county"`
	Mode      string    `json:"mode"`
	Horizon   int       `json:"horizon_months"`
	From      time.Time `json:"from,omitzero"`
	To        time.Time `json:"to,omitzero"`
	Current   float64   `json:"current_total"`
	Projected float64   `json:"projected_total"`
	GrowthPct float64   `json:"growth_pct"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLiteStore persists runs via modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS forecast_runs (
	id          TEXT PRIMARY KEY,
	county      TEXT NOT NULL,
	mode        TEXT NOT NULL,
	horizon     INTEGER NOT NULL,
	range_from  TEXT NOT NULL DEFAULT '',
	range_to    TEXT NOT NULL DEFAULT '',
	current     REAL NOT NULL,
	projected   REAL NOT NULL,
	growth_pct  REAL NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forecast_runs_county ON forecast_runs(county, created_at);
`

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// SaveRun inserts run, assigning an ID and creation time when unset.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forecast_runs (id, county, mode, horizon, range_from, range_to, current, projected, growth_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.County, run.Mode, run.Horizon,
		formatTime(run.From), formatTime(run.To),
		run.Current, run.Projected, run.GrowthPct,
		formatTime(run.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. An empty county lists all.
func (s *SQLiteStore) ListRuns(ctx context.Context, county string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, county, mode, horizon, range_from, range_to, current, projected, growth_pct, created_at
		FROM forecast_runs
		WHERE (? = '' OR county = ?)
		ORDER BY created_at DESC, id
		LIMIT ?`, county, county, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			from, to, created string
		)
		if err := rows.Scan(&r.ID, &r.County, &r.Mode, &r.Horizon, &from, &to,
			&r.Current, &r.Projected, &r.GrowthPct, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.From = parseTime(from)
		r.To = parseTime(to)
		r.CreatedAt = parseTime(created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
