// Package journal keeps a SQLite record of pointing requests and their outcomes.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/star/starseeker/internal/config"
)

// Entry is one recorded request.
type Entry struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"` // http, voice, cli
	Transcript  string    `json:"transcript,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Outcome     string    `json:"outcome"`
	RAHours     float64   `json:"ra_hours"`
	DecDeg      float64   `json:"dec_deg"`
	AzimuthDeg  float64   `json:"azimuth_deg"`
	AltitudeDeg float64   `json:"altitude_deg"`
	MountAzDeg  float64   `json:"mount_azimuth_deg"`
	MountAltDeg float64   `json:"mount_altitude_deg"`
	SinkStatus  int       `json:"sink_status,omitempty"`
	TraceID     string    `json:"trace_id,omitempty"`
}

// Store is the journal. A disabled store accepts writes and returns nothing.
type Store struct {
	db    *sql.DB
	cfg   config.JournalConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the journal according to cfg.
func Open(ctx context.Context, cfg config.JournalConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("journal prune on start failed", "component", "journal", "error", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at INTEGER NOT NULL,
    source TEXT NOT NULL,
    transcript TEXT,
    name TEXT,
    category TEXT,
    outcome TEXT NOT NULL,
    ra_hours REAL,
    dec_deg REAL,
    azimuth_deg REAL,
    altitude_deg REAL,
    mount_azimuth_deg REAL,
    mount_altitude_deg REAL,
    sink_status INTEGER,
    trace_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Enabled reports whether entries are persisted.
func (s *Store) Enabled() bool { return s.db != nil }

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record writes e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests(created_at, source, transcript, name, category, outcome,
		     ra_hours, dec_deg, azimuth_deg, altitude_deg, mount_azimuth_deg, mount_altitude_deg,
		     sink_status, trace_id)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt.UTC().UnixNano(), e.Source, e.Transcript, e.Name, e.Category, e.Outcome,
		e.RAHours, e.DecDeg, e.AzimuthDeg, e.AltitudeDeg, e.MountAzDeg, e.MountAltDeg,
		e.SinkStatus, e.TraceID)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, transcript, name, category, outcome,
		        ra_hours, dec_deg, azimuth_deg, altitude_deg, mount_azimuth_deg, mount_altitude_deg,
		        sink_status, trace_id
		 FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		var transcript, traceID sql.NullString
		var sink sql.NullInt64
		if err := rows.Scan(&e.ID, &created, &e.Source, &transcript, &e.Name, &e.Category, &e.Outcome,
			&e.RAHours, &e.DecDeg, &e.AzimuthDeg, &e.AltitudeDeg, &e.MountAzDeg, &e.MountAltDeg,
			&sink, &traceID); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		e.Transcript = transcript.String
		e.TraceID = traceID.String
		e.SinkStatus = int(sink.Int64)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune drops entries older than the retention window and trims the table
// to the newest max_entries rows.
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, cutoff.UTC().UnixNano()); err != nil {
			return err
		}
	}
	if s.cfg.MaxEntries > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM requests WHERE id IN (
			SELECT id FROM requests ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxEntries)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
