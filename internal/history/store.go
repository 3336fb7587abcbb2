package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/voxpipe/voxpipe/internal/config"
	_ "modernc.org/sqlite"
)

// Record is one served synthesis request.
type Record struct {
	ID          int64
	Voice       string
	TextPreview string
	Flags       uint32
	Chunks      int
	Duration    time.Duration
	ErrorCode   uint32
	CreatedAt   time.Time
}

// Store keeps a SQLite-backed log of served requests. A disabled store is a
// valid no-op value.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the request history according to config.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if !cfg.Enabled {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
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
		return nil, err
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    voice TEXT,
    text_preview TEXT,
    flags INTEGER NOT NULL DEFAULT 0,
    chunks INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    error_code INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes one request record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if !s.cfg.Enabled || s.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests(voice, text_preview, flags, chunks, duration_ms, error_code, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.Voice, rec.TextPreview, rec.Flags, rec.Chunks, rec.Duration.Milliseconds(), rec.ErrorCode, rec.CreatedAt)
	return err
}

// ListRecent retrieves up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if !s.cfg.Enabled || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, voice, text_preview, flags, chunks, duration_ms, error_code, created_at
		 FROM requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var durationMS int64
		var created string
		if err := rows.Scan(&r.ID, &r.Voice, &r.TextPreview, &r.Flags, &r.Chunks, &durationMS, &r.ErrorCode, &created); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune applies configured retention by age and by row count.
func (s *Store) Prune(ctx context.Context) error {
	if !s.cfg.Enabled || s.db == nil {
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
		if _, err = tx.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRows > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM requests WHERE id IN (
			SELECT id FROM requests ORDER BY id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRows)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
