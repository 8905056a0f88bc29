// Package history persists published captions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/soocke/lipread-go/domain/pipeline"
)

const defaultRecentLimit = 50

// Entry is one stored caption.
type Entry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is a SQLite-backed caption log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file and schema if needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of the sink path.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS captions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		original TEXT NOT NULL,
		translated TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_captions_created ON captions(created_at);
	`)
	return err
}

// Save stores e, filling ID and CreatedAt when unset.
func (s *Store) Save(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO captions (id, session_id, original, translated, confidence, source, target, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Original, e.Translated, e.Confidence, e.Source, e.Target, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("save caption: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, original, translated, confidence, source, target, created_at
		 FROM captions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query captions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Original, &e.Translated, &e.Confidence, &e.Source, &e.Target, &created); err != nil {
			return nil, fmt.Errorf("scan caption: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM captions`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// Sink returns a result callback that stores every published caption.
// Empty events are ignored.
func (s *Store) Sink() func(pipeline.Event) {
	return func(ev pipeline.Event) {
		if ev.Kind != pipeline.EventResult {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := s.Save(ctx, Entry{
			SessionID:  ev.SessionID,
			Original:   ev.Original,
			Translated: ev.Translated,
			Confidence: ev.Confidence,
			Source:     ev.Source,
			Target:     ev.Target,
			CreatedAt:  ev.At,
		})
		if err != nil && s.logger != nil {
			s.logger.Error("history save failed", "error", err)
		}
	}
}
