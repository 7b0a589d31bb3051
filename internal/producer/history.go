package producer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/runger/fzpick/internal/item"
)

// HistoryStore persists confirmed selections in SQLite and serves them
// back as a most-recently-used candidate source. It stores what the user
// picked, never intermediate results.
type HistoryStore struct {
	db *sql.DB
}

// DefaultHistoryPath returns ~/.config/fzpick/history.db.
func DefaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fzpick", "history.db"), nil
}

// OpenHistory opens (creating if needed) the selections database. The
// connection pool is pinned to a single connection; SQLite behaves best
// with one writer.
func OpenHistory(path string) (*HistoryStore, error) {
	if path == "" {
		var err error
		path, err = DefaultHistoryPath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS selections (
	key              TEXT PRIMARY KEY,
	text             TEXT NOT NULL,
	path             TEXT,
	line             INTEGER,
	pick_count       INTEGER NOT NULL DEFAULT 1,
	last_picked_ms   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_selections_last_picked ON selections(last_picked_ms DESC);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close releases the database connection.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// Record upserts one confirmed selection, bumping its pick count and
// recency.
func (h *HistoryStore) Record(ctx context.Context, it *item.Item) error {
	if it == nil {
		return nil
	}
	var path any
	var line any
	if it.Loc != nil {
		path = it.Loc.Path
		line = it.Loc.StartLine
	}
	_, err := h.db.ExecContext(ctx, `
INSERT INTO selections (key, text, path, line, pick_count, last_picked_ms)
VALUES (?, ?, ?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
	text = excluded.text,
	pick_count = pick_count + 1,
	last_picked_ms = excluded.last_picked_ms`,
		it.Key, it.Text, path, line, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("recording selection: %w", err)
	}
	return nil
}

// Recent returns up to limit selections, most recent first.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]item.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := h.db.QueryContext(ctx, `
SELECT key, text, path, line FROM selections
ORDER BY last_picked_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying selections: %w", err)
	}
	defer rows.Close()

	var out []item.Result
	for rows.Next() {
		var (
			key, text string
			path      sql.NullString
			line      sql.NullInt64
		)
		if err := rows.Scan(&key, &text, &path, &line); err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		r := item.Result{Kind: item.KindText, Text: text, Key: key}
		if path.Valid && line.Valid && line.Int64 >= 1 {
			r.Kind = item.KindLocation
			r.Loc = item.NewLocation(path.String, int(line.Int64), 1, 0, 0)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// History adapts the store to the Producer contract: the search string is
// ignored and every stored selection is emitted in MRU order.
type History struct {
	Store *HistoryStore
	Limit int
}

func (p History) Name() string { return "history" }

func (p History) Produce(ctx context.Context, _ string, emit func(item.Result)) error {
	results, err := p.Store.Recent(ctx, p.Limit)
	if err != nil {
		return err
	}
	for _, r := range results {
		emit(r)
	}
	return nil
}
