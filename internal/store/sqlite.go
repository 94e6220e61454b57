package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the history command read while the pet is writing.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		status TEXT NOT NULL,
		tool_name TEXT,
		message TEXT,
		source TEXT NOT NULL,
		animation TEXT NOT NULL,
		expression TEXT NOT NULL,
		produced_at INTEGER NOT NULL,
		applied_at INTEGER NOT NULL,
		stale INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_changes_applied ON changes(applied_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record appends a change.
func (s *SQLiteStore) Record(ctx context.Context, c Change) error {
	query := `
	INSERT INTO changes (run_id, session_id, status, tool_name, message, source,
		animation, expression, produced_at, applied_at, stale)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stale := 0
	if c.Stale {
		stale = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		c.RunID, c.SessionID, string(c.Status), nullable(c.ToolName), nullable(c.Message),
		string(c.Source), c.Animation.String(), string(c.Expression),
		c.ProducedAt.Unix(), c.AppliedAt.UnixMilli(), stale,
	)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// Recent returns up to limit changes, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, run_id, session_id, status, tool_name, message, source,
		       animation, expression, produced_at, applied_at, stale
		FROM changes ORDER BY applied_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var toolName, message sql.NullString
		var status, source, animation, expression string
		var producedAt, appliedAt int64
		var stale int

		if err := rows.Scan(
			&c.ID, &c.RunID, &c.SessionID, &status, &toolName, &message, &source,
			&animation, &expression, &producedAt, &appliedAt, &stale,
		); err != nil {
			return nil, fmt.Errorf("scan change row: %w", err)
		}

		c.Status = domain.Status(status)
		c.ToolName = toolName.String
		c.Message = message.String
		c.Source = domain.Source(source)
		c.Animation, _ = domain.ParseAnimationState(animation)
		c.Expression = domain.Expression(expression)
		c.ProducedAt = time.Unix(producedAt, 0)
		c.AppliedAt = time.UnixMilli(appliedAt)
		c.Stale = stale != 0
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}

	return changes, nil
}

// Prune deletes changes applied before cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM changes WHERE applied_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune changes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
