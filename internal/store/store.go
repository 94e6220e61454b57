// Package store persists the history of applied session changes.
package store

import (
	"context"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
)

// Change is one session change as the companion applied it.
type Change struct {
	ID         int64
	RunID      string
	SessionID  string
	Status     domain.Status
	ToolName   string
	Message    string
	Source     domain.Source
	Animation  domain.AnimationState
	Expression domain.Expression
	ProducedAt time.Time
	AppliedAt  time.Time
	Stale      bool
}

// Repository defines the interface for persisting change history.
type Repository interface {
	// Record appends a change.
	Record(ctx context.Context, c Change) error

	// Recent returns up to limit changes, newest first.
	Recent(ctx context.Context, limit int) ([]Change, error)

	// Prune deletes changes applied before cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
