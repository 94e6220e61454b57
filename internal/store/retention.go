package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/clawdachi/internal/shared"
)

const (
	// DefaultRetention is how long history is kept.
	DefaultRetention = 7 * 24 * time.Hour

	retentionInterval = time.Hour
	pruneAttempts     = 3
	pruneRetryDelay   = 100 * time.Millisecond
)

// StartRetentionWorker prunes history older than retention once at start
// and then every interval until ctx is done.
func StartRetentionWorker(ctx context.Context, repo Repository, retention, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = retentionInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.Info("[HISTORY] Retention worker started", "interval", interval, "retention", retention)

		pruneExpired(ctx, repo, retention, time.Now, logger)
		for {
			select {
			case <-ticker.C:
				pruneExpired(ctx, repo, retention, time.Now, logger)
			case <-ctx.Done():
				logger.Info("[HISTORY] Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneExpired(ctx context.Context, repo Repository, retention time.Duration, now func() time.Time, logger *slog.Logger) int64 {
	if logger == nil {
		logger = slog.Default()
	}
	cutoff := now().Add(-retention)

	var deleted int64
	err := shared.RetryOnConflict(ctx, pruneAttempts, pruneRetryDelay, func() error {
		n, err := repo.Prune(ctx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("[HISTORY] Prune canceled", "error", err)
			return 0
		}
		logger.Error("[HISTORY] Failed to prune history", "error", err)
		return 0
	}

	if deleted > 0 {
		logger.Info("[HISTORY] Pruned old changes", "count", deleted, "cutoff", cutoff)
	}
	return deleted
}
