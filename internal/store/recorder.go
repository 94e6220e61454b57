package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/clawdachi/internal/shared"
)

// DefaultRecorderQueueSize is the recorder backlog used when none is given.
const DefaultRecorderQueueSize = 256

const (
	writeTimeout    = 5 * time.Second
	writeAttempts   = 3
	writeRetryDelay = 50 * time.Millisecond
	closeTimeout    = 5 * time.Second
)

// Recorder writes changes to a Repository in the background so the frame
// loop never waits on disk.
type Recorder struct {
	repo   Repository
	queue  chan Change
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts a recorder with a queue of queueSize changes.
func NewRecorder(repo Repository, queueSize int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultRecorderQueueSize
	}

	r := &Recorder{
		repo:   repo,
		queue:  make(chan Change, queueSize),
		logger: logger,
	}
	r.wg.Add(1)
	go r.process()
	return r
}

// Record queues c. When the queue is full the oldest queued change is
// dropped to make room. It reports false once the recorder is closed.
func (r *Recorder) Record(c Change) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	select {
	case r.queue <- c:
		return true
	default:
	}

	r.logger.Warn("[HISTORY] Queue full, dropping oldest change", "queue_len", len(r.queue))
	select {
	case <-r.queue:
	default:
	}
	select {
	case r.queue <- c:
		return true
	default:
		r.logger.Warn("[HISTORY] Failed to queue change", "session_id", c.SessionID)
		return false
	}
}

func (r *Recorder) process() {
	defer r.wg.Done()

	for c := range r.queue {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := shared.RetryOnConflict(ctx, writeAttempts, writeRetryDelay, func() error {
			return r.repo.Record(ctx, c)
		})
		cancel()

		if err != nil {
			r.logger.Error("[HISTORY] Failed to record change", "session_id", c.SessionID, "status", c.Status, "error", err)
			continue
		}
		if d := time.Since(start); d > 100*time.Millisecond {
			r.logger.Warn("[HISTORY] Slow history write", "duration_ms", d.Milliseconds())
		}
	}
}

// Close stops accepting changes and waits for the backlog to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return shared.ErrClosed
	}
	r.closed = true
	remaining := len(r.queue)
	close(r.queue)
	r.mu.Unlock()

	r.logger.Info("[HISTORY] Closing recorder", "queue_remaining", remaining)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(closeTimeout):
		r.logger.Warn("[HISTORY] Recorder shutdown timeout")
	}
	return nil
}
