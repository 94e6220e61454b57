package session

import (
	"log/slog"
	"sync"

	"github.com/ashureev/clawdachi/internal/domain"
)

// DefaultQueueSize is the emission channel capacity used when none is given.
const DefaultQueueSize = 100

// Emitter owns the last-known session slot and the emission channel shared
// by every ingestion source.
type Emitter struct {
	mu     sync.Mutex
	last   *domain.Session
	out    chan domain.Session
	logger *slog.Logger
}

// NewEmitter creates an emitter whose channel buffers queueSize records.
func NewEmitter(queueSize int, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Emitter{
		out:    make(chan domain.Session, queueSize),
		logger: logger,
	}
}

// C returns the emission channel.
func (e *Emitter) C() <-chan domain.Session {
	return e.out
}

// Submit runs change detection against the last-known session and, when the
// record is a change, stores it and queues it for the frame loop. The
// compare, store and enqueue happen under one lock so concurrent sources
// cannot reorder the slot and the channel.
//
// Submit never blocks: if the channel is full the record is dropped with a
// warning, but the slot still reflects it.
func (e *Emitter) Submit(s domain.Session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !IsChange(e.last, s) {
		e.logger.Debug("[EMITTER] Duplicate state suppressed",
			"source", s.Source,
			"status", s.Status,
			"session_id", s.SessionID,
		)
		return false
	}

	stored := s
	e.last = &stored

	select {
	case e.out <- s:
		e.logger.Info("[EMITTER] State changed",
			"source", s.Source,
			"status", s.Status,
			"tool_name", s.ToolName,
			"session_id", s.SessionID,
		)
	default:
		e.logger.Warn("[EMITTER] Emission channel full, state dropped",
			"source", s.Source,
			"status", s.Status,
			"channel_len", len(e.out),
		)
	}
	return true
}

// Last returns a copy of the last accepted session.
func (e *Emitter) Last() (domain.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return domain.Session{}, false
	}
	return *e.last, true
}
