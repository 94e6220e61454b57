package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/coder/websocket"
)

// DefaultFeedQueueSize is the feed backlog used when none is given.
const DefaultFeedQueueSize = 64

const (
	feedWriteTimeout = 5 * time.Second
	feedMinBackoff   = 500 * time.Millisecond
	feedMaxBackoff   = 30 * time.Second
)

// Message is one actor command on the wire.
type Message struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	State      string            `json:"state,omitempty"`
	Expression domain.Expression `json:"expression,omitempty"`
	Preset     string            `json:"preset,omitempty"`
	Count      int               `json:"count,omitempty"`
	Text       string            `json:"text,omitempty"`
	At         int64             `json:"at"`
}

// Message types.
const (
	MessageState       = "state"
	MessageBurst       = "burst"
	MessageCaption     = "caption"
	MessageHideCaption = "hide_caption"
)

// Feed streams actor commands as JSON text messages to a WebSocket
// renderer. Commands are queued and never block the frame loop; while the
// renderer is unreachable the oldest queued commands are dropped.
type Feed struct {
	url    string
	queue  chan Message
	seq    atomic.Uint64
	now    func() time.Time
	logger *slog.Logger
}

// NewFeed creates a feed for url. Nothing is dialed until Run.
func NewFeed(url string, queueSize int, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultFeedQueueSize
	}
	return &Feed{
		url:    url,
		queue:  make(chan Message, queueSize),
		now:    time.Now,
		logger: logger,
	}
}

func (f *Feed) ApplyState(state domain.AnimationState, expression domain.Expression) {
	f.enqueue(Message{Type: MessageState, State: state.String(), Expression: expression})
}

func (f *Feed) ApplyBurst(preset string, count int) {
	f.enqueue(Message{Type: MessageBurst, Preset: preset, Count: count})
}

func (f *Feed) ShowCaption(text string) {
	f.enqueue(Message{Type: MessageCaption, Text: text})
}

func (f *Feed) HideCaption() {
	f.enqueue(Message{Type: MessageHideCaption})
}

func (f *Feed) enqueue(m Message) {
	m.Seq = f.seq.Add(1)
	m.At = f.now().UnixMilli()

	select {
	case f.queue <- m:
		return
	default:
	}

	// Full: drop the oldest to make room.
	select {
	case <-f.queue:
		f.logger.Debug("[FEED] Queue full, dropped oldest message")
	default:
	}
	select {
	case f.queue <- m:
	default:
		f.logger.Warn("[FEED] Failed to queue message", "type", m.Type)
	}
}

// Run connects to the renderer and streams queued messages until ctx is
// done, reconnecting with backoff when the connection fails.
func (f *Feed) Run(ctx context.Context) error {
	backoff := feedMinBackoff
	for {
		connected, err := f.stream(ctx)
		if ctx.Err() != nil {
			return nil
		}

		backoff = retryDelay(backoff, connected)
		f.logger.Warn("[FEED] Connection lost, retrying", "url", f.url, "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, feedMaxBackoff)
	}
}

// retryDelay returns the wait before the next dial. A connection that was
// established starts the backoff over.
func retryDelay(current time.Duration, connected bool) time.Duration {
	if connected || current < feedMinBackoff {
		return feedMinBackoff
	}
	return min(current, feedMaxBackoff)
}

// stream reports whether the dial succeeded along with the error that
// ended the connection.
func (f *Feed) stream(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.CloseNow()

	f.logger.Info("[FEED] Connected", "url", f.url)

	// Reads keep the connection's control frames flowing and surface a
	// close from the renderer.
	readCtx := conn.CloseRead(ctx)

	for {
		select {
		case <-ctx.Done():
			if err := conn.Close(websocket.StatusNormalClosure, "shutting down"); err != nil {
				f.logger.Debug("[FEED] Close failed", "error", err)
			}
			return true, ctx.Err()

		case <-readCtx.Done():
			return true, errors.New("renderer closed connection")

		case m := <-f.queue:
			if err := f.write(ctx, conn, m); err != nil {
				f.requeue(m)
				return true, err
			}
		}
	}
}

func (f *Feed) write(ctx context.Context, conn *websocket.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// requeue puts back a message whose write failed, if there is room.
func (f *Feed) requeue(m Message) {
	select {
	case f.queue <- m:
	default:
	}
}
