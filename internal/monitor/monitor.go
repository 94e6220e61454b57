// Package monitor watches the status file written by the agent hooks and
// feeds every settled write through normalization into the emitter.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/clawdachi/internal/clock"
	"github.com/ashureev/clawdachi/internal/domain"
	"github.com/ashureev/clawdachi/internal/session"
)

const (
	// DefaultSettleWindow is how long the file must stay quiet before a
	// read is considered.
	DefaultSettleWindow = 100 * time.Millisecond

	// DefaultDebounceWindow follows the settle window and collapses
	// back-to-back settles into one read.
	DefaultDebounceWindow = 50 * time.Millisecond
)

// WatchError reports a failure of the underlying file watcher. It is never
// retried by the monitor.
type WatchError struct {
	Path string
	Op   string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// Submitter accepts normalized sessions.
type Submitter interface {
	Submit(s domain.Session) bool
}

// watcher reports that the target file may have changed.
type watcher interface {
	Events() <-chan struct{}
	Errors() <-chan error
	Close() error
}

// Config configures a FileMonitor.
type Config struct {
	Path           string
	SettleWindow   time.Duration
	DebounceWindow time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
}

// FileMonitor watches a single status file.
type FileMonitor struct {
	path     string
	settle   time.Duration
	debounce time.Duration
	sink     Submitter
	clock    clock.Clock
	logger   *slog.Logger

	newWatcher func(dir, name string) (watcher, error)

	mu            sync.Mutex
	settleTimer   *clock.Timer
	debounceTimer *clock.Timer
	closed        bool
}

// New creates a monitor that submits sessions read from cfg.Path to sink.
func New(cfg Config, sink Submitter) *FileMonitor {
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = DefaultSettleWindow
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FileMonitor{
		path:       cfg.Path,
		settle:     cfg.SettleWindow,
		debounce:   cfg.DebounceWindow,
		sink:       sink,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		newWatcher: newPlatformWatcher,
	}
}

// Path returns the watched file.
func (m *FileMonitor) Path() string { return m.path }

// Run watches the file until ctx is done. It creates the parent directory
// if needed and processes the existing file once before waiting for
// changes. A watcher failure stops Run with a *WatchError.
func (m *FileMonitor) Run(ctx context.Context) error {
	dir, name := filepath.Split(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WatchError{Path: m.path, Op: "create directory", Err: err}
	}

	w, err := m.newWatcher(filepath.Clean(dir), name)
	if err != nil {
		return &WatchError{Path: m.path, Op: "start watcher", Err: err}
	}
	defer w.Close()
	defer m.cancelTimers()

	m.mu.Lock()
	m.closed = false
	m.mu.Unlock()

	m.logger.Info("[MONITOR] Watching status file", "path", m.path)

	if _, err := os.Stat(m.path); err == nil {
		m.process()
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("[MONITOR] Stopped", "path", m.path)
			return nil
		case <-w.Events():
			m.changed()
		case err := <-w.Errors():
			m.logger.Error("[MONITOR] Watcher failed", "path", m.path, "error", err)
			return &WatchError{Path: m.path, Op: "watch", Err: err}
		}
	}
}

// changed restarts the settle timer. When it fires the debounce timer is
// re-armed, and only the debounce timer reads the file.
func (m *FileMonitor) changed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	if m.settleTimer != nil {
		m.settleTimer.Stop()
	}
	m.settleTimer = m.clock.AfterFunc(m.settle, m.settled)
}

func (m *FileMonitor) settled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.settleTimer = nil
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = m.clock.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		closed := m.closed
		m.debounceTimer = nil
		m.mu.Unlock()
		if !closed {
			m.process()
		}
	})
}

func (m *FileMonitor) cancelTimers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
		m.debounceTimer = nil
	}
}

// process reads the file once and submits the normalized record.
func (m *FileMonitor) process() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Debug("[MONITOR] Status file removed", "path", m.path)
			return
		}
		m.logger.Warn("[MONITOR] Failed to read status file", "path", m.path, "error", err)
		return
	}

	s, err := session.Normalize(data, session.FileOptions())
	if err != nil {
		m.logger.Warn("[MONITOR] Ignoring status file", "path", m.path, "error", err)
		return
	}

	m.sink.Submit(s)
}
