package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultPollInterval is how often the polling watcher stats the file.
const DefaultPollInterval = 250 * time.Millisecond

// pollWatcher detects changes by comparing size and modification time. It
// backs platforms without inotify.
type pollWatcher struct {
	path     string
	interval time.Duration
	events   chan struct{}
	errs     chan error
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once

	// baseline is the stamp taken before the loop starts; writes after
	// construction always differ from it.
	baseline fileStamp
}

func newPollWatcher(dir, name string, interval time.Duration) *pollWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w := &pollWatcher{
		path:     filepath.Join(dir, name),
		interval: interval,
		events:   make(chan struct{}, 1),
		errs:     make(chan error, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.baseline = w.stat()
	go w.loop()
	return w
}

func (w *pollWatcher) Events() <-chan struct{} { return w.events }
func (w *pollWatcher) Errors() <-chan error    { return w.errs }

func (w *pollWatcher) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

type fileStamp struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (w *pollWatcher) stat() fileStamp {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *pollWatcher) loop() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.baseline
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
		}

		current := w.stat()
		if current == last || !current.exists {
			last = current
			continue
		}
		last = current

		select {
		case w.events <- struct{}{}:
		default:
		}
	}
}
