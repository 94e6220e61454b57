//go:build linux

package monitor

import (
	"encoding/binary"
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_CREATE | unix.IN_MODIFY

// inotifyWatcher watches the parent directory rather than the file, so an
// atomic rename replacing the file is seen as well as in-place writes.
type inotifyWatcher struct {
	fd     int
	name   string
	events chan struct{}
	errs   chan error
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newPlatformWatcher(dir, name string) (watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, err
	}
	if _, err := unix.InotifyAddWatch(fd, dir, inotifyMask); err != nil {
		unix.Close(fd)
		return nil, err
	}

	w := &inotifyWatcher{
		fd:     fd,
		name:   name,
		events: make(chan struct{}, 1),
		errs:   make(chan error, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *inotifyWatcher) Events() <-chan struct{} { return w.events }
func (w *inotifyWatcher) Errors() <-chan error    { return w.errs }

func (w *inotifyWatcher) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

// loop polls the inotify fd with a 100ms timeout so stop is noticed
// promptly.
func (w *inotifyWatcher) loop() {
	defer close(w.done)
	defer unix.Close(w.fd)

	buf := make([]byte, 4096)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			w.fail(err)
			return
		}
		if n == 0 {
			continue
		}

		read, err := unix.Read(w.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			w.fail(err)
			return
		}

		if matchesName(buf[:read], w.name) {
			select {
			case w.events <- struct{}{}:
			default:
			}
		}
	}
}

func (w *inotifyWatcher) fail(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

// matchesName reports whether any event in buf names the target file.
// Events are laid out as in inotify(7): wd, mask, cookie, len, then a
// null-padded name of len bytes.
func matchesName(buf []byte, name string) bool {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		nameLen := int(binary.NativeEndian.Uint32(buf[offset+12 : offset+16]))
		size := unix.SizeofInotifyEvent + nameLen
		if offset+size > len(buf) {
			return false
		}
		if nameLen > 0 && trimNull(buf[offset+unix.SizeofInotifyEvent:offset+size]) == name {
			return true
		}
		offset += size
	}
	return false
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
