//go:build !linux

package monitor

func newPlatformWatcher(dir, name string) (watcher, error) {
	return newPollWatcher(dir, name, DefaultPollInterval), nil
}
