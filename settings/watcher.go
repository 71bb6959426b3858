package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a Store when the registry file or a configuration file
// changes on disk, so edits made outside the process are picked up.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	reloads  int
	mu       sync.Mutex
}

// NewWatcher starts watching the settings root and config directory of
// store's registry. Bursts of events within debounce trigger one reload.
func NewWatcher(ctx context.Context, store *Store, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	registry := store.Registry()
	for _, dir := range []string{registry.Root(), registry.ConfigDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fsw.Close()
			return nil, err
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		store:    store,
		watcher:  fsw,
		debounce: debounce,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logrus.WithField("path", event.Name).Debugf("settings changed: %s", event.Op)
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Error("error watching settings")
		case <-timer.C:
			w.store.Reload()
			w.mu.Lock()
			w.reloads++
			w.mu.Unlock()
			logrus.Info("configuration reloaded after change on disk")
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	registry := w.store.Registry()
	if event.Name == registry.Path() {
		return true
	}
	return filepath.Dir(event.Name) == registry.ConfigDir() && IsConfigFile(event.Name)
}

// Reloads returns how many reloads the watcher has triggered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.cancel()
	<-w.done
}
