package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ContentWatcher monitors content and template directories and triggers a
// debounced rebuild on changes.
type ContentWatcher struct {
	dirs         []string
	onChange     func(ctx context.Context)
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	changeChan   chan struct{}
	debounceTime time.Duration
}

// NewContentWatcher creates a watcher over the given directories. Missing
// directories are skipped with a warning.
func NewContentWatcher(dirs []string, onChange func(ctx context.Context)) (*ContentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &ContentWatcher{
		dirs:         dirs,
		onChange:     onChange,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		changeChan:   make(chan struct{}, 1),
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// SetDebounce overrides the debounce interval.
func (cw *ContentWatcher) SetDebounce(d time.Duration) { cw.debounceTime = d }

// Start begins monitoring. Each directory tree is watched recursively;
// directories created later are picked up from their create events.
func (cw *ContentWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	watched := 0
	for _, dir := range cw.dirs {
		if err := cw.addTree(dir); err != nil {
			slog.Warn("Skipping unwatchable directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("no watchable directories among %v", cw.dirs)
	}

	slog.Info("Starting content watcher", "dirs", cw.dirs, "debounce", cw.debounceTime)
	go cw.watchLoop(ctx)
	go cw.rebuildLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (cw *ContentWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	close(cw.stopChan)
	return cw.watcher.Close()
}

// addTree registers a directory and all its subdirectories.
func (cw *ContentWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := cw.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (cw *ContentWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := cw.addTree(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				slog.Debug("Content change detected", "file", event.Name, "op", event.Op.String())
				cw.trigger()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Content watcher error", "error", err)
		}
	}
}

// rebuildLoop debounces change triggers into rebuild callbacks.
func (cw *ContentWatcher) rebuildLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-cw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-cw.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(cw.debounceTime, func() {
				cw.onChange(ctx)
			})
		}
	}
}

func (cw *ContentWatcher) trigger() {
	select {
	case cw.changeChan <- struct{}{}:
	default:
	}
}
