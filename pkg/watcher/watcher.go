// Package watcher reports changes to a set of files.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches files for changes and triggers a debounced callback.
// Parent directories are watched instead of the files themselves so editors
// that save by renaming a temp file over the original are still noticed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	files    map[string]struct{}
	dirs     map[string]struct{}
	callback func(string)
	timer    *time.Timer
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounce time.Duration, log *slog.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  w,
		log:      log,
		debounce: debounce,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Watch replaces the watched set. callback receives the path of the file
// that changed last within one debounce window.
func (fw *FileWatcher) Watch(files []string, callback func(string)) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for dir := range fw.dirs {
		_ = fw.watcher.Remove(dir)
	}
	fw.files = make(map[string]struct{}, len(files))
	fw.dirs = make(map[string]struct{})
	fw.callback = callback

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", file, err)
		}
		fw.files[absPath] = struct{}{}

		dir := filepath.Dir(absPath)
		if _, ok := fw.dirs[dir]; ok {
			continue
		}
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fw.dirs[dir] = struct{}{}
	}

	return nil
}

// Run dispatches file events until ctx is cancelled or the watcher is closed
func (fw *FileWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fw.handleFileChange(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("watcher error", "err", err)
		}
	}
}

// handleFileChange handles a file change event with debouncing
func (fw *FileWatcher) handleFileChange(filePath string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, ok := fw.files[filepath.Clean(filePath)]; !ok || fw.callback == nil {
		return
	}

	if fw.timer != nil {
		fw.timer.Stop()
	}
	callback := fw.callback
	fw.timer = time.AfterFunc(fw.debounce, func() {
		fw.log.Info("file changed", "path", filePath)
		callback(filePath)
	})
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}
