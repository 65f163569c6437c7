package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches a single file and invokes a callback after it changes.
type FileWatcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	filePath string
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewFileWatcher creates a watcher for filePath.
func NewFileWatcher(filePath string, logger *slog.Logger) *FileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{
		logger:   logger,
		filePath: filePath,
		debounce: DefaultDebounce,
	}
}

// SetChangeCallback sets the callback to invoke when the file changes.
func (fw *FileWatcher) SetChangeCallback(callback func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.onChange = callback
}

// Path returns the watched file.
func (fw *FileWatcher) Path() string {
	return fw.filePath
}

// Start begins watching the file.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory containing the file (more reliable for writes)
	if err := watcher.Add(filepath.Dir(fw.filePath)); err != nil {
		_ = watcher.Close()
		return err
	}

	fw.watcher = watcher
	fw.stopCh = make(chan struct{})
	fw.doneCh = make(chan struct{})
	fw.running = true

	go fw.watch(ctx)

	fw.logger.Debug("file watcher started", "path", fw.filePath)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return
	}
	fw.running = false
	close(fw.stopCh)
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()

	<-fw.doneCh
	_ = fw.watcher.Close()
	fw.logger.Debug("file watcher stopped", "path", fw.filePath)
}

func (fw *FileWatcher) watch(ctx context.Context) {
	defer close(fw.doneCh)
	filename := filepath.Base(fw.filePath)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				fw.schedule()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "path", fw.filePath, "error", err)

		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		}
	}
}

// schedule (re)arms the debounce timer.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if !fw.running {
		return
	}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.fire)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	callback := fw.onChange
	running := fw.running
	fw.mu.Unlock()

	if !running || callback == nil {
		return
	}
	fw.logger.Debug("file changed", "path", fw.filePath)
	callback()
}
