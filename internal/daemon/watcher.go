package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// DefaultDebounce collapses bursts of writes into one reload.
const DefaultDebounce = 2 * time.Second

// StateWatcher calls onChange, debounced, when one of the watched files is
// written, created or renamed.
type StateWatcher struct {
	files    map[string]struct{}
	watcher  *fsnotify.Watcher
	onChange func(ctx context.Context)
	clock    clockwork.Clock
	debounce time.Duration

	mu    sync.Mutex
	timer clockwork.Timer
}

// NewStateWatcher watches the directories holding files. The watch is active
// when it returns, before Run is called.
func NewStateWatcher(files []string, onChange func(ctx context.Context), clock clockwork.Clock, debounce time.Duration) (*StateWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create file watcher").Build()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	sw := &StateWatcher{
		files:    make(map[string]struct{}, len(files)),
		watcher:  w,
		onChange: onChange,
		clock:    clock,
		debounce: debounce,
	}
	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = w.Close()
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve watched path").
				WithContext("path", f).Build()
		}
		sw.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	// Watching the directory survives editors and atomic writers that replace the file.
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to watch directory").
				WithContext("dir", dir).Build()
		}
	}
	return sw, nil
}

// Run processes events until ctx ends, then closes the watcher.
func (w *StateWatcher) Run(ctx context.Context) error {
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}()

	slog.Info("Watching persisted state", "files", len(w.files))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("State file change detected", "file", event.Name, "op", event.Op.String())
			w.trigger(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("State watcher error", "error", err)
		}
	}
}

func (w *StateWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

// trigger (re)arms the debounce timer.
func (w *StateWatcher) trigger(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx)
	})
}
