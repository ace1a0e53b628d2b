package artifact

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/logger"
)

// ReloadFunc is invoked after the latest-version pointer file changes.
type ReloadFunc func(ctx context.Context, pointedVersion string) error

// Watcher watches the artifact directory for pointer file updates made by any process
// sharing the store (the admin CLI or another replica) and triggers a debounced reload.
type Watcher struct {
	dir      string
	debounce time.Duration
	reload   ReloadFunc
	logger   logger.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher; a non-positive debounce uses the default.
func NewWatcher(dir string, debounce time.Duration, reload ReloadFunc, log logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = constants.DefaultWatchDebounce
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		reload:   reload,
		logger:   log.WithComponent("ArtifactWatcher"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info(ctx, "Watching artifact directory", logger.Fields{"dir": w.dir})

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != constants.LatestPointerFile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "Artifact watcher error", logger.Fields{"error": err.Error()})
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *Watcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	pointed, err := ReadLatestPointer(w.dir)
	if err != nil {
		w.logger.Warn(ctx, "Failed to read latest version pointer", logger.Fields{"error": err.Error()})
		return
	}
	if err := w.reload(ctx, pointed); err != nil {
		w.logger.Warn(ctx, "Reload after pointer change failed", logger.Fields{
			"error":      err.Error(),
			"version_id": pointed,
		})
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

//Personal.AI order the ending
