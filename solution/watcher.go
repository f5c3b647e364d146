package solution

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/willibrandon/gonuget-vs/observability"
)

// WatcherConfig holds watcher configuration options.
type WatcherConfig struct {
	SolutionPath string
	DebounceDur  time.Duration
}

// DefaultWatcherConfig returns the default watcher settings for a solution.
func DefaultWatcherConfig(solutionPath string) WatcherConfig {
	return WatcherConfig{
		SolutionPath: solutionPath,
		DebounceDur:  500 * time.Millisecond,
	}
}

// Watcher reloads the manager's solution when the solution file changes on
// disk. Bursts of writes are collapsed into one reload.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	manager   *Manager
	logger    observability.Logger
	path      string
	debounce  time.Duration
	changes   chan ProjectDiff
	done      chan struct{}
}

// NewWatcher creates a watcher for cfg.SolutionPath that reloads manager.
func NewWatcher(manager *Manager, cfg WatcherConfig, logger observability.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		manager:   manager,
		logger:    observability.OrNull(logger),
		path:      filepath.Clean(cfg.SolutionPath),
		debounce:  cfg.DebounceDur,
		changes:   make(chan ProjectDiff, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the solution directory. The returned channel receives each
// non-empty diff applied to the manager; a slow reader misses diffs but
// never blocks reloading.
func (w *Watcher) Start() (<-chan ProjectDiff, error) {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	go w.loop()
	return w.changes, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Solution watcher error: {Error}", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	diff, err := w.manager.Reload()
	if err != nil {
		// editors write the file in several steps; the next event retries
		w.logger.Warn("Failed to reload solution {Solution}: {Error}", w.path, err)
		return
	}
	if diff.IsEmpty() {
		return
	}

	w.logger.Info("Solution changed: {Added} added, {Removed} removed, {Renamed} renamed",
		len(diff.Added), len(diff.Removed), len(diff.Renamed))
	select {
	case w.changes <- diff:
	default:
	}
}

// isRelevantEvent checks if the event touches the solution file.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return strings.EqualFold(filepath.Clean(event.Name), w.path)
}
