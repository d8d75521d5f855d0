package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ruletree/internal/metrics"
)

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watcher reloads a rule set file when it changes on disk. The parent
// directory is watched so that editors replacing the file by rename are
// still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(path string, debounce time.Duration) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		logger:   log.With().Str("component", "watcher").Str("path", path).Logger(),
	}
}

// Run blocks until ctx is done, calling reload once per burst of changes.
// Reloads run one at a time; a change seen during a reload queues exactly
// one more. Reload errors are logged and counted; the previous rule set
// stays live.
func (w *Watcher) Run(ctx context.Context, reload func() error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.logger.Info().Dur("debounce", w.debounce).Msg("Watching rule set")

	ctx, cancel := context.WithCancel(ctx)
	pending := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, pending, reload)
	}()
	defer wg.Wait()
	defer cancel()
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("Watcher stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path || !event.Op.Has(relevantOps) {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("Rule set changed")
			w.schedule(pending)
		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Err(err).Msg("Watcher error")
		}
	}
}

// schedule restarts the debounce timer. When it fires a reload is queued
// unless one is already waiting.
func (w *Watcher) schedule(pending chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) worker(ctx context.Context, pending <-chan struct{}, reload func() error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-pending:
		}
		if err := reload(); err != nil {
			metrics.ReloadsTotal.WithLabelValues(metrics.ReloadFailure).Inc()
			w.logger.Err(err).Msg("Rule set reload failed, keeping previous rules")
			continue
		}
		metrics.ReloadsTotal.WithLabelValues(metrics.ReloadSuccess).Inc()
		w.logger.Info().Msg("Rule set reloaded")
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
