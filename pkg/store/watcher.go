package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/openfroyo/themecfg/pkg/config"
	"github.com/openfroyo/themecfg/pkg/telemetry"
)

// DefaultDebounce is how long the watcher waits after the last change event
// before reloading.
const DefaultDebounce = 500 * time.Millisecond

// ReloadRecorder persists the outcome of every reload. err is nil on
// success and doc is nil on failure.
type ReloadRecorder interface {
	RecordReload(ctx context.Context, path string, doc *config.Document, err error, duration time.Duration) error
}

// Watcher reloads a configuration file into a Store when it changes. A
// failed reload keeps the previous document.
type Watcher struct {
	path     string
	loader   *config.Loader
	store    *Store
	metrics  *telemetry.Metrics
	recorder ReloadRecorder
	logger   zerolog.Logger
	delay    time.Duration

	reloadMu sync.Mutex

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopped  bool
	inflight sync.WaitGroup
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, loader *config.Loader, st *Store, logger zerolog.Logger) *Watcher {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Watcher{
		path:   path,
		loader: loader,
		store:  st,
		logger: logger.With().Str("component", "config-watcher").Str("path", path).Logger(),
		delay:  DefaultDebounce,
	}
}

// WithMetrics records reload outcomes in m.
func (w *Watcher) WithMetrics(m *telemetry.Metrics) *Watcher {
	w.metrics = m
	return w
}

// WithRecorder records every reload outcome in r.
func (w *Watcher) WithRecorder(r ReloadRecorder) *Watcher {
	w.recorder = r
	return w
}

// WithDebounce sets the quiet period before a reload.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.delay = d
	}
	return w
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Reload loads the file and, if it validates, replaces the store's document.
// On failure the store is left untouched and the error is returned.
func (w *Watcher) Reload(ctx context.Context) (*config.Document, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	timer := telemetry.NewTimer()
	format := filepath.Ext(w.path)
	if f, err := config.ParseFormat(format); err == nil {
		format = string(f)
	}

	doc, err := w.loader.LoadFile(ctx, w.path)
	if err != nil {
		w.metrics.RecordLoad(format, telemetry.ResultFailure, timer.Duration())
		w.metrics.RecordReload(telemetry.ResultFailure)
		w.recordError(err)
		w.record(ctx, nil, err, timer.Duration())

		w.logger.Error().Err(err).Msg("Reload failed, keeping previous configuration")
		return nil, err
	}

	w.metrics.RecordLoad(format, telemetry.ResultSuccess, timer.Duration())
	w.metrics.RecordReload(telemetry.ResultSuccess)
	for _, issue := range doc.Report.Warnings() {
		w.metrics.RecordIssue(string(issue.Class), string(issue.Severity))
		w.logger.Warn().Str("class", string(issue.Class)).Msg(issue.String())
	}
	if doc.Report != nil && doc.Report.Matches != nil {
		w.metrics.SetGlobMatches(doc.Report.Matches)
	}

	w.store.Replace(doc)
	w.record(ctx, doc, nil, timer.Duration())

	w.logger.Info().
		Int("globs", len(doc.Config.Content)).
		Int("plugins", len(doc.Config.Plugins)).
		Dur("duration", timer.Duration()).
		Msg("Configuration reloaded")

	return doc, nil
}

func (w *Watcher) record(ctx context.Context, doc *config.Document, loadErr error, d time.Duration) {
	if w.recorder == nil {
		return
	}
	if err := w.recorder.RecordReload(ctx, w.path, doc, loadErr, d); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to record reload")
	}
}

func (w *Watcher) recordError(err error) {
	var ce *config.ConfigError
	if !errors.As(err, &ce) {
		return
	}
	if len(ce.Issues) == 0 {
		w.metrics.RecordIssue(string(ce.Class), string(config.SeverityError))
		return
	}
	for _, issue := range ce.Issues {
		w.metrics.RecordIssue(string(issue.Class), string(issue.Severity))
	}
}

// Start begins watching the file's directory and returns once the watch is
// registered. Watching stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return fmt.Errorf("watcher for %s already started", w.path)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Editors often replace the file instead of writing it, so the directory
	// is watched and events are filtered by name.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fsw
	w.done = make(chan struct{})
	w.stopped = false
	go w.processEvents(ctx, fsw, w.done)

	w.logger.Info().Dur("debounce", w.delay).Msg("Started watching configuration")
	return nil
}

// Stop stops watching and waits for a reload already in progress. No reload
// starts after Stop returns. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fsw, done := w.watcher, w.done
	w.watcher = nil
	w.stopped = true
	w.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
		<-done
	}
	w.inflight.Wait()
	return err
}

// beginReload registers a debounced reload unless the watcher is stopped.
func (w *Watcher) beginReload() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	w.inflight.Add(1)
	return true
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

// processEvents debounces change events for the watched file into reloads.
func (w *Watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = fsw.Close()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Debug().
				Str("op", event.Op.String()).
				Msg("Configuration file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.delay, func() {
				if ctx.Err() != nil || !w.beginReload() {
					return
				}
				defer w.inflight.Done()
				_, _ = w.Reload(ctx)
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
