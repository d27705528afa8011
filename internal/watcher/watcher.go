// Package watcher feeds filesystem activity into the boundary monitor.
//
// It watches directories for file creation and writes, runs every
// event path through boundary detection, and applies approved
// transitions, publishing them on a channel for observers.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/boundary"
)

// ErrWatcherFailed indicates the filesystem watcher could not start.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// ignoredDirs are never added to the watch set.
var ignoredDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
}

// Watcher drives boundary detection from filesystem events.
type Watcher struct {
	monitor *boundary.Monitor
	fs      *fsnotify.Watcher
	logger  *zap.Logger

	events chan boundary.Event
	stop   chan struct{}
}

// New creates a watcher over the given monitor.
func New(monitor *boundary.Monitor, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Watcher{
		monitor: monitor,
		fs:      fs,
		logger:  logger,
		events:  make(chan boundary.Event, 16),
		stop:    make(chan struct{}),
	}, nil
}

// Add watches a directory tree. Ignored directories are skipped.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := ignoredDirs[d.Name()]; skip {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Start runs the event loop until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Events delivers applied boundary transitions.
func (w *Watcher) Events() <-chan boundary.Event {
	return w.events
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
		_ = w.fs.Close()
	}
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handle(event)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories join the watch set so activity inside them is
	// seen too.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			base := filepath.Base(event.Name)
			if _, skip := ignoredDirs[base]; !skip && !strings.HasPrefix(base, ".") {
				_ = w.fs.Add(event.Name)
			}
		}
	}

	detected, err := w.monitor.Detect(event.Name)
	if err != nil {
		w.logger.Warn("boundary detection failed",
			zap.String("path", event.Name), zap.Error(err))
		return
	}
	if detected == nil {
		return
	}

	if _, err := w.monitor.Apply(detected); err != nil {
		w.logger.Error("boundary transition failed",
			zap.String("new_project_id", detected.NewProjectID), zap.Error(err))
		return
	}

	select {
	case w.events <- *detected:
	default:
		// Observer is behind; the transition itself is already applied.
	}
}
