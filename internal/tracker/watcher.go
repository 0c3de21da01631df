// internal/tracker/watcher.go
package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keeper/internal/safe"
	shared "keeper/shared/types"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// NotifyFunc receives a FileChange commit context for every qualifying
// filesystem event. The engine debounces these, so the watcher fires freely.
type NotifyFunc func(ctx shared.CommitContext)

// Watcher observes one project root, feeding the tracker and the trigger
// path. Written file contents are snapshotted before any commit attempt.
type Watcher struct {
	project    shared.Project
	watcher    *fsnotify.Watcher
	tracker    *Tracker
	snapshots  *safe.Store
	notify     NotifyFunc
	ignoreDirs map[string]bool
	logger     *zap.Logger
}

// NewWatcher starts watching the project root. snapshots may be nil to
// disable content capture.
func NewWatcher(project shared.Project, tracker *Tracker, snapshots *safe.Store, notify NotifyFunc, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		project:   project,
		watcher:   fsw,
		tracker:   tracker,
		snapshots: snapshots,
		notify:    notify,
		ignoreDirs: map[string]bool{
			".git":         true,
			".keeper":      true,
			"node_modules": true,
			"vendor":       true,
			"dist":         true,
			"build":        true,
		},
		logger: logger,
	}

	if err := w.addDirs(); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("registering directories: %w", err)
	}

	go w.watchLoop()
	return w, nil
}

// addDirs registers the root and every non-ignored subdirectory.
func (w *Watcher) addDirs() error {
	return filepath.Walk(w.project.RootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(w.project.RootPath, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		if relPath != "." && w.ShouldIgnore(relPath) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// watchLoop processes filesystem events
func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// handleFSEvent processes individual filesystem events
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.project.RootPath, event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return
	}
	if w.ShouldIgnore(relPath) {
		return
	}

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
			return
		}
		w.changed(relPath, event.Name)

	case event.Op&fsnotify.Write == fsnotify.Write:
		w.changed(relPath, event.Name)

	case event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		// A deletion is still a change the next commit must capture.
		w.tracker.Track(w.project.ID, relPath)
		w.fire()
	}
}

// changed snapshots the file content, tracks it, and fires a trigger.
func (w *Watcher) changed(relPath, absPath string) {
	if w.snapshots != nil {
		content, err := os.ReadFile(absPath)
		if err != nil {
			w.logger.Warn("reading changed file for snapshot",
				zap.String("path", relPath), zap.Error(err))
		} else if _, err := w.snapshots.Put(content); err != nil {
			w.logger.Warn("storing snapshot",
				zap.String("path", relPath), zap.Error(err))
		}
	}

	w.tracker.Track(w.project.ID, relPath)
	w.fire()
}

func (w *Watcher) fire() {
	w.notify(shared.CommitContext{
		ProjectID:   w.project.ID,
		RootPath:    w.project.RootPath,
		Trigger:     shared.TriggerFileChange,
		RequestedAt: time.Now(),
	})
}

// ShouldIgnore checks if a path should be ignored
func (w *Watcher) ShouldIgnore(path string) bool {
	if path == "" {
		return true
	}

	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if w.ignoreDirs[part] {
			return true
		}
	}
	return false
}

// Close cleans up resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
