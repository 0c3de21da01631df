// internal/tracker/manager.go
package tracker

import (
	"fmt"
	"sync"

	"keeper/internal/safe"
	shared "keeper/shared/types"

	"go.uber.org/zap"
)

// Manager owns one Watcher per registered project.
type Manager struct {
	mu        sync.Mutex
	watchers  map[string]*Watcher
	tracker   *Tracker
	snapshots *safe.Store
	notify    NotifyFunc
	logger    *zap.Logger
}

func NewManager(tracker *Tracker, snapshots *safe.Store, notify NotifyFunc, logger *zap.Logger) *Manager {
	return &Manager{
		watchers:  make(map[string]*Watcher),
		tracker:   tracker,
		snapshots: snapshots,
		notify:    notify,
		logger:    logger,
	}
}

// Watch starts a watcher for the project. Watching an already-watched
// project is a no-op.
func (m *Manager) Watch(project shared.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.watchers[project.ID]; ok {
		return nil
	}

	w, err := NewWatcher(project, m.tracker, m.snapshots, m.notify, m.logger)
	if err != nil {
		return fmt.Errorf("watching project %s: %w", project.ID, err)
	}
	m.watchers[project.ID] = w

	m.logger.Info("watching project",
		zap.String("project", project.ID),
		zap.String("root", project.RootPath))
	return nil
}

// Unwatch stops and removes the project's watcher.
func (m *Manager) Unwatch(projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.watchers[projectID]
	if !ok {
		return nil
	}
	delete(m.watchers, projectID)
	return w.Close()
}

// Close stops all watchers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, w := range m.watchers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.watchers, id)
	}
	return firstErr
}
