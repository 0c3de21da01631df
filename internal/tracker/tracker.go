// internal/tracker/tracker.go
package tracker

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const pendingPrefix = "pending:"

// Tracker accumulates the set of changed-file identifiers per project.
// Membership is idempotent and the set is cleared atomically only on
// pipeline success. This is pure bookkeeping: persistence failures are
// logged, never allowed to drop a commit.
type Tracker struct {
	mu      sync.RWMutex
	pending map[string]map[string]struct{}
	db      *badger.DB
	logger  *zap.Logger
}

// New creates a tracker, restoring any pending sets persisted by a previous
// run. db may be nil for purely in-memory tracking.
func New(db *badger.DB, logger *zap.Logger) (*Tracker, error) {
	t := &Tracker{
		pending: make(map[string]map[string]struct{}),
		db:      db,
		logger:  logger,
	}

	if db != nil {
		if err := t.load(); err != nil {
			return nil, fmt.Errorf("loading pending changes: %w", err)
		}
	}
	return t, nil
}

// Track adds a file identifier to the project's pending set.
func (t *Tracker) Track(projectID, fileID string) {
	t.mu.Lock()
	set, ok := t.pending[projectID]
	if !ok {
		set = make(map[string]struct{})
		t.pending[projectID] = set
	}
	_, seen := set[fileID]
	set[fileID] = struct{}{}
	t.mu.Unlock()

	if seen || t.db == nil {
		return
	}
	err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(projectID, fileID), nil)
	})
	if err != nil {
		t.logger.Warn("persisting pending change",
			zap.String("project", projectID),
			zap.String("file", fileID),
			zap.Error(err))
	}
}

// PendingCount returns the number of distinct pending changes for a project.
func (t *Tracker) PendingCount(projectID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pending[projectID])
}

// Pending returns the pending file identifiers for a project.
func (t *Tracker) Pending(projectID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	files := make([]string, 0, len(t.pending[projectID]))
	for id := range t.pending[projectID] {
		files = append(files, id)
	}
	return files
}

// Clear drops the project's pending set. Called exclusively by the pipeline
// on success.
func (t *Tracker) Clear(projectID string) {
	t.mu.Lock()
	delete(t.pending, projectID)
	t.mu.Unlock()

	if t.db == nil {
		return
	}
	err := t.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pendingPrefix + projectID + ":")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.logger.Warn("clearing persisted pending changes",
			zap.String("project", projectID),
			zap.Error(err))
	}
}

func (t *Tracker) load() error {
	return t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pendingPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := bytes.TrimPrefix(it.Item().Key(), []byte(pendingPrefix))
			parts := bytes.SplitN(key, []byte(":"), 2)
			if len(parts) != 2 {
				continue
			}
			projectID, fileID := string(parts[0]), string(parts[1])

			set, ok := t.pending[projectID]
			if !ok {
				set = make(map[string]struct{})
				t.pending[projectID] = set
			}
			set[fileID] = struct{}{}
		}
		return nil
	})
}

func pendingKey(projectID, fileID string) []byte {
	return []byte(pendingPrefix + projectID + ":" + fileID)
}
