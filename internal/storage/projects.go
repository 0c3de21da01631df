// internal/storage/projects.go
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	shared "keeper/shared/types"

	"github.com/dgraph-io/badger/v4"
)

const projectPrefix = "project:"

// ProjectStore persists the projectID to working-tree registry.
type ProjectStore struct {
	db *badger.DB
}

func NewProjectStore(db *badger.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Put(p shared.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project ID cannot be empty")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(projectPrefix+p.ID), data)
	})
}

func (s *ProjectStore) Get(id string) (shared.Project, error) {
	var p shared.Project
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(projectPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err == badger.ErrKeyNotFound {
		return p, fmt.Errorf("project not found: %s", id)
	}
	return p, err
}

func (s *ProjectStore) List() ([]shared.Project, error) {
	var projects []shared.Project
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(projectPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var p shared.Project
				if err := json.Unmarshal(val, &p); err != nil {
					return err
				}
				projects = append(projects, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(projectPrefix + id))
	})
}
