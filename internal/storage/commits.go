// internal/storage/commits.go
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	shared "keeper/shared/types"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// CommitStore appends and lists per-project commit history records.
// Keys embed a zero-padded nanosecond timestamp so reverse iteration yields
// most-recent-first ordering.
type CommitStore struct {
	db *badger.DB
}

func NewCommitStore(db *badger.DB) *CommitStore {
	return &CommitStore{db: db}
}

func commitKey(projectID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("commit:%s:%020d:%s", projectID, at.UnixNano(), id))
}

func (s *CommitStore) Append(rec shared.CommitRecord) error {
	if rec.ProjectID == "" {
		return fmt.Errorf("commit record project ID cannot be empty")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling commit record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(commitKey(rec.ProjectID, rec.CreatedAt, rec.ID), data)
	})
}

// List returns up to limit records for a project, most recent first.
// limit <= 0 means no limit.
func (s *CommitStore) List(projectID string, limit int) ([]shared.CommitRecord, error) {
	var records []shared.CommitRecord
	prefix := []byte(fmt.Sprintf("commit:%s:", projectID))

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// With Reverse set, seek to the key just past the prefix range.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var rec shared.CommitRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing commit records: %w", err)
	}
	return records, nil
}
