// internal/safe/safe.go
package safe

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"keeper/shared/utils"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

const metaPrefix = "snapmeta:"

// SnapshotMeta stores metadata about a captured file snapshot.
type SnapshotMeta struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store keeps content-addressed, deduplicated snapshots of changed files so
// a failed commit never means lost work. Large snapshots are compressed on
// disk; reads go through an LRU cache.
type Store struct {
	root  string
	db    *badger.DB
	cache *lru.Cache[string, []byte]
	codec *codec
}

// Options configures Store behavior.
type Options struct {
	Root      string // Root directory for snapshot files
	CacheSize int    // Number of snapshots to cache in memory
	MinSize   int    // Minimum size in bytes before compressing
}

func New(db *badger.DB, opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}

	if opts.CacheSize == 0 {
		opts.CacheSize = 256
	}
	if opts.MinSize == 0 {
		opts.MinSize = 1024
	}

	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	codec, err := newCodec(opts.MinSize)
	if err != nil {
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	return &Store{
		root:  opts.Root,
		db:    db,
		cache: cache,
		codec: codec,
	}, nil
}

// Put saves content and returns its hash. Storing identical content twice
// is a no-op.
func (s *Store) Put(content []byte) (string, error) {
	hash := utils.HashContent(content)

	exists, err := s.Exists(hash)
	if err != nil {
		return "", fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		return hash, nil
	}

	data, compressed := s.codec.compress(content)

	path := s.snapshotPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	meta := SnapshotMeta{
		Hash:       hash,
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	if err := s.putMeta(meta); err != nil {
		return "", fmt.Errorf("storing snapshot metadata: %w", err)
	}

	s.cache.Add(hash, content)
	return hash, nil
}

// Get retrieves snapshot content by hash.
func (s *Store) Get(hash string) ([]byte, error) {
	if content, ok := s.cache.Get(hash); ok {
		return content, nil
	}

	meta, err := s.getMeta(hash)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.snapshotPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if meta.Compressed {
		data, err = s.codec.decompress(data)
		if err != nil {
			return nil, fmt.Errorf("decompressing snapshot: %w", err)
		}
	}

	s.cache.Add(hash, data)
	return data, nil
}

// Exists reports whether a snapshot with the given hash is stored.
func (s *Store) Exists(hash string) (bool, error) {
	if s.cache.Contains(hash) {
		return true, nil
	}

	_, err := s.getMeta(hash)
	if err == ErrSnapshotNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GC removes snapshots older than keep. Run from the background queue, never
// from the pipeline.
func (s *Store) GC(keep time.Duration) (int, error) {
	cutoff := time.Now().Add(-keep)
	var expired []SnapshotMeta

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var meta SnapshotMeta
				if err := json.Unmarshal(val, &meta); err != nil {
					return err
				}
				if meta.CreatedAt.Before(cutoff) {
					expired = append(expired, meta)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning snapshot metadata: %w", err)
	}

	removed := 0
	for _, meta := range expired {
		if err := os.Remove(s.snapshotPath(meta.Hash)); err != nil && !os.IsNotExist(err) {
			continue
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(metaPrefix + meta.Hash))
		})
		if err != nil {
			return removed, fmt.Errorf("deleting snapshot metadata: %w", err)
		}
		s.cache.Remove(meta.Hash)
		removed++
	}

	return removed, nil
}

func (s *Store) snapshotPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}

func (s *Store) putMeta(meta SnapshotMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaPrefix+meta.Hash), data)
	})
}

func (s *Store) getMeta(hash string) (SnapshotMeta, error) {
	var meta SnapshotMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err == badger.ErrKeyNotFound {
		return meta, ErrSnapshotNotFound
	}
	if err != nil {
		return meta, fmt.Errorf("retrieving snapshot metadata: %w", err)
	}
	return meta, nil
}
