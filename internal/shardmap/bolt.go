package shardmap

import (
	"context"
	"time"

	"github.com/boltdb/bolt"
)

const (
	entryBucketName = "shard_map"

	// fileMode sets permissions so owner can read and write
	fileMode = 0600
)

var defaultTimeout = 1 * time.Second

// BoltMap is a boltdb-backed Map implementation. Entries are stored as
// recordID -> shardID in a single bucket.
type BoltMap struct {
	db   *bolt.DB
	Path string
}

// NewBoltMap opens (or creates) the shard map database at path
func NewBoltMap(path string) (*BoltMap, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(entryBucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltMap{db: db, Path: path}, nil
}

// Set records the owning shard for a record ID
func (s *BoltMap) Set(ctx context.Context, recordID, shardID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(entryBucketName)).Put([]byte(recordID), []byte(shardID))
	})
}

// Get returns the owning shard for a record ID
func (s *BoltMap) Get(ctx context.Context, recordID string) (string, error) {
	var shardID string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(entryBucketName)).Get([]byte(recordID))
		if v == nil {
			return ErrNotFound
		}
		shardID = string(v)
		return nil
	})
	return shardID, err
}

// Delete removes the entry for a record ID (idempotent)
func (s *BoltMap) Delete(ctx context.Context, recordID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(entryBucketName)).Delete([]byte(recordID))
	})
}

// Len returns the number of entries
func (s *BoltMap) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(entryBucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// Close closes the underlying database
func (s *BoltMap) Close() error {
	return s.db.Close()
}
