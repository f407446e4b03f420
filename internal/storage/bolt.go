package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/catalog"
)

const (
	productBucketName = "products"

	// fileMode sets permissions so owner can read and write
	fileMode = 0600
)

var defaultTimeout = 1 * time.Second

// BoltStore implements Store on top of a boltdb file, one file per
// shard. Documents are stored as JSON keyed by product ID. Change
// notification reuses the same hub as MemoryStore: after each committed
// transaction the full snapshot is republished.
type BoltStore struct {
	logger *zap.Logger
	db     *bolt.DB
	hub    *hub
	Path   string
}

// NewBoltStore opens (or creates) the shard database at path
func NewBoltStore(logger *zap.Logger, path string) (*BoltStore, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(productBucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{
		logger: logger,
		db:     db,
		hub:    newHub(),
		Path:   path,
	}, nil
}

// Get retrieves a product by ID
func (s *BoltStore) Get(ctx context.Context, id string) (catalog.Product, error) {
	var p catalog.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(productBucketName)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	return p, err
}

// Put stores a product and notifies subscribers with a fresh snapshot
func (s *BoltStore) Put(ctx context.Context, p catalog.Product) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		buf, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(productBucketName)).Put([]byte(p.ID), buf)
	})
	if err != nil {
		return err
	}

	s.notify(ctx)
	return nil
}

// Delete removes a product and notifies subscribers
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(productBucketName)).Delete([]byte(id))
	})
	if err != nil {
		return err
	}

	s.notify(ctx)
	return nil
}

// List returns all products in the store
func (s *BoltStore) List(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(productBucketName)).ForEach(func(key, value []byte) error {
			var p catalog.Product
			if err := json.Unmarshal(value, &p); err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	return products, err
}

// FindByCode scans the bucket for a product with the given partition key
func (s *BoltStore) FindByCode(ctx context.Context, code int64) (catalog.Product, bool, error) {
	products, err := s.List(ctx)
	if err != nil {
		return catalog.Product{}, false, err
	}
	for _, p := range products {
		if p.Code == code {
			return p, true, nil
		}
	}
	return catalog.Product{}, false, nil
}

// Subscribe opens a live subscription seeded with the current snapshot
func (s *BoltStore) Subscribe() *Subscription {
	snapshot, err := s.List(context.Background())
	if err != nil {
		s.logger.Warn("subscription seed read failed", zap.String("path", s.Path), zap.Error(err))
		snapshot = nil
	}
	return s.hub.subscribe(snapshot)
}

// Ping verifies the database file is still readable
func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(productBucketName)) == nil {
			return ErrNotFound
		}
		return nil
	})
}

// Stats returns storage statistics
func (s *BoltStore) Stats() StoreStats {
	docs := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		docs = tx.Bucket([]byte(productBucketName)).Stats().KeyN
		return nil
	})
	return StoreStats{
		Docs:        docs,
		Subscribers: s.hub.len(),
	}
}

// Close closes all subscriptions and the underlying database
func (s *BoltStore) Close() error {
	s.hub.close()
	return s.db.Close()
}

// notify republishes the full snapshot after a committed transaction
func (s *BoltStore) notify(ctx context.Context) {
	snapshot, err := s.List(ctx)
	if err != nil {
		s.logger.Warn("snapshot read after commit failed", zap.String("path", s.Path), zap.Error(err))
		return
	}
	s.hub.publish(snapshot)
}
