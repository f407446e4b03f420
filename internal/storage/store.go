package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/dreamware/catalogd/internal/catalog"
)

// ErrNotFound is returned when a product doesn't exist in the store
var ErrNotFound = errors.New("product not found")

// Store defines the interface for a single shard's document storage.
// All implementations must be thread-safe for concurrent access and
// must deliver a full snapshot to every subscriber after each commit,
// in the shard's own commit order.
type Store interface {
	// Get retrieves a product by ID
	// Returns ErrNotFound if the product doesn't exist
	Get(ctx context.Context, id string) (catalog.Product, error)

	// Put stores a product keyed by its ID
	// Overwrites any existing document with the same ID
	Put(ctx context.Context, p catalog.Product) error

	// Delete removes a product
	// No error if the product doesn't exist
	Delete(ctx context.Context, id string) error

	// List returns all products in the store
	// Order is not guaranteed
	List(ctx context.Context) ([]catalog.Product, error)

	// FindByCode is the point query used for the intra-shard
	// duplicate-code check. found is false when no document matches.
	FindByCode(ctx context.Context, code int64) (p catalog.Product, found bool, err error)

	// Subscribe opens a live subscription. The current snapshot is
	// delivered immediately, then a fresh full snapshot after every
	// commit. Close the subscription to stop deliveries.
	Subscribe() *Subscription

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error

	// Stats returns storage statistics
	Stats() StoreStats

	// Close releases the store and closes all subscriptions
	Close() error
}

// StoreStats contains statistics about the store
type StoreStats struct {
	Docs        int // Number of documents
	Subscribers int // Number of open subscriptions
}

// MemoryStore implements Store with in-memory storage
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	mu   sync.RWMutex               // Protects concurrent access
	data map[string]catalog.Product // Documents keyed by product ID
	hub  *hub                       // Live-subscription fanout
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]catalog.Product),
		hub:  newHub(),
	}
}

// Get retrieves a product by ID
func (m *MemoryStore) Get(ctx context.Context, id string) (catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.data[id]
	if !exists {
		return catalog.Product{}, ErrNotFound
	}
	return p, nil
}

// Put stores a product and notifies subscribers with a fresh snapshot
func (m *MemoryStore) Put(ctx context.Context, p catalog.Product) error {
	m.mu.Lock()
	m.data[p.ID] = p
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.hub.publish(snapshot)
	return nil
}

// Delete removes a product and notifies subscribers
// No error if the product doesn't exist (idempotent)
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.hub.publish(snapshot)
	return nil
}

// List returns all products in the store
func (m *MemoryStore) List(ctx context.Context) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(), nil
}

// FindByCode scans for a product with the given partition key
func (m *MemoryStore) FindByCode(ctx context.Context, code int64) (catalog.Product, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.data {
		if p.Code == code {
			return p, true, nil
		}
	}
	return catalog.Product{}, false, nil
}

// Subscribe opens a live subscription seeded with the current snapshot
func (m *MemoryStore) Subscribe() *Subscription {
	m.mu.RLock()
	snapshot := m.snapshotLocked()
	m.mu.RUnlock()

	return m.hub.subscribe(snapshot)
}

// Ping always succeeds for the in-memory store
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Stats returns storage statistics
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return StoreStats{
		Docs:        len(m.data),
		Subscribers: m.hub.len(),
	}
}

// Close closes all subscriptions
func (m *MemoryStore) Close() error {
	m.hub.close()
	return nil
}

// snapshotLocked copies the current document set
// Caller must hold at least a read lock
func (m *MemoryStore) snapshotLocked() []catalog.Product {
	snapshot := make([]catalog.Product, 0, len(m.data))
	for _, p := range m.data {
		snapshot = append(snapshot, p)
	}
	return snapshot
}
