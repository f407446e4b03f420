// Package shardmap implements the auxiliary lookup table recording which
// shard owns each product record. The map lives in a single storage
// location independent of the shards themselves and is only ever mutated
// by the coordinator, strictly coupled to a record's own lifecycle:
// entries are created alongside the record's shard-local write and
// deleted alongside its shard-local delete, never independently.
package shardmap

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no entry exists for a record ID
var ErrNotFound = errors.New("shard map entry not found")

// Map is the shard map store: record ID -> owning shard ID.
// Listing reads never go through the map; it exists to resolve a record
// ID back to its shard for point operations without a reverse scan.
type Map interface {
	// Set records the owning shard for a record ID
	Set(ctx context.Context, recordID, shardID string) error

	// Get returns the owning shard for a record ID
	// Returns ErrNotFound if no entry exists
	Get(ctx context.Context, recordID string) (string, error)

	// Delete removes the entry for a record ID
	// No error if the entry doesn't exist
	Delete(ctx context.Context, recordID string) error

	// Len returns the number of entries
	Len(ctx context.Context) (int, error)

	// Close releases the underlying storage
	Close() error
}

// MemoryMap is an in-memory Map implementation protected by a RWMutex
type MemoryMap struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryMap creates a new in-memory shard map
func NewMemoryMap() *MemoryMap {
	return &MemoryMap{m: make(map[string]string)}
}

// Set records the owning shard for a record ID
func (s *MemoryMap) Set(ctx context.Context, recordID, shardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[recordID] = shardID
	return nil
}

// Get returns the owning shard for a record ID
func (s *MemoryMap) Get(ctx context.Context, recordID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shardID, ok := s.m[recordID]
	if !ok {
		return "", ErrNotFound
	}
	return shardID, nil
}

// Delete removes the entry for a record ID (idempotent)
func (s *MemoryMap) Delete(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, recordID)
	return nil
}

// Len returns the number of entries
func (s *MemoryMap) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m), nil
}

// Close is a no-op for the in-memory map
func (s *MemoryMap) Close() error {
	return nil
}
