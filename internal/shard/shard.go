package shard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/storage"
)

// State represents the current state of a shard
type State string

const (
	// StateActive means the shard is serving requests
	StateActive State = "active"
	// StateFaulted means the shard's store is unreachable; it is
	// excluded from the aggregated view until it recovers
	StateFaulted State = "faulted"
)

// Shard is one partition of the product catalog. Each shard owns a
// disjoint subset of records, determined by the placement function,
// and manages its own document store.
type Shard struct {
	ID    string        // Unique shard identifier
	Store storage.Store // The storage backend for this shard
	state State         // Current shard state
	stats Stats         // Operation statistics
	mu    sync.RWMutex  // Protects state changes
}

// Stats tracks operation counts for a shard
type Stats struct {
	Gets    uint64 // Number of get/find operations
	Puts    uint64 // Number of put operations
	Deletes uint64 // Number of delete operations
}

// Info contains metadata about a shard
type Info struct {
	ID       string `json:"id"`
	State    State  `json:"state"`
	DocCount int    `json:"doc_count"`
	Ops      Stats  `json:"ops"`
}

// New creates a shard backed by the given store
func New(id string, store storage.Store) *Shard {
	return &Shard{
		ID:    id,
		Store: store,
		state: StateActive,
	}
}

// NewMemory creates a shard with in-memory storage
func NewMemory(id string) *Shard {
	return New(id, storage.NewMemoryStore())
}

// Get retrieves a product from the shard
// Increments get counter for statistics
func (s *Shard) Get(ctx context.Context, id string) (catalog.Product, error) {
	atomic.AddUint64(&s.stats.Gets, 1)
	return s.Store.Get(ctx, id)
}

// Put stores a product in the shard
// Increments put counter for statistics
func (s *Shard) Put(ctx context.Context, p catalog.Product) error {
	atomic.AddUint64(&s.stats.Puts, 1)
	return s.Store.Put(ctx, p)
}

// Delete removes a product from the shard
// Increments delete counter for statistics
func (s *Shard) Delete(ctx context.Context, id string) error {
	atomic.AddUint64(&s.stats.Deletes, 1)
	return s.Store.Delete(ctx, id)
}

// FindByCode runs the intra-shard point query for a partition key
func (s *Shard) FindByCode(ctx context.Context, code int64) (catalog.Product, bool, error) {
	atomic.AddUint64(&s.stats.Gets, 1)
	return s.Store.FindByCode(ctx, code)
}

// List returns all products currently in the shard
func (s *Shard) List(ctx context.Context) ([]catalog.Product, error) {
	atomic.AddUint64(&s.stats.Gets, 1)
	return s.Store.List(ctx)
}

// Subscribe opens a live subscription on the shard's store
func (s *Shard) Subscribe() *storage.Subscription {
	return s.Store.Subscribe()
}

// State returns the shard's current state
func (s *Shard) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the shard state
func (s *Shard) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// GetStats returns current operation counters
func (s *Shard) GetStats() Stats {
	return Stats{
		Gets:    atomic.LoadUint64(&s.stats.Gets),
		Puts:    atomic.LoadUint64(&s.stats.Puts),
		Deletes: atomic.LoadUint64(&s.stats.Deletes),
	}
}

// Info returns metadata about the shard
func (s *Shard) Info() Info {
	return Info{
		ID:       s.ID,
		State:    s.State(),
		DocCount: s.Store.Stats().Docs,
		Ops:      s.GetStats(),
	}
}

// Close closes the shard's store and all its subscriptions
func (s *Shard) Close() error {
	return s.Store.Close()
}
