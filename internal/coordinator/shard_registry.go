// Package coordinator implements the orchestration layer for the distributed
// product catalog. See doc.go for complete package documentation.
package coordinator

import (
	"errors"

	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/shard"
)

// ShardRegistry is the static mapping from shard identifier to its
// storage handle. It enumerates the fixed partition space and provides
// the deterministic placement function for new records.
//
// Unlike a dynamic cluster registry there is no assignment churn here:
// the shard set is fixed at construction, there is no rebalancing, no
// splitting and no replication. Placement must be stable across process
// restarts since it is never re-run on existing records.
//
// Thread Safety:
// The registry is immutable after construction and safe for concurrent
// use without locking.
type ShardRegistry struct {
	// shardIDs preserves construction order. Placement indexes into
	// this slice, so the order is part of the placement contract.
	shardIDs []string

	// shards maps shard IDs to their handles.
	shards map[string]*shard.Shard
}

// NewShardRegistry creates a registry over the given shards. The slice
// order is the placement order and must not change between restarts.
//
// Returns an error when the shard set is empty or contains a duplicate
// or empty identifier.
func NewShardRegistry(shards []*shard.Shard) (*ShardRegistry, error) {
	if len(shards) == 0 {
		return nil, errors.New("registry requires at least one shard")
	}

	r := &ShardRegistry{
		shardIDs: make([]string, 0, len(shards)),
		shards:   make(map[string]*shard.Shard, len(shards)),
	}
	for _, s := range shards {
		if s.ID == "" {
			return nil, errors.New("shard ID cannot be empty")
		}
		if _, dup := r.shards[s.ID]; dup {
			return nil, errors.New("duplicate shard ID: " + s.ID)
		}
		r.shardIDs = append(r.shardIDs, s.ID)
		r.shards[s.ID] = s
	}
	return r, nil
}

// ShardIDs returns the shard identifiers in placement order.
// Returns a copy to prevent external modification.
func (r *ShardRegistry) ShardIDs() []string {
	ids := make([]string, len(r.shardIDs))
	copy(ids, r.shardIDs)
	return ids
}

// NumShards returns the total number of shards.
func (r *ShardRegistry) NumShards() int {
	return len(r.shardIDs)
}

// ShardFor resolves a shard identifier to its handle.
//
// Returns ShardUnavailable when the identifier is not part of the
// configured partition space; that is fatal for the requested
// operation and is surfaced to the caller, never retried here.
func (r *ShardRegistry) ShardFor(shardID string) (*shard.Shard, error) {
	s, ok := r.shards[shardID]
	if !ok {
		return nil, catalog.ErrShardUnavailable.New("no shard %q configured", shardID)
	}
	return s, nil
}

// PlaceCode is the placement function: it maps a record's partition
// key deterministically onto a shard identifier.
//
//	shardID = shardIDs[code mod len(shardIDs)]
//
// Pure and total over the fixed shard set; the same code always maps
// to the same shard. Collisions of the same code are therefore only
// possible within one shard, which is why the duplicate-code check at
// create time is intra-shard only.
func (r *ShardRegistry) PlaceCode(code int64) string {
	idx := code % int64(len(r.shardIDs))
	if idx < 0 {
		idx += int64(len(r.shardIDs))
	}
	return r.shardIDs[idx]
}

// ShardForCode resolves the placement target for a partition key.
func (r *ShardRegistry) ShardForCode(code int64) (*shard.Shard, error) {
	return r.ShardFor(r.PlaceCode(code))
}

// Infos returns metadata for every shard in placement order.
func (r *ShardRegistry) Infos() []shard.Info {
	infos := make([]shard.Info, 0, len(r.shardIDs))
	for _, id := range r.shardIDs {
		infos = append(infos, r.shards[id].Info())
	}
	return infos
}

// Close closes every shard's store. The first error wins but all
// shards are closed regardless.
func (r *ShardRegistry) Close() error {
	var first error
	for _, id := range r.shardIDs {
		if err := r.shards[id].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
