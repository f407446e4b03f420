// Package coordinator implements the orchestration layer of the distributed
// product catalog, managing the fixed shard topology, deterministic record
// placement, and the two-write commit that keeps the shard map coupled to
// each record's lifecycle.
//
// # Overview
//
// The coordinator is the single entry point for catalog writes. Every create,
// update, delete and ownership transfer flows through it; no other component
// mutates the shards or the shard map. Reads for listing never come here
// (they are served by the aggregation layer's live view), so the coordinator's
// shard map exists solely to resolve a record ID back to its owning shard for
// point operations.
//
// # Write Path
//
//	request ──► role / ownership check
//	                │
//	                ▼
//	        placement function
//	     shardIDs[code mod N]
//	                │
//	                ▼
//	      duplicate-code point query          (create only, intra-shard)
//	                │
//	                ▼
//	         TwoPhaseWrite
//	   write 1: shard collection
//	   write 2: shard map entry
//	                │
//	                ▼
//	   owning shard's live subscription fires,
//	   aggregation layer rebuilds the view
//
// # Consistency Model
//
// The shards and the shard map are independent stores with no cross-store
// transactions. The two-write commit is therefore best-effort sequential:
// write 2 only runs after write 1 succeeds, and a write 2 failure is logged
// and surfaced as PartialCommit with no rollback. The duplicate-code check is
// a read-then-write race by the same token. Both gaps are deliberate,
// documented tradeoffs of the storage model, not bugs to be patched here.
//
// # Components
//
//   - ShardRegistry: static shardID -> shard handle mapping plus the
//     placement function. Immutable after construction.
//   - Coordinator: the four write operations with their role gates.
//   - TwoPhaseWrite: the shared no-rollback commit helper.
//   - HealthMonitor: periodic store pings that flip shards between
//     active and faulted.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The registry is
// immutable; the coordinator holds no mutable state of its own; the health
// monitor guards its records with a RWMutex.
package coordinator
