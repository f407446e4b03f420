// Package storage defines the per-shard document store interface and provides
// concrete implementations for the catalog's persistence layer, enabling
// pluggable storage backends with a consistent API for document and
// live-subscription operations.
//
// # Overview
//
// Each shard in the catalog owns exactly one Store. The store holds that
// shard's disjoint subset of product documents and pushes a full snapshot of
// its contents to every open subscription after each commit. Subscribers never
// receive deltas: the snapshot-wholesale contract is what lets the aggregation
// layer replace a shard's slice of the merged view atomically.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        Application Layer            │
//	│   (Coordinator, Aggregator)         │
//	└─────────────────────────────────────┘
//	                 │
//	                 ▼
//	┌─────────────────────────────────────┐
//	│         Store Interface             │
//	│  (Get/Put/Delete/List/FindByCode,   │
//	│       Subscribe, Ping)              │
//	└─────────────────────────────────────┘
//	                 │
//	        ┌────────┴────────┐
//	        ▼                 ▼
//	  ┌──────────┐      ┌──────────┐
//	  │  Memory  │      │   Bolt   │
//	  │  Store   │      │  Store   │
//	  └──────────┘      └──────────┘
//
// # Implementations
//
// MemoryStore: in-memory map with sync.RWMutex
//   - Fast operations, no persistence
//   - Suitable for tests and ephemeral deployments
//
// BoltStore: boltdb file, one file per shard
//   - JSON documents in a single bucket
//   - Survives restarts; single-writer transactions
//
// # Subscriptions
//
// Subscribe returns a Subscription seeded with the current snapshot. Every
// subsequent commit delivers a fresh full snapshot on Subscription.C in the
// shard's own commit order. A slow subscriber may miss intermediate snapshots
// (the oldest pending snapshot is dropped when its buffer fills) but always
// converges to the latest state. Closing the store closes all subscriptions.
//
// # Thread Safety
//
// All Store implementations are safe for concurrent use. Snapshot fanout goes
// through a single hub so no store mutates subscriber state directly.
package storage
