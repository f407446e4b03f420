// Package shard implements the fundamental storage unit of the distributed
// product catalog: a self-contained, thread-safe partition owning a disjoint
// subset of product records together with its own document store.
//
// # Overview
//
// A shard is the atomic unit of data distribution. Which shard owns a record
// is decided once, at creation time, by the coordinator's placement function
// (code mod shard count); records never move between shards afterwards.
// The shard wraps its storage.Store with operation counters and a state flag
// used by the aggregation layer to exclude unreachable partitions.
//
// # Structure
//
//	┌─────────────────────────────────────┐
//	│              SHARD                  │
//	├─────────────────────────────────────┤
//	│  ┌──────────────────────────────┐   │
//	│  │  Document Store              │   │
//	│  │  - memory or boltdb backend  │   │
//	│  │  - live snapshot feed        │   │
//	│  └──────────────────────────────┘   │
//	│  ┌──────────────────────────────┐   │
//	│  │  Metadata                    │   │
//	│  │  - shard ID                  │   │
//	│  │  - state (active/faulted)    │   │
//	│  │  - op statistics             │   │
//	│  └──────────────────────────────┘   │
//	└─────────────────────────────────────┘
//
// # Thread Safety
//
// Operation counters use atomics, state changes are mutex-protected, and the
// underlying store is itself safe for concurrent use, so a shard may be shared
// freely between the coordinator and the aggregation layer.
package shard
