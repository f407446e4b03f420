// Package aggregator implements the live aggregation layer of the product
// catalog: one subscription per shard, merged into a single consistent view,
// plus the pure filter engine that derives the visible result set.
//
// # Overview
//
// The catalog's shards are independent stores, each pushing full snapshots of
// its own contents. The aggregator turns those per-shard feeds into the one
// collection the rest of the system reads:
//
//	shard A feed ──┐
//	shard B feed ──┼──► event channel ──► event loop ──► View{Products, Filtered}
//	shard C feed ──┘                      (sole owner of
//	search term ───┘                       the merged map)
//
// # Rebuild-Wholesale Contract
//
// On every change notification the changed shard's slice of the aggregate is
// replaced wholesale with the delivered snapshot; nothing is patched across
// shards. Per-shard replacement is commutative (last snapshot per shard wins,
// and shard snapshots are independent), so no cross-shard ordering is needed.
// Within one shard, snapshots arrive in the shard's own commit order.
//
// # Subscription Lifecycle
//
// Each shard subscription moves through
//
//	Unsubscribed → Subscribing → Active → (error) Faulted
//	                                    → Unsubscribed on teardown
//
// Subscriptions for all shards start together and are torn down together;
// there is no partial subscription state. A faulted shard is logged and
// excluded from the aggregate; its error never propagates as a crash.
// Teardown is synchronous: Stop returns only after the event loop and every
// forwarder have exited, so no stale callback can mutate the aggregate before
// the next Start.
package aggregator
