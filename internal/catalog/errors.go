package catalog

import "github.com/zeebo/errs"

// Error taxonomy for coordinator operations. Callers switch on the
// class, not on message text.
var (
	// ErrUnauthorized means the role or ownership check failed. Never retried.
	ErrUnauthorized = errs.Class("unauthorized")

	// ErrDuplicateCode means a record with the same code already exists
	// in the target shard. The check is intra-shard only: the same code
	// in two different shards is accepted behavior, since placement is
	// code-derived and collisions can only occur within one shard.
	ErrDuplicateCode = errs.Class("duplicate code")

	// ErrShardUnavailable means a configured shard has no reachable
	// store. Fatal for the requested operation.
	ErrShardUnavailable = errs.Class("shard unavailable")

	// ErrInvalidProduct means the submitted record fields violate the
	// model invariants (empty name, non-positive code or price).
	ErrInvalidProduct = errs.Class("invalid product")

	// ErrPartialCommit means the first write of a two-write commit
	// succeeded and the second failed, leaving an orphaned record or a
	// dangling map entry. No compensating transaction is run; a
	// reconciliation pass is the assumed remedy.
	ErrPartialCommit = errs.Class("partial commit")
)
