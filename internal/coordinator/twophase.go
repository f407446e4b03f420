package coordinator

import (
	"context"

	"github.com/dreamware/catalogd/internal/catalog"
)

// TwoPhaseWrite performs the two-write commit used for create and
// delete: write1 targets the owning shard's collection, write2 the
// shard map. The underlying stores are independent databases with no
// cross-store transaction support, so this is sequential-and-hope:
//
//   - write2 runs only after write1 succeeds
//   - a write1 failure aborts the commit cleanly
//   - a write2 failure is NOT rolled back; it leaves an orphaned
//     record (create) or a dangling map entry (delete) and surfaces as
//     PartialCommit. A reconciliation pass is the assumed remedy.
//
// Keeping the pattern behind this helper keeps the no-rollback
// semantics in one documented place instead of ad hoc call sites.
func TwoPhaseWrite(ctx context.Context, write1, write2 func(context.Context) error) error {
	if err := write1(ctx); err != nil {
		return err
	}
	if err := write2(ctx); err != nil {
		return catalog.ErrPartialCommit.Wrap(err)
	}
	return nil
}
