package coordinator

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/shardmap"
)

// NewProduct carries the caller-supplied fields for a create.
type NewProduct struct {
	Name  string  `json:"name"`
	Code  int64   `json:"code"`
	Price float64 `json:"price"`
}

// Coordinator orchestrates catalog writes across a target shard and the
// shard map using the two-write commit pattern. It is the only
// component that mutates the shard map.
//
// Completion of a write means "durably submitted": the updated
// aggregate view arrives asynchronously via the owning shard's live
// subscription, never as a synchronous return value. Failed writes are
// therefore never reflected optimistically anywhere.
type Coordinator struct {
	log      *zap.Logger
	registry *ShardRegistry
	shardMap shardmap.Map

	// newID generates record IDs; swapped out in tests
	newID func() string
}

// New creates a coordinator over the given registry and shard map.
func New(log *zap.Logger, registry *ShardRegistry, m shardmap.Map) *Coordinator {
	return &Coordinator{
		log:      log,
		registry: registry,
		shardMap: m,
		newID:    uuid.NewString,
	}
}

// Registry returns the coordinator's shard registry.
func (c *Coordinator) Registry() *ShardRegistry {
	return c.registry
}

// CreateProduct places and creates a new record.
//
// The caller must hold a writing role. The target shard is chosen by
// the placement function; the duplicate-code check is a point query
// against that shard only. On success write 1 creates the record in
// the shard's collection and write 2 creates the shard-map entry; a
// failed write 2 leaves an orphaned record and surfaces as
// PartialCommit (see TwoPhaseWrite).
//
// The duplicate check is read-then-write without a transaction, so two
// genuinely concurrent creates with the same code can both slip in.
// Accepted weak-consistency tradeoff, not silently fixed.
func (c *Coordinator) CreateProduct(ctx context.Context, data NewProduct, caller catalog.Caller) (catalog.Product, error) {
	if !caller.Role.CanWrite() {
		return catalog.Product{}, catalog.ErrUnauthorized.New("role %q may not create products", caller.Role)
	}
	if err := validateNewProduct(data); err != nil {
		return catalog.Product{}, err
	}

	shardID := c.registry.PlaceCode(data.Code)
	sh, err := c.registry.ShardFor(shardID)
	if err != nil {
		return catalog.Product{}, err
	}

	if _, found, err := sh.FindByCode(ctx, data.Code); err != nil {
		return catalog.Product{}, catalog.ErrShardUnavailable.Wrap(err)
	} else if found {
		return catalog.Product{}, catalog.ErrDuplicateCode.New("code %d already exists in shard %s", data.Code, shardID)
	}

	p := catalog.Product{
		ID:         c.newID(),
		Name:       data.Name,
		Code:       data.Code,
		Price:      data.Price,
		OwnerID:    caller.ID,
		OwnerLabel: caller.Label,
	}

	err = TwoPhaseWrite(ctx,
		func(ctx context.Context) error { return sh.Put(ctx, p) },
		func(ctx context.Context) error { return c.shardMap.Set(ctx, p.ID, shardID) },
	)
	if err != nil {
		if catalog.ErrPartialCommit.Has(err) {
			c.log.Error("create left orphaned record without map entry",
				zap.String("record_id", p.ID),
				zap.String("shard_id", shardID),
				zap.Error(err))
		}
		return catalog.Product{}, err
	}

	p.ShardID = shardID
	return p, nil
}

// UpdateProduct applies a patch to a record in its shard.
//
// The shard ID is resolved by the caller beforehand, normally from the
// aggregated view, or via ResolveShard for point lookups. This is a
// single write: the shard never changes post-creation so the shard map
// is not touched.
func (c *Coordinator) UpdateProduct(ctx context.Context, id, shardID string, patch catalog.Patch, caller catalog.Caller) error {
	sh, err := c.registry.ShardFor(shardID)
	if err != nil {
		return err
	}

	p, err := sh.Get(ctx, id)
	if err != nil {
		return err
	}
	if !caller.MayManage(p) {
		return catalog.ErrUnauthorized.New("caller %s may not update record %s", caller.ID, id)
	}

	return sh.Put(ctx, patch.Apply(p))
}

// DeleteProduct removes a record and its shard-map entry.
//
// Same authorization as update. Commit order mirrors create: delete
// the record from the shard first, then the map entry. A failed second
// write leaves a dangling map entry and surfaces as PartialCommit.
func (c *Coordinator) DeleteProduct(ctx context.Context, id, shardID string, caller catalog.Caller) error {
	sh, err := c.registry.ShardFor(shardID)
	if err != nil {
		return err
	}

	p, err := sh.Get(ctx, id)
	if err != nil {
		return err
	}
	if !caller.MayManage(p) {
		return catalog.ErrUnauthorized.New("caller %s may not delete record %s", caller.ID, id)
	}

	err = TwoPhaseWrite(ctx,
		func(ctx context.Context) error { return sh.Delete(ctx, id) },
		func(ctx context.Context) error { return c.shardMap.Delete(ctx, id) },
	)
	if err != nil && catalog.ErrPartialCommit.Has(err) {
		c.log.Error("delete left dangling shard-map entry",
			zap.String("record_id", id),
			zap.String("shard_id", shardID),
			zap.Error(err))
	}
	return err
}

// ReassignOwner transfers ownership of a record, used when an owning
// account is removed and its records are transferred rather than
// deleted. Elevated role only; single write, no map mutation.
func (c *Coordinator) ReassignOwner(ctx context.Context, id, shardID string, newOwner catalog.Caller, caller catalog.Caller) error {
	if !caller.Role.Elevated() {
		return catalog.ErrUnauthorized.New("role %q may not reassign ownership", caller.Role)
	}

	sh, err := c.registry.ShardFor(shardID)
	if err != nil {
		return err
	}

	p, err := sh.Get(ctx, id)
	if err != nil {
		return err
	}
	p.OwnerID = newOwner.ID
	p.OwnerLabel = newOwner.Label

	return sh.Put(ctx, p)
}

// ResolveShard resolves a record ID to its owning shard via the shard
// map. Listing never goes through here; this is for point operations
// where the caller doesn't already hold the shard ID.
func (c *Coordinator) ResolveShard(ctx context.Context, id string) (string, error) {
	return c.shardMap.Get(ctx, id)
}

// validateNewProduct enforces the record invariants: non-empty name,
// positive partition key, positive price.
func validateNewProduct(data NewProduct) error {
	switch {
	case data.Name == "":
		return catalog.ErrInvalidProduct.New("name must not be empty")
	case data.Code <= 0:
		return catalog.ErrInvalidProduct.New("code must be positive, got %d", data.Code)
	case data.Price <= 0:
		return catalog.ErrInvalidProduct.New("price must be positive, got %v", data.Price)
	}
	return nil
}
