// Package catalog defines the product domain model shared by the
// coordinator, the aggregation layer and the service facade.
package catalog

import "strconv"

// Product is a single catalog record. Records are partitioned across
// shards by Code; ShardID is denormalized onto the record at read time
// by the aggregation layer and is never stored with the document.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Code       int64   `json:"code"` // partition key, unique within a shard
	Price      float64 `json:"price"`
	OwnerID    string  `json:"owner_id"`
	OwnerLabel string  `json:"owner_label"`
	ShardID    string  `json:"shard_id,omitempty"`
}

// CodeString returns the decimal form of the partition key, which is
// what the filter engine matches search terms against.
func (p Product) CodeString() string {
	return strconv.FormatInt(p.Code, 10)
}

// Patch describes a partial update to a product. Nil fields are left
// unchanged. Code is deliberately absent: placement is code-derived and
// a record never moves shards after creation.
type Patch struct {
	Name  *string  `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// Apply returns a copy of p with the patch's non-nil fields applied.
func (patch Patch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	return p
}
