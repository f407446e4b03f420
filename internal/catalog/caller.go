package catalog

// Role is the authorization level resolved for a caller by the external
// auth collaborator. The core never resolves roles itself.
type Role string

const (
	// RoleGuest may read the aggregated view but never write.
	RoleGuest Role = "guest"
	// RoleOwner may create records and manage records it owns.
	RoleOwner Role = "owner"
	// RoleAdmin may manage any record across all shards.
	RoleAdmin Role = "admin"
)

// CanWrite reports whether the role is allowed to create records.
func (r Role) CanWrite() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Elevated reports whether the role bypasses ownership checks.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

// Caller identifies the principal performing an operation.
type Caller struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Role  Role   `json:"role"`
}

// MayManage reports whether the caller may mutate the given record:
// either it owns the record or it holds an elevated role.
func (c Caller) MayManage(p Product) bool {
	if c.Role.Elevated() {
		return true
	}
	return c.Role == RoleOwner && c.ID == p.OwnerID
}
