// Package auth is the boundary to the external authentication and
// role-resolution collaborator. The catalog core never resolves
// credentials itself; it only consumes resolved identities.
package auth

import (
	"context"
	"sync"

	"github.com/dreamware/catalogd/internal/catalog"
)

// Identity is the resolved caller identity used as an authorization
// input. IsLoading=true means "no decision yet": the core must suspend
// its subscription logic until resolution completes.
type Identity struct {
	CallerID  string       `json:"caller_id"`
	Label     string       `json:"label"`
	Role      catalog.Role `json:"role"`
	IsLoading bool         `json:"is_loading"`
}

// Authenticated reports whether the identity is resolved and allowed
// to hold shard subscriptions (guests read nothing).
func (id Identity) Authenticated() bool {
	return !id.IsLoading && id.CallerID != "" && id.Role != catalog.RoleGuest && id.Role != ""
}

// Caller converts the identity into the caller value the coordinator's
// write operations authorize against.
func (id Identity) Caller() catalog.Caller {
	return catalog.Caller{ID: id.CallerID, Label: id.Label, Role: id.Role}
}

// Provider resolves the current caller identity.
type Provider interface {
	Resolve(ctx context.Context) (Identity, error)
}

// StaticProvider holds a mutable identity, used by the server (header
// derived identities), the CLI and tests.
type StaticProvider struct {
	mu sync.RWMutex
	id Identity
}

// NewStaticProvider creates a provider that starts unresolved.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{id: Identity{IsLoading: true}}
}

// Resolve returns the currently held identity.
func (p *StaticProvider) Resolve(ctx context.Context) (Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.id, nil
}

// Set replaces the held identity.
func (p *StaticProvider) Set(id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
}

// SignOut resets the identity to an unauthenticated guest.
func (p *StaticProvider) SignOut() {
	p.Set(Identity{Role: catalog.RoleGuest})
}
