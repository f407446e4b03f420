// Package service exposes the catalog to the presentation collaborator:
// the search entry point, the per-role write operations, and the
// read-only stream of aggregated views. It also owns the session
// lifecycle, starting all shard subscriptions when the caller becomes
// authenticated and tearing them all down on sign-out.
package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/aggregator"
	"github.com/dreamware/catalogd/internal/auth"
	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
)

// watcherBuffer bounds each watcher's pending views; older views are
// dropped in favor of newer ones.
const watcherBuffer = 4

// Service is the UI-facing facade over the coordinator and the
// aggregation layer. Writes complete when durably submitted; the
// updated view always arrives asynchronously through the view stream,
// never as a synchronous result, so failures are never reflected
// optimistically.
type Service struct {
	log      *zap.Logger
	coord    *coordinator.Coordinator
	agg      *aggregator.Aggregator
	provider auth.Provider

	mu       sync.Mutex
	identity auth.Identity
	latest   aggregator.View
	hasView  bool
	watchers map[chan aggregator.View]struct{}

	pumpStop chan struct{}
	pumpDone chan struct{}
}

// New creates the service and starts pumping aggregated views into the
// watcher fanout. Close releases the pump.
func New(log *zap.Logger, coord *coordinator.Coordinator, agg *aggregator.Aggregator, provider auth.Provider) *Service {
	s := &Service{
		log:      log,
		coord:    coord,
		agg:      agg,
		provider: provider,
		identity: auth.Identity{IsLoading: true},
		watchers: make(map[chan aggregator.View]struct{}),
		pumpStop: make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	return s
}

// RefreshIdentity re-resolves the caller identity and reconciles the
// subscription set:
//
//   - still loading: no decision yet, leave subscriptions untouched
//   - authenticated: tear down any previous set completely, then start
//     a fresh one for the new identity
//   - signed out / guest: tear everything down
//
// Teardown always completes before a new subscription set starts.
func (s *Service) RefreshIdentity(ctx context.Context) error {
	id, err := s.provider.Resolve(ctx)
	if err != nil {
		return err
	}
	if id.IsLoading {
		return nil
	}

	s.mu.Lock()
	previous := s.identity
	s.identity = id
	s.mu.Unlock()

	if previous.Authenticated() {
		s.agg.Stop()
	}
	if id.Authenticated() {
		s.agg.SetMatchOwner(id.Role.Elevated())
		s.agg.Start()
	} else {
		s.agg.Stop()
	}
	return nil
}

// Identity returns the most recently applied identity.
func (s *Service) Identity() auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Search sets the search term and triggers a re-filter. The refiltered
// view arrives on the view stream.
func (s *Service) Search(term string) {
	s.agg.SetTerm(term)
}

// SearchTerm returns the currently applied search term.
func (s *Service) SearchTerm() string {
	return s.agg.Term()
}

// AddProduct creates a product on behalf of the current caller.
func (s *Service) AddProduct(ctx context.Context, data coordinator.NewProduct) (catalog.Product, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	return s.coord.CreateProduct(ctx, data, caller)
}

// UpdateProduct patches a product in the given shard.
func (s *Service) UpdateProduct(ctx context.Context, id, shardID string, patch catalog.Patch) error {
	caller, err := s.caller(ctx)
	if err != nil {
		return err
	}
	return s.coord.UpdateProduct(ctx, id, shardID, patch, caller)
}

// DeleteProduct removes a product and its shard-map entry.
func (s *Service) DeleteProduct(ctx context.Context, id, shardID string) error {
	caller, err := s.caller(ctx)
	if err != nil {
		return err
	}
	return s.coord.DeleteProduct(ctx, id, shardID, caller)
}

// ReassignOwner transfers a record to a new owner (elevated only).
func (s *Service) ReassignOwner(ctx context.Context, id, shardID string, newOwner catalog.Caller) error {
	caller, err := s.caller(ctx)
	if err != nil {
		return err
	}
	return s.coord.ReassignOwner(ctx, id, shardID, newOwner, caller)
}

// ResolveShard resolves a record ID to its owning shard via the shard
// map, for point operations only.
func (s *Service) ResolveShard(ctx context.Context, id string) (string, error) {
	return s.coord.ResolveShard(ctx, id)
}

// Snapshot returns the most recently published view. ok is false until
// the first view has been published.
func (s *Service) Snapshot() (view aggregator.View, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasView
}

// Watch registers a view watcher. The returned cancel function must be
// called to release it. A watcher that falls behind misses intermediate
// views but always receives the latest.
func (s *Service) Watch() (<-chan aggregator.View, func()) {
	ch := make(chan aggregator.View, watcherBuffer)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	if s.hasView {
		ch <- s.latest
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the view pump. It does not stop the aggregator; callers
// own that lifecycle via RefreshIdentity or directly.
func (s *Service) Close() {
	close(s.pumpStop)
	<-s.pumpDone
}

// caller resolves the current identity into a coordinator caller.
// An unresolved or guest identity is rejected before any shard I/O.
func (s *Service) caller(ctx context.Context) (catalog.Caller, error) {
	id, err := s.provider.Resolve(ctx)
	if err != nil {
		return catalog.Caller{}, err
	}
	if id.IsLoading {
		return catalog.Caller{}, catalog.ErrUnauthorized.New("identity not resolved yet")
	}
	if !id.Role.CanWrite() {
		return catalog.Caller{}, catalog.ErrUnauthorized.New("role %q may not write", id.Role)
	}
	return id.Caller(), nil
}

// pump is the single consumer of the aggregator's view stream. It
// caches the latest view and fans it out to watchers.
func (s *Service) pump() {
	defer close(s.pumpDone)

	for {
		select {
		case view := <-s.agg.Views():
			s.mu.Lock()
			s.latest = view
			s.hasView = true
			for ch := range s.watchers {
				for {
					select {
					case ch <- view:
					default:
						select {
						case <-ch:
						default:
						}
						continue
					}
					break
				}
			}
			s.mu.Unlock()
		case <-s.pumpStop:
			return
		}
	}
}
