package aggregator

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
	"github.com/dreamware/catalogd/internal/shard"
	"github.com/dreamware/catalogd/internal/storage"
)

// SubState is the lifecycle state of one shard subscription.
type SubState string

const (
	// StateUnsubscribed means no subscription is open for the shard
	StateUnsubscribed SubState = "unsubscribed"
	// StateSubscribing means the subscription is being opened
	StateSubscribing SubState = "subscribing"
	// StateActive means snapshots are being delivered
	StateActive SubState = "active"
	// StateFaulted means the shard's feed failed; the shard is logged
	// and excluded from the aggregate until it recovers
	StateFaulted SubState = "faulted"
)

// viewBuffer is how many views a slow consumer may lag behind before
// older views are dropped in its favor.
const viewBuffer = 16

// View is one published aggregate: the flattened union of all shard
// snapshots plus the filtered result set for the current search term.
type View struct {
	Products []catalog.Product `json:"products"`
	Filtered []catalog.Product `json:"filtered"`
}

// event is the only way shard data reaches the aggregate. Shard
// forwarders and search-term changes both go through the event channel
// so that exactly one goroutine ever mutates the merged view.
type event struct {
	shardID  string
	products []catalog.Product
	faulted  bool
	refilter bool
}

// Aggregator opens one live subscription per shard, merges the
// per-shard snapshots into a single collection ordered by shard then
// document ID, and republishes the merged plus filtered view on every
// change from any shard.
//
// All subscriptions start together (Start) and are torn down together
// (Stop); there is no partial subscription state exposed to callers.
// Stop is synchronous-and-complete: when it returns, no stale
// subscription callback can mutate the aggregate, so a new Start never
// observes leftovers from the previous session.
type Aggregator struct {
	log      *zap.Logger
	registry *coordinator.ShardRegistry

	mu         sync.Mutex
	subs       map[string]*storage.Subscription
	states     map[string]SubState
	term       string
	matchOwner bool
	running    bool

	// byShard is owned exclusively by the event loop while running;
	// Stop reclaims it only after the loop has exited.
	byShard map[string][]catalog.Product

	events chan event
	stop   chan struct{}
	out    chan View
	wg     sync.WaitGroup
}

// New creates an aggregator over the registry's shard set.
func New(log *zap.Logger, registry *coordinator.ShardRegistry) *Aggregator {
	a := &Aggregator{
		log:      log,
		registry: registry,
		subs:     make(map[string]*storage.Subscription),
		states:   make(map[string]SubState),
		byShard:  make(map[string][]catalog.Product),
		out:      make(chan View, viewBuffer),
	}
	for _, id := range registry.ShardIDs() {
		a.states[id] = StateUnsubscribed
	}
	return a
}

// Views returns the read-only stream of published aggregates. The
// channel stays valid across Start/Stop cycles. A slow reader misses
// intermediate views, never the latest one.
func (a *Aggregator) Views() <-chan View {
	return a.out
}

// SetTerm sets the search term and triggers a re-filter of the current
// aggregate. Safe to call whether or not the aggregator is running.
func (a *Aggregator) SetTerm(term string) {
	a.mu.Lock()
	a.term = term
	running := a.running
	events, stop := a.events, a.stop
	a.mu.Unlock()

	if running {
		select {
		case events <- event{refilter: true}:
		case <-stop:
		}
	}
}

// SetMatchOwner switches the filter to the administrative variant that
// also matches the owner label. Set before Start for a new session.
func (a *Aggregator) SetMatchOwner(matchOwner bool) {
	a.mu.Lock()
	a.matchOwner = matchOwner
	a.mu.Unlock()
}

// Term returns the current search term.
func (a *Aggregator) Term() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.term
}

// States returns a copy of the per-shard subscription states.
func (a *Aggregator) States() map[string]SubState {
	a.mu.Lock()
	defer a.mu.Unlock()
	states := make(map[string]SubState, len(a.states))
	for id, st := range a.states {
		states[id] = st
	}
	return states
}

// Start opens a live subscription on every shard and begins merging.
// All shards are subscribed together; a shard whose store is already
// gone enters Faulted immediately instead of failing the whole start.
// Calling Start while running is a no-op.
func (a *Aggregator) Start() {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.events = make(chan event, viewBuffer)
	a.stop = make(chan struct{})
	events, stop := a.events, a.stop

	shardIDs := a.registry.ShardIDs()
	for _, shardID := range shardIDs {
		a.states[shardID] = StateSubscribing
	}
	a.mu.Unlock()

	for _, shardID := range shardIDs {
		sh, err := a.registry.ShardFor(shardID)
		if err != nil || sh.State() == shard.StateFaulted {
			a.log.Warn("skipping faulted shard at subscribe time", zap.String("shard_id", shardID))
			a.setState(shardID, StateFaulted)
			continue
		}

		sub := sh.Subscribe()
		a.mu.Lock()
		a.subs[shardID] = sub
		a.states[shardID] = StateActive
		a.mu.Unlock()

		a.wg.Add(1)
		go a.forward(shardID, sub, events, stop)
	}

	a.wg.Add(1)
	go a.loop(events, stop)
}

// Stop tears down all shard subscriptions together and waits for the
// event loop and every forwarder to exit before returning. It then
// publishes an empty view so consumers draining the stream in order
// always end on the cleared aggregate, never on stale session data.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	subs := a.subs
	a.subs = make(map[string]*storage.Subscription)
	a.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	a.wg.Wait()

	a.mu.Lock()
	for _, id := range a.registry.ShardIDs() {
		a.states[id] = StateUnsubscribed
	}
	// The loop has exited; safe to reset its state here.
	a.byShard = make(map[string][]catalog.Product)
	a.mu.Unlock()

	a.publish()
}

// forward relays one shard's snapshot feed into the event channel.
// A closed feed outside of teardown means the shard faulted.
func (a *Aggregator) forward(shardID string, sub *storage.Subscription, events chan event, stop chan struct{}) {
	defer a.wg.Done()

	for {
		select {
		case snapshot, ok := <-sub.C:
			if !ok {
				select {
				case events <- event{shardID: shardID, faulted: true}:
				case <-stop:
				}
				return
			}
			select {
			case events <- event{shardID: shardID, products: snapshot}:
			case <-stop:
				return
			}
		case <-stop:
			return
		}
	}
}

// loop is the single goroutine that owns the merged view. Every shard
// snapshot replaces that shard's slice wholesale (never a delta) and
// the flattened union is republished immediately.
func (a *Aggregator) loop(events chan event, stop chan struct{}) {
	defer a.wg.Done()

	for {
		select {
		case ev := <-events:
			switch {
			case ev.faulted:
				a.log.Warn("shard subscription faulted, excluding from aggregate",
					zap.String("shard_id", ev.shardID))
				a.setState(ev.shardID, StateFaulted)
				delete(a.byShard, ev.shardID)
			case ev.refilter:
				// Term changed; just republish below.
			default:
				a.byShard[ev.shardID] = ev.products
			}
			a.publish()
		case <-stop:
			return
		}
	}
}

// publish rebuilds the flattened view from the per-shard snapshots and
// pushes it out. Ordering is shard placement order, then document ID,
// so repeated rebuilds of the same state are identical.
func (a *Aggregator) publish() {
	a.mu.Lock()
	term, matchOwner := a.term, a.matchOwner
	a.mu.Unlock()

	var flattened []catalog.Product
	for _, shardID := range a.registry.ShardIDs() {
		snapshot := a.byShard[shardID]
		withShard := make([]catalog.Product, len(snapshot))
		for i, p := range snapshot {
			p.ShardID = shardID
			withShard[i] = p
		}
		slices.SortFunc(withShard, func(a, b catalog.Product) int { return strings.Compare(a.ID, b.ID) })
		flattened = append(flattened, withShard...)
	}

	view := View{
		Products: flattened,
		Filtered: Filter(flattened, term, matchOwner),
	}

	for {
		select {
		case a.out <- view:
			return
		default:
			// Drop the oldest pending view; only the latest matters.
			select {
			case <-a.out:
			default:
			}
		}
	}
}

func (a *Aggregator) setState(shardID string, st SubState) {
	a.mu.Lock()
	a.states[shardID] = st
	a.mu.Unlock()
}
