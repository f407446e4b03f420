package storage

import (
	"sync"

	"github.com/dreamware/catalogd/internal/catalog"
)

// subscriptionBuffer is how many snapshots a slow subscriber may lag
// behind before older snapshots are dropped in its favor.
const subscriptionBuffer = 16

// Subscription is one live feed of shard snapshots. Snapshots arrive on
// C in the shard's commit order; only full snapshots are delivered,
// never deltas, so a dropped intermediate snapshot is harmless.
type Subscription struct {
	C <-chan []catalog.Product

	ch   chan []catalog.Product
	once sync.Once
	hub  *hub
}

// Close detaches the subscription from its store and closes C.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.hub != nil {
			s.hub.remove(s)
		}
		close(s.ch)
	})
}

// hub fans shard snapshots out to subscribers. It is the single code
// path through which stores publish changes, so the snapshot-wholesale
// contract holds for every backend.
type hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[*Subscription]struct{})}
}

// subscribe registers a new subscription and seeds it with the given
// snapshot so subscribers always start from the current state.
func (h *hub) subscribe(seed []catalog.Product) *Subscription {
	ch := make(chan []catalog.Product, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		// Store already closed; hand back a closed subscription.
		sub.once.Do(func() { close(ch) })
		return sub
	}
	h.subs[sub] = struct{}{}
	sub.ch <- seed
	return sub
}

// publish delivers a snapshot to every subscriber. When a subscriber's
// buffer is full the oldest pending snapshot is dropped; the subscriber
// still converges because every delivery is a full snapshot.
func (h *hub) publish(snapshot []catalog.Product) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		for {
			select {
			case sub.ch <- snapshot:
			default:
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (h *hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// close closes every open subscription and rejects new ones
func (h *hub) close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*Subscription]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}
