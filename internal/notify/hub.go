package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is one watcher of a listing, typically a websocket
// connection.  Its channel is closed when the subscription is removed,
// either by Unsubscribe, by the hub dropping a slow reader or by Close.
type Subscription struct {
	ID        string
	ListingID uint64

	ch     chan Event
	closed bool // guarded by the owning shard's mutex
}

// Events returns the stream of events for the watched listing.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Hub routes events to the subscriptions of a listing.  Subscriptions are
// spread over shards by listing id; publishing to one listing only locks its
// shard.  Publish never blocks: a subscription whose buffer is full is
// dropped and its channel closed.
type Hub struct {
	shards []hubShard
	buffer int
	closed atomic.Bool
}

type hubShard struct {
	mu   sync.Mutex
	subs map[uint64]map[*Subscription]struct{}
}

// NewHub creates a hub with the given shard count and per-subscription
// buffer.  Non-positive values fall back to 16 shards and 64 events.
func NewHub(shards, buffer int) *Hub {
	if shards <= 0 {
		shards = 16
	}
	if buffer <= 0 {
		buffer = 64
	}
	h := &Hub{shards: make([]hubShard, shards), buffer: buffer}
	for i := range h.shards {
		h.shards[i].subs = make(map[uint64]map[*Subscription]struct{})
	}
	return h
}

func (h *Hub) shard(listingID uint64) *hubShard {
	return &h.shards[listingID%uint64(len(h.shards))]
}

// Subscribe registers a new watcher of listingID.  After Close it returns a
// subscription whose channel is already closed.
func (h *Hub) Subscribe(listingID uint64) *Subscription {
	sub := &Subscription{
		ID:        uuid.NewString(),
		ListingID: listingID,
		ch:        make(chan Event, h.buffer),
	}
	sh := h.shard(listingID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if h.closed.Load() {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	set := sh.subs[listingID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		sh.subs[listingID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel.  It is safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sh := h.shard(sub.ListingID)
	sh.mu.Lock()
	sh.remove(sub)
	sh.mu.Unlock()
}

// remove must be called with sh.mu held.
func (sh *hubShard) remove(sub *Subscription) {
	if sub.closed {
		return
	}
	if set := sh.subs[sub.ListingID]; set != nil {
		delete(set, sub)
		if len(set) == 0 {
			delete(sh.subs, sub.ListingID)
		}
	}
	sub.closed = true
	close(sub.ch)
}

// Publish delivers ev to every current subscriber of listingID and returns
// how many received it.  Sends happen under the shard lock so all
// subscribers observe the events of a listing in publish order.
func (h *Hub) Publish(listingID uint64, ev Event) int {
	if h.closed.Load() {
		return 0
	}
	sh := h.shard(listingID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delivered := 0
	for sub := range sh.subs[listingID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			sh.remove(sub)
		}
	}
	return delivered
}

// Broadcast publishes ev to the watchers of ev.ListingID.  It lets the hub
// stand in wherever a Broadcaster is expected.
func (h *Hub) Broadcast(_ context.Context, ev Event) error {
	h.Publish(ev.ListingID, ev)
	return nil
}

// Count returns the number of watchers of listingID.
func (h *Hub) Count(listingID uint64) int {
	sh := h.shard(listingID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return len(sh.subs[listingID])
}

// Close drops every subscription.  Later Publish calls are no-ops.
func (h *Hub) Close() {
	if h.closed.Swap(true) {
		return
	}
	for i := range h.shards {
		sh := &h.shards[i]
		sh.mu.Lock()
		for _, set := range sh.subs {
			for sub := range set {
				sh.remove(sub)
			}
		}
		sh.mu.Unlock()
	}
}
