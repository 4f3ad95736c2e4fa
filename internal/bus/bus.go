// Package bus is the Event Bus (spec §4.5): a typed, in-process pub-sub
// keyed by partyId, with bounded per-subscriber queues so one slow
// subscriber can never block another, or the publisher. Modeled on the
// teacher's buffered-channel signaling in internal/game/table.go
// (stateChange chan struct{}) generalized from a single broadcast
// signal to a typed, filtered, multi-subscriber fanout.
package bus

import (
	"sync"

	"zapzap/internal/domain"
	"zapzap/internal/metrics"
)

// subscriberQueueDepth bounds how many unread events a subscriber can
// accumulate before the bus starts dropping its oldest unread event.
const subscriberQueueDepth = 64

// Bus fans out domain.Events to subscribers. The zero value is not
// usable; construct with New.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	partyID string // empty means "all parties"
	userID  string // empty means "any user"
	ch      chan domain.Event
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Subscription is the handle a caller holds to read events and later
// unsubscribe.
type Subscription struct {
	id   int
	bus  *Bus
	Chan <-chan domain.Event
}

// Subscribe registers a new subscriber. An empty partyID matches events
// for every party; a non-empty userID additionally filters to events
// addressed to that user, mirroring spec §4.5's userId/partyId keying.
func (b *Bus) Subscribe(partyID, userID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Event, subscriberQueueDepth)
	id := b.next
	b.next++
	b.subs[id] = &subscription{partyID: partyID, userID: userID, ch: ch}
	return &Subscription{id: id, bus: b, Chan: ch}
}

// Unsubscribe removes the subscription and closes its channel. Safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	sub, ok := s.bus.subs[s.id]
	if !ok {
		return
	}
	delete(s.bus.subs, s.id)
	close(sub.ch)
}

// Publish fans evt out to every matching subscriber. Call sites in
// internal/core hold the party's lock for the duration of Publish, so
// subscribers of one party observe events in the order the core applied
// them (spec §4.5's per-party ordering guarantee). A full subscriber
// queue drops its oldest event to make room rather than blocking the
// publisher, so one stalled reader cannot stall the party lock.
func (b *Bus) Publish(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.partyID != "" && sub.partyID != evt.PartyID {
			continue
		}
		if sub.userID != "" && sub.userID != evt.UserID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			metrics.EventBusDrops.Inc()
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}

	depth := 0
	for _, sub := range b.subs {
		depth += len(sub.ch)
	}
	metrics.EventBusQueueDepth.Set(float64(depth))
}
