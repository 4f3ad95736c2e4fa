package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapzap/internal/domain"
)

func TestSubscribeFiltersByPartyID(t *testing.T) {
	b := New()
	sub := b.Subscribe("party-1", "")
	defer sub.Unsubscribe()

	b.Publish(domain.Event{Type: domain.EventPlayerJoined, PartyID: "party-2"})
	b.Publish(domain.Event{Type: domain.EventPlayerJoined, PartyID: "party-1"})

	select {
	case evt := <-sub.Chan:
		assert.Equal(t, "party-1", evt.PartyID)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}

	select {
	case evt, ok := <-sub.Chan:
		if ok {
			t.Fatalf("unexpected second event: %+v", evt)
		}
	default:
	}
}

func TestSubscribeFiltersByUserID(t *testing.T) {
	b := New()
	sub := b.Subscribe("", "user-1")
	defer sub.Unsubscribe()

	b.Publish(domain.Event{Type: domain.EventStateChanged, PartyID: "p", UserID: "user-2"})
	b.Publish(domain.Event{Type: domain.EventStateChanged, PartyID: "p", UserID: "user-1"})

	evt := <-sub.Chan
	require.Equal(t, "user-1", evt.UserID)
}

func TestPublishDropsOldestWhenSubscriberQueueFull(t *testing.T) {
	b := New()
	sub := b.Subscribe("p", "")
	defer sub.Unsubscribe()

	for i := 0; i < subscriberQueueDepth+10; i++ {
		b.Publish(domain.Event{Type: domain.EventStateChanged, PartyID: "p", Payload: map[string]any{"i": i}})
	}

	// The channel never blocks the publisher and always holds at most
	// subscriberQueueDepth events.
	assert.LessOrEqual(t, len(sub.Chan), subscriberQueueDepth)

	// The 10 oldest events (i = 0..9) were dropped to make room.
	evt := <-sub.Chan
	assert.Equal(t, 10, evt.Payload["i"])
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe("p", "")
	sub.Unsubscribe()

	_, ok := <-sub.Chan
	assert.False(t, ok)
}
