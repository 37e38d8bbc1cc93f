package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bigtwo-lite/internal/events"
)

func TestFanOutToIndependentSubscribers(t *testing.T) {
	b := New(4)
	a := b.Subscribe("room1", "a")
	c := b.Subscribe("room1", "b")

	b.Publish(events.Event{Kind: events.PlayerJoined, RoomID: "room1"})

	select {
	case ev := <-a:
		require.Equal(t, events.PlayerJoined, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("subscriber a did not receive event")
	}
	select {
	case ev := <-c:
		require.Equal(t, events.PlayerJoined, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("subscriber b did not receive event")
	}
}

func TestOverflowDropsOnlyFullSubscriber(t *testing.T) {
	b := New(1)
	slow := b.Subscribe("room1", "slow")
	fast := b.Subscribe("room1", "fast")

	b.Publish(events.Event{Kind: events.ChatMessage, RoomID: "room1"})
	<-fast // fast keeps up; slow does not
	b.Publish(events.Event{Kind: events.ChatMessage, RoomID: "room1"}) // slow's buffer (cap 1) now overflows

	require.Len(t, slow, 1)
	// fast had room again, so it must still receive the second event that
	// slow dropped.
	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber received nothing")
	}
}

func TestCloseRoomClosesSubscriberChannels(t *testing.T) {
	b := New(4)
	ch := b.Subscribe("room1", "x")
	b.CloseRoom("room1")
	_, ok := <-ch
	require.False(t, ok)
}

func TestNoReplayBeforeSubscribe(t *testing.T) {
	b := New(4)
	b.Publish(events.Event{Kind: events.ChatMessage, RoomID: "room1"})
	ch := b.Subscribe("room1", "late")
	select {
	case <-ch:
		t.Fatal("late subscriber should not see events published before it subscribed")
	case <-time.After(50 * time.Millisecond):
	}
}
