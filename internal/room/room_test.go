package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/events"
	"bigtwo-lite/internal/identity"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c := New(bus.New(16), identity.NewNameSource(16))
	t.Cleanup(c.Stop)
	return c
}

func TestCreateSeatsHostAtSeatZero(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	snap := r.Snapshot()
	require.Equal(t, "p1", snap.HostID)
	require.NotNil(t, snap.Seats[0])
	require.Equal(t, "p1", snap.Seats[0].PlayerID)
	require.Equal(t, "human", snap.Seats[0].Kind)
}

func TestJoinAssignsLowestFreeSeat(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")

	_, err := c.Join(r.ID, "p2", "Bob")
	require.Nil(t, err)
	snap := r.Snapshot()
	require.NotNil(t, snap.Seats[1])
	require.Equal(t, "p2", snap.Seats[1].PlayerID)
}

func TestJoinRejectsDuplicatePlayer(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	_, err := c.Join(r.ID, "p1", "Alice")
	require.NotNil(t, err)
	require.Equal(t, KindAlreadyJoined, err.Kind)
}

func TestJoinRejectsFullRoom(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	_, err := c.Join(r.ID, "p2", "Bob")
	require.Nil(t, err)
	_, err = c.Join(r.ID, "p3", "Carl")
	require.Nil(t, err)
	_, err = c.Join(r.ID, "p4", "Dana")
	require.Nil(t, err)

	_, err = c.Join(r.ID, "p5", "Eve")
	require.NotNil(t, err)
	require.Equal(t, KindRoomFull, err.Kind)
}

// TestHostSucceedsToLowestRemainingHuman covers spec §8 scenario 4: when the
// host leaves, the next-lowest-indexed remaining human becomes host.
func TestHostSucceedsToLowestRemainingHuman(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	_, err := c.Join(r.ID, "p2", "Bob")
	require.Nil(t, err)
	_, err = c.Join(r.ID, "p3", "Carl")
	require.Nil(t, err)

	require.Nil(t, c.Leave(r.ID, "p1"))
	require.Equal(t, "p2", r.Snapshot().HostID)
}

// TestLastHumanLeavingDisbandsBotOnlyRoom covers invariant I3: a room with
// bots but zero humans is deleted immediately.
func TestLastHumanLeavingDisbandsBotOnlyRoom(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	_, err := c.AddBot(r.ID)
	require.Nil(t, err)

	require.Nil(t, c.Leave(r.ID, "p1"))

	_, gerr := c.Get(r.ID)
	require.NotNil(t, gerr)
	require.Equal(t, KindRoomNotFound, gerr.Kind)
}

func TestAddAndRemoveBot(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")

	botID, err := c.AddBot(r.ID)
	require.Nil(t, err)
	require.NotEmpty(t, botID)

	snap := r.Snapshot()
	require.NotNil(t, snap.Seats[1])
	require.Equal(t, "bot", snap.Seats[1].Kind)

	require.Nil(t, c.RemoveBot(r.ID, botID))
	require.Nil(t, r.Snapshot().Seats[1])
}

// TestDeleteTearsDownOccupiedRoom covers the host-delete path (spec.md:61):
// unlike Leave, Delete disbands the room even while humans remain seated.
func TestDeleteTearsDownOccupiedRoom(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	_, err := c.Join(r.ID, "p2", "Bob")
	require.Nil(t, err)

	require.Nil(t, c.Delete(r.ID))

	_, gerr := c.Get(r.ID)
	require.NotNil(t, gerr)
	require.Equal(t, KindRoomNotFound, gerr.Kind)
}

func TestDeleteUnknownRoomReturnsNotFound(t *testing.T) {
	c := newTestCoordinator(t)
	err := c.Delete("no-such-room")
	require.NotNil(t, err)
	require.Equal(t, KindRoomNotFound, err.Kind)
}

// TestPlayerLeaveRequestedReachesCoordinator covers spec §8 scenario 4's only
// entry point for a non-host human: a LEAVE frame publishes
// PlayerLeaveRequested on the room's bus, and the coordinator's own control
// subscriber must turn that into a real Leave call.
func TestPlayerLeaveRequestedReachesCoordinator(t *testing.T) {
	b := bus.New(16)
	c := New(b, identity.NewNameSource(16))
	t.Cleanup(c.Stop)

	r := c.Create("p1", "Alice")
	_, err := c.Join(r.ID, "p2", "Bob")
	require.Nil(t, err)
	_, err = c.Join(r.ID, "p3", "Carl")
	require.Nil(t, err)

	b.Publish(events.Event{Kind: events.PlayerLeaveRequested, RoomID: r.ID, Payload: events.PlayerLeaveRequestedPayload{SeatID: "p1"}})

	require.Eventually(t, func() bool {
		return r.Snapshot().HostID == "p2"
	}, time.Second, 5*time.Millisecond, "host succession did not run after PlayerLeaveRequested")
	require.Eventually(t, func() bool {
		return r.Snapshot().Seats[0] == nil
	}, time.Second, 5*time.Millisecond, "seat 0 was not freed after PlayerLeaveRequested")
}

func TestIdleForIsFalseWhileAHumanIsSeated(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	require.False(t, r.idleFor(0))
}

// TestIdleForTrueAfterLastHumanGone exercises the reaper's idleFor check
// directly: Leave's own disband path only fires for a room with zero humans
// regardless of bots, so this drives the same lastHumanAt bookkeeping the
// ticker-driven sweepIdle relies on as its backup check.
func TestIdleForTrueAfterLastHumanGone(t *testing.T) {
	c := newTestCoordinator(t)
	r := c.Create("p1", "Alice")
	_, err := c.Join(r.ID, "p2", "Bob")
	require.Nil(t, err)

	require.Nil(t, c.Leave(r.ID, "p1"))
	require.False(t, r.idleFor(0), "p2 is still seated")

	require.Nil(t, c.Leave(r.ID, "p2"))
	require.True(t, r.idleFor(0), "no human is seated any more")
	// the room has already been deleted by Leave's own I3 check at this
	// point, so Get should fail rather than the room merely being idle.
	_, gerr := c.Get(r.ID)
	require.NotNil(t, gerr)
}
