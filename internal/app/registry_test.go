package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

func TestRegistryCreateRoomGeneratesValidCode(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())

	room, err := reg.CreateRoom(context.Background(), "", "alice")
	require.NoError(t, err)
	require.True(t, room.Code().Valid())
	require.Equal(t, domain.UserID("alice"), room.Creator())

	got, err := reg.GetRoom(room.Code())
	require.NoError(t, err)
	require.Same(t, room, got)
}

func TestRegistryCreateRoomIsIdempotentPerCode(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())

	first, err := reg.CreateRoom(context.Background(), "111222", "alice")
	require.NoError(t, err)
	second, err := reg.CreateRoom(context.Background(), "111222", "bob")
	require.NoError(t, err)

	require.Same(t, first, second)
	// The original creator sticks; the duplicate request does not hijack it.
	require.Equal(t, domain.UserID("alice"), second.Creator())
}

func TestRegistryCreateRoomEngineFailureRegistersNothing(t *testing.T) {
	engine := newFakeEngine()
	engine.failRouter = true
	reg := NewRoomRegistry(engine)

	_, err := reg.CreateRoom(context.Background(), "333444", "alice")
	require.ErrorIs(t, err, core.ErrEngineFailure)

	_, err = reg.GetRoom("333444")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistryConcurrentCreatesSameCodeLeakNoRouters(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRoomRegistry(engine)

	const n = 8
	rooms := make([]*Room, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room, err := reg.CreateRoom(context.Background(), "555666", "alice")
			require.NoError(t, err)
			rooms[i] = room
		}(i)
	}
	wg.Wait()

	for _, room := range rooms[1:] {
		require.Same(t, rooms[0], room)
	}

	// Every router except the winner's was closed on the spot.
	open := 0
	for _, router := range engine.routers {
		if router.closed.Load() == 0 {
			open++
		}
	}
	require.Equal(t, 1, open)
}

func TestRegistryGetRoomNotFound(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())
	_, err := reg.GetRoom("000000")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistryCloseRoomIsIdempotent(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRoomRegistry(engine)

	room, err := reg.CreateRoom(context.Background(), "777888", "alice")
	require.NoError(t, err)
	join(t, room, "alice")

	reg.CloseRoom("777888")
	reg.CloseRoom("777888")
	reg.CloseRoom("never-existed")

	_, err = reg.GetRoom("777888")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, int32(1), engine.routers[0].closed.Load())
}

func TestRegistryCloseRoomReleasesResourcesBeforeRemoval(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRoomRegistry(engine)

	room, err := reg.CreateRoom(context.Background(), "888999", "alice")
	require.NoError(t, err)
	join(t, room, "alice")

	closing := make(chan struct{})
	release := make(chan struct{})
	engine.routers[0].closeHook = func() {
		close(closing)
		<-release
	}

	done := make(chan struct{})
	go func() {
		reg.CloseRoom("888999")
		close(done)
	}()
	<-closing

	// While engine teardown is still in flight the room must not have
	// vanished from the registry: a lookup either blocks or still finds it.
	lookup := make(chan error, 1)
	go func() {
		_, err := reg.GetRoom("888999")
		lookup <- err
	}()
	select {
	case err := <-lookup:
		require.NoError(t, err)
	case <-time.After(50 * time.Millisecond):
		// blocked behind the close, which is fine
	}

	close(release)
	<-done
	require.Equal(t, int32(1), engine.routers[0].closed.Load())
	_, err = reg.GetRoom("888999")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistrySweepClosesCreatorlessAndEmptyRooms(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())

	hosted, err := reg.CreateRoom(context.Background(), "100001", "alice")
	require.NoError(t, err)
	join(t, hosted, "alice")
	bob := join(t, hosted, "bob")

	orphaned, err := reg.CreateRoom(context.Background(), "100002", "carol")
	require.NoError(t, err)
	join(t, orphaned, "dave") // carol never joined

	empty, err := reg.CreateRoom(context.Background(), "100003", "erin")
	require.NoError(t, err)
	_ = empty

	reg.Sweep()

	_, err = reg.GetRoom("100001")
	require.NoError(t, err)
	_, err = reg.GetRoom("100002")
	require.ErrorIs(t, err, core.ErrNotFound)
	_, err = reg.GetRoom("100003")
	require.ErrorIs(t, err, core.ErrNotFound)

	// Survivors saw nothing; evicted guests got sessionClosed.
	require.Equal(t, 0, bob.countType(EventSessionClosed))
}

func TestRegistrySweepNotifiesGuestsOfClosure(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())

	room, err := reg.CreateRoom(context.Background(), "200001", "alice")
	require.NoError(t, err)
	join(t, room, "alice")
	bob := join(t, room, "bob")

	require.True(t, room.Leave("alice"))
	reg.Sweep()

	require.Equal(t, 1, bob.countType(EventSessionClosed))
	_, err = reg.GetRoom("200001")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRegistryLeaveAllAndClearUserData(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())

	room, err := reg.CreateRoom(context.Background(), "300001", "alice")
	require.NoError(t, err)
	join(t, room, "alice")
	join(t, room, "bob")

	_, _, err = room.CreateTransport(context.Background(), "bob", core.DirectionSend)
	require.NoError(t, err)

	reg.ClearUserData("bob")
	transports, _, _ := room.resourceCounts()
	require.Equal(t, 0, transports)
	require.True(t, room.HasParticipant("bob"))

	reg.LeaveAll("bob")
	require.False(t, room.HasParticipant("bob"))
	require.Equal(t, 1, room.ParticipantCount())
}

func TestRegistryListReportsResourceCounts(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())

	room, err := reg.CreateRoom(context.Background(), "400001", "alice")
	require.NoError(t, err)
	join(t, room, "alice")
	send, _, err := room.CreateTransport(context.Background(), "alice", core.DirectionSend)
	require.NoError(t, err)
	_, err = room.Produce(context.Background(), "alice", send.ID, core.MediaKindAudio, core.RTPParameters{})
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 1)
	require.Equal(t, domain.RoomCode("400001"), list[0].Code)
	require.Equal(t, 1, list[0].Participants)
	require.Equal(t, 1, list[0].Transports)
	require.Equal(t, 1, list[0].Producers)
}

func TestRegistryCloseAll(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRoomRegistry(engine)

	for _, code := range []domain.RoomCode{"500001", "500002"} {
		room, err := reg.CreateRoom(context.Background(), code, "alice")
		require.NoError(t, err)
		join(t, room, "alice")
	}

	reg.CloseAll()

	require.Empty(t, reg.List())
	for _, router := range engine.routers {
		require.Equal(t, int32(1), router.closed.Load())
	}
}

func TestCleanupSchedulerDebouncesAndReadsLiveState(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())
	sched := NewCleanupScheduler(reg, 20*time.Millisecond)

	room, err := reg.CreateRoom(context.Background(), "600001", "alice")
	require.NoError(t, err)
	join(t, room, "alice")
	join(t, room, "bob")

	// Host drops out; a burst of leaves coalesces into one sweep.
	require.True(t, room.Leave("alice"))
	sched.Schedule()
	sched.Schedule()
	sched.Schedule()

	// The room is still there before the window elapses.
	_, err = reg.GetRoom("600001")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := reg.GetRoom("600001")
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestCleanupSchedulerRejoinWithinWindowKeepsRoomAlive(t *testing.T) {
	reg := NewRoomRegistry(newFakeEngine())
	sched := NewCleanupScheduler(reg, 30*time.Millisecond)

	room, err := reg.CreateRoom(context.Background(), "600002", "alice")
	require.NoError(t, err)
	join(t, room, "alice")
	join(t, room, "bob")

	require.True(t, room.Leave("alice"))
	sched.Schedule()

	// Host comes back before the sweep fires.
	join(t, room, "alice")

	time.Sleep(100 * time.Millisecond)
	_, err = reg.GetRoom("600002")
	require.NoError(t, err)
	require.True(t, room.CreatorPresent())
}
