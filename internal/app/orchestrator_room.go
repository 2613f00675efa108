package app

import (
	"context"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// CreateRoom generates a code and registers a room with the caller as host.
func (o *Orchestrator) CreateRoom(ctx context.Context, sid core.SessionID) (domain.RoomCode, error) {
	user, err := o.requireUser(sid)
	if err != nil {
		return "", err
	}
	ctx, cancel := o.boundCtx(ctx)
	defer cancel()
	room, err := o.Rooms.CreateRoom(ctx, "", user.UID)
	if err != nil {
		return "", err
	}
	return room.Code(), nil
}

// JoinRoom adds the caller to the room and returns the router capabilities
// the joining connection needs before it can consume anything. Joining a new
// room implicitly leaves the previous one.
func (o *Orchestrator) JoinRoom(sid core.SessionID, code domain.RoomCode) (webrtc.RTPCapabilities, error) {
	user, err := o.requireUser(sid)
	if err != nil {
		return webrtc.RTPCapabilities{}, err
	}
	conn, ok := o.Sessions.Conn(sid)
	if !ok {
		return webrtc.RTPCapabilities{}, core.ErrNotFound
	}
	room, err := o.Rooms.GetRoom(code)
	if err != nil {
		return webrtc.RTPCapabilities{}, err
	}

	if prev, ok := o.Sessions.RoomOf(sid); ok && prev != code {
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("from_room", string(prev)).Msg("leaving previous room on join")
		o.leaveCurrent(sid, user.UID)
	}

	if err := room.Join(user, conn); err != nil {
		return webrtc.RTPCapabilities{}, err
	}
	o.Sessions.SetRoom(sid, code)
	return room.RouterCapabilities(), nil
}

// LeaveRoom drops the caller's membership and resources and schedules the
// debounced sweep. Leaving while in no room is a no-op.
func (o *Orchestrator) LeaveRoom(sid core.SessionID) error {
	user, err := o.requireUser(sid)
	if err != nil {
		return err
	}
	o.leaveCurrent(sid, user.UID)
	return nil
}

func (o *Orchestrator) leaveCurrent(sid core.SessionID, uid domain.UserID) {
	// LeaveAll tolerates membership in zero, one or (defensively) more
	// rooms; the session's room pointer is just a hint.
	o.Rooms.LeaveAll(uid)
	o.Sessions.ClearRoom(sid)
	o.Cleanup.Schedule()
}

// Chat fans a message out to the caller's room.
func (o *Orchestrator) Chat(sid core.SessionID, code domain.RoomCode, message string) error {
	user, err := o.requireUser(sid)
	if err != nil {
		return err
	}
	room, err := o.Rooms.GetRoom(code)
	if err != nil {
		return err
	}
	return room.Chat(user.UID, message)
}
