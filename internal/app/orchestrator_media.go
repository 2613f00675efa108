package app

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// CreateTransport provisions an engine transport for the caller. For recv
// transports the returned announcements tell the caller about producers that
// already exist in the room.
func (o *Orchestrator) CreateTransport(ctx context.Context, sid core.SessionID, code domain.RoomCode, dir core.TransportDirection) (core.TransportInfo, []NewProducerEvent, error) {
	user, err := o.requireUser(sid)
	if err != nil {
		return core.TransportInfo{}, nil, err
	}
	room, err := o.Rooms.GetRoom(code)
	if err != nil {
		return core.TransportInfo{}, nil, err
	}
	ctx, cancel := o.boundCtx(ctx)
	defer cancel()
	return room.CreateTransport(ctx, user.UID, dir)
}

func (o *Orchestrator) ConnectTransport(ctx context.Context, sid core.SessionID, code domain.RoomCode, transportID string, params core.TransportConnectParams) error {
	user, err := o.requireUser(sid)
	if err != nil {
		return err
	}
	room, err := o.Rooms.GetRoom(code)
	if err != nil {
		return err
	}
	ctx, cancel := o.boundCtx(ctx)
	defer cancel()
	return room.ConnectTransport(ctx, user.UID, transportID, params)
}

func (o *Orchestrator) Produce(ctx context.Context, sid core.SessionID, code domain.RoomCode, transportID string, kind core.MediaKind, params core.RTPParameters) (string, error) {
	user, err := o.requireUser(sid)
	if err != nil {
		return "", err
	}
	room, err := o.Rooms.GetRoom(code)
	if err != nil {
		return "", err
	}
	ctx, cancel := o.boundCtx(ctx)
	defer cancel()
	return room.Produce(ctx, user.UID, transportID, kind, params)
}

func (o *Orchestrator) Consume(ctx context.Context, sid core.SessionID, code domain.RoomCode, producerID string, caps webrtc.RTPCapabilities) (core.ConsumerInfo, error) {
	user, err := o.requireUser(sid)
	if err != nil {
		return core.ConsumerInfo{}, err
	}
	room, err := o.Rooms.GetRoom(code)
	if err != nil {
		return core.ConsumerInfo{}, err
	}
	ctx, cancel := o.boundCtx(ctx)
	defer cancel()
	return room.Consume(ctx, user.UID, producerID, caps)
}
