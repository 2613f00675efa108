package app

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Server-push event names. The signaling adapter reuses these verbatim.
const (
	EventUserJoined    = "userJoined"
	EventUserLeft      = "userLeft"
	EventSessionClosed = "sessionClosed"
	EventChat          = "chat"
	EventNewProducer   = "new-producer"
	EventRouterCaps    = "router-rtp-capabilities"
)

type UserEvent struct {
	Type     string        `json:"type"`
	UID      domain.UserID `json:"uid"`
	Nickname string        `json:"nickname"`
}

type ChatEvent struct {
	Type     string        `json:"type"`
	UID      domain.UserID `json:"uid"`
	Nickname string        `json:"nickname"`
	Message  string        `json:"message"`
}

type NewProducerEvent struct {
	Type       string         `json:"type"`
	ProducerID string         `json:"producerId"`
	UID        domain.UserID  `json:"uid"`
	Kind       core.MediaKind `json:"kind"`
}

type SessionClosedEvent struct {
	Type string          `json:"type"`
	Room domain.RoomCode `json:"room"`
}

type RouterCapsEvent struct {
	Type                  string                 `json:"type"`
	RouterRTPCapabilities webrtc.RTPCapabilities `json:"routerRtpCapabilities"`
}

func encodeEvent(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
