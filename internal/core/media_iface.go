package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

type TransportDirection string

const (
	DirectionSend TransportDirection = "send"
	DirectionRecv TransportDirection = "recv"
)

// RTPParameters describes one media stream in engine terms: the negotiated
// codecs plus the stream encodings (SSRCs) the client will send or receive.
type RTPParameters struct {
	MID       string                       `json:"mid,omitempty"`
	Codecs    []webrtc.RTPCodecParameters  `json:"codecs"`
	Encodings []webrtc.RTPCodingParameters `json:"encodings"`
}

// TransportInfo is everything a client needs to connect to a transport.
type TransportInfo struct {
	ID             string                `json:"id"`
	ICEParameters  webrtc.ICEParameters  `json:"iceParameters"`
	ICECandidates  []webrtc.ICECandidate `json:"iceCandidates"`
	DTLSParameters webrtc.DTLSParameters `json:"dtlsParameters"`
}

// TransportConnectParams carries the client's end of the handshake. ICE
// parameters ride along with the DTLS ones because the engine authenticates
// the remote ufrag before it will complete the DTLS handshake.
type TransportConnectParams struct {
	ICEParameters  webrtc.ICEParameters  `json:"iceParameters"`
	DTLSParameters webrtc.DTLSParameters `json:"dtlsParameters"`
}

// ConsumerInfo is the ack payload for a successful consume.
type ConsumerInfo struct {
	ID            string        `json:"id"`
	ProducerID    string        `json:"producerId"`
	Kind          MediaKind     `json:"kind"`
	RTPParameters RTPParameters `json:"rtpParameters"`
}

// MediaEngine is the selective-forwarding engine the control plane drives.
// Creation calls are the suspension points of signaling handlers, so they
// take a context; Close on every handle is idempotent.
type MediaEngine interface {
	CreateRouter(ctx context.Context) (Router, error)
	Close()
}

// Router is one room's media routing context.
type Router interface {
	ID() string
	RTPCapabilities() webrtc.RTPCapabilities
	CreateTransport(ctx context.Context) (Transport, error)
	// CanConsume reports whether a subscriber with the given capabilities
	// can receive the producer's stream.
	CanConsume(producer Producer, caps webrtc.RTPCapabilities) bool
	Close()
}

// Transport is one negotiated network path between a client and the engine.
type Transport interface {
	ID() string
	Info() TransportInfo
	Connect(ctx context.Context, params TransportConnectParams) error
	Produce(ctx context.Context, kind MediaKind, params RTPParameters) (Producer, error)
	Consume(ctx context.Context, producer Producer, caps webrtc.RTPCapabilities, paused bool) (Consumer, error)
	Close()
}

// Producer is an inbound stream the engine forwards to consumers.
type Producer interface {
	ID() string
	Kind() MediaKind
	RTPParameters() RTPParameters
	Close()
}

// Consumer is a forwarded copy of a producer delivered to one subscriber.
type Consumer interface {
	ID() string
	Kind() MediaKind
	RTPParameters() RTPParameters
	Pause()
	Resume()
	Close()
}
