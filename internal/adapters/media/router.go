package media

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Huddle/internal/core"
)

var errRouterClosed = errors.New("router closed")

type router struct {
	id     string
	engine *Engine
	caps   webrtc.RTPCapabilities

	mu     sync.Mutex
	closed bool
}

func (r *router) ID() string { return r.id }

func (r *router) RTPCapabilities() webrtc.RTPCapabilities { return r.caps }

func (r *router) CreateTransport(ctx context.Context) (core.Transport, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, errRouterClosed
	}
	return newTransport(ctx, r.engine.api, r.engine.iceServers)
}

// CanConsume checks that the subscriber's capabilities cover the producer's
// primary codec. Mime comparison is case-insensitive per RFC 4855.
func (r *router) CanConsume(producer core.Producer, caps webrtc.RTPCapabilities) bool {
	params := producer.RTPParameters()
	if len(params.Codecs) == 0 {
		return false
	}
	want := params.Codecs[0]
	for _, c := range caps.Codecs {
		if strings.EqualFold(c.MimeType, want.MimeType) && c.ClockRate == want.ClockRate {
			return true
		}
	}
	return false
}

// Close marks the router unusable. The owning room closes the transports it
// tracked; closing them twice here would be redundant, not harmful.
func (r *router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
