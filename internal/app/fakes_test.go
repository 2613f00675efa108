package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// fakeConn records every frame the room pushes at a participant.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if json.Unmarshal(f, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeConn) eventTypes() []string {
	evs := c.events()
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		if t, ok := e["type"].(string); ok {
			out = append(out, t)
		}
	}
	return out
}

func (c *fakeConn) countType(t string) int {
	n := 0
	for _, et := range c.eventTypes() {
		if et == t {
			n++
		}
	}
	return n
}

// fakeEngine and friends count closes so tests can assert exactly-once
// teardown.
type fakeEngine struct {
	mu         sync.Mutex
	seq        int
	routers    []*fakeRouter
	failRouter bool
}

func newFakeEngine() *fakeEngine { return &fakeEngine{} }

func (e *fakeEngine) CreateRouter(_ context.Context) (core.Router, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failRouter {
		return nil, errors.New("router refused")
	}
	e.seq++
	r := &fakeRouter{id: fmt.Sprintf("router-%d", e.seq), engine: e, canConsume: true}
	e.routers = append(e.routers, r)
	return r, nil
}

func (e *fakeEngine) Close() {}

type fakeRouter struct {
	id         string
	engine     *fakeEngine
	canConsume bool
	failNext   bool
	closeHook  func()

	closed     atomic.Int32
	transports []*fakeTransport
	mu         sync.Mutex
}

func (r *fakeRouter) ID() string { return r.id }

func (r *fakeRouter) RTPCapabilities() webrtc.RTPCapabilities {
	return webrtc.RTPCapabilities{
		Codecs: []webrtc.RTPCodecCapability{{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}},
	}
}

func (r *fakeRouter) CreateTransport(_ context.Context) (core.Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return nil, errors.New("transport refused")
	}
	t := &fakeTransport{id: fmt.Sprintf("%s-transport-%d", r.id, len(r.transports)+1)}
	r.transports = append(r.transports, t)
	return t, nil
}

func (r *fakeRouter) CanConsume(core.Producer, webrtc.RTPCapabilities) bool { return r.canConsume }

func (r *fakeRouter) Close() {
	if r.closeHook != nil {
		r.closeHook()
	}
	r.closed.Add(1)
}

type fakeTransport struct {
	id          string
	seq         atomic.Int32
	closed      atomic.Int32
	connected   atomic.Bool
	connectHook func()
}

func (t *fakeTransport) ID() string { return t.id }

func (t *fakeTransport) Info() core.TransportInfo {
	return core.TransportInfo{ID: t.id}
}

func (t *fakeTransport) Connect(_ context.Context, _ core.TransportConnectParams) error {
	if t.connectHook != nil {
		t.connectHook()
	}
	t.connected.Store(true)
	return nil
}

func (t *fakeTransport) Produce(_ context.Context, kind core.MediaKind, params core.RTPParameters) (core.Producer, error) {
	n := t.seq.Add(1)
	return &fakeProducer{id: fmt.Sprintf("%s-producer-%d", t.id, n), kind: kind, params: params}, nil
}

func (t *fakeTransport) Consume(_ context.Context, producer core.Producer, _ webrtc.RTPCapabilities, _ bool) (core.Consumer, error) {
	n := t.seq.Add(1)
	return &fakeConsumer{id: fmt.Sprintf("%s-consumer-%d", t.id, n), kind: producer.Kind()}, nil
}

func (t *fakeTransport) Close() { t.closed.Add(1) }

type fakeProducer struct {
	id     string
	kind   core.MediaKind
	params core.RTPParameters
	closed atomic.Int32
}

func (p *fakeProducer) ID() string                        { return p.id }
func (p *fakeProducer) Kind() core.MediaKind              { return p.kind }
func (p *fakeProducer) RTPParameters() core.RTPParameters { return p.params }
func (p *fakeProducer) Close()                            { p.closed.Add(1) }

type fakeConsumer struct {
	id     string
	kind   core.MediaKind
	closed atomic.Int32
}

func (c *fakeConsumer) ID() string                        { return c.id }
func (c *fakeConsumer) Kind() core.MediaKind              { return c.kind }
func (c *fakeConsumer) RTPParameters() core.RTPParameters { return core.RTPParameters{} }
func (c *fakeConsumer) Pause()                            {}
func (c *fakeConsumer) Resume()                           {}
func (c *fakeConsumer) Close()                            { c.closed.Add(1) }

// fakeVerifier maps opaque tokens straight to uids.
type fakeVerifier struct {
	tokens map[string]domain.UserID
}

func (v *fakeVerifier) Verify(token string) (domain.UserID, error) {
	uid, ok := v.tokens[token]
	if !ok {
		return "", core.ErrUnauthenticated
	}
	return uid, nil
}

// fakeUserStore is the trusted store the identities come from.
type fakeUserStore struct {
	users map[domain.UserID]*domain.User
}

func (s *fakeUserStore) FindByUID(_ context.Context, uid domain.UserID) (*domain.User, error) {
	u, ok := s.users[uid]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByCredential(_ context.Context, _, _ string) (*domain.User, error) {
	return nil, core.ErrNotFound
}
