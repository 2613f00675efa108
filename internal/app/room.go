package app

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// TransportEntry binds an engine transport to its owner and direction.
type TransportEntry struct {
	UID       domain.UserID
	Direction core.TransportDirection
	Transport core.Transport
}

// ProducerEntry is a stream a participant sends into the room.
type ProducerEntry struct {
	UID      domain.UserID
	Producer core.Producer
}

// ConsumerEntry references a producer, it never owns it.
type ConsumerEntry struct {
	UID        domain.UserID
	ProducerID string
	Consumer   core.Consumer
}

type participant struct {
	user *domain.User
	conn core.SignalConnection
}

// Room owns one router context, the engine resources created within it and
// the participant set. A single mutex serializes every read-then-write
// operation, including the engine call it wraps, so a produce and a
// clearUser for the same uid can never interleave on a half-torn-down
// transport. The one exception is the connect handshake, which is
// client-paced and runs outside the lock. The registry lock is never taken
// while a room lock is held.
type Room struct {
	code    domain.RoomCode
	creator domain.UserID
	router  core.Router

	mu           sync.Mutex
	closed       bool
	participants map[domain.UserID]*participant
	transports   []*TransportEntry
	producers    []*ProducerEntry
	consumers    []*ConsumerEntry
}

func NewRoom(code domain.RoomCode, creator domain.UserID, router core.Router) *Room {
	return &Room{
		code:         code,
		creator:      creator,
		router:       router,
		participants: make(map[domain.UserID]*participant),
	}
}

func (r *Room) Code() domain.RoomCode  { return r.code }
func (r *Room) Creator() domain.UserID { return r.creator }

func (r *Room) RouterCapabilities() webrtc.RTPCapabilities {
	return r.router.RTPCapabilities()
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

func (r *Room) HasParticipant(uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.participants[uid]
	return ok
}

// CreatorPresent reports whether the host still participates. Its sustained
// absence is what the cleanup sweep acts on.
func (r *Room) CreatorPresent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.participants[r.creator]
	return ok
}

// Join adds the user and fans out userJoined on the shared room channel,
// the new member's own connection included. Joining twice just refreshes
// the connection; there is never a duplicate participant entry.
func (r *Room) Join(user *domain.User, conn core.SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return core.ErrNotFound
	}
	r.participants[user.UID] = &participant{user: user, conn: conn}
	r.broadcastLocked("", UserEvent{Type: EventUserJoined, UID: user.UID, Nickname: user.Nickname})
	log.Info().Str("module", "app.room").Str("room", string(r.code)).Str("uid", string(user.UID)).Msg("participant joined")
	return nil
}

// Leave removes the participant, tears down every resource it owned and
// broadcasts userLeft to the remaining members. Returns false if the uid
// was not a participant.
func (r *Room) Leave(uid domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[uid]
	if !ok {
		return false
	}
	r.clearUserLocked(uid)
	delete(r.participants, uid)
	r.broadcastLocked("", UserEvent{Type: EventUserLeft, UID: uid, Nickname: p.user.Nickname})
	log.Info().Str("module", "app.room").Str("room", string(r.code)).Str("uid", string(uid)).Msg("participant left")
	return true
}

// ClearUser releases every transport/producer/consumer owned by uid without
// touching membership. Safe against double calls and already-closed handles.
func (r *Room) ClearUser(uid domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearUserLocked(uid)
}

func (r *Room) clearUserLocked(uid domain.UserID) {
	kept := r.consumers[:0]
	for _, e := range r.consumers {
		if e.UID == uid {
			e.Consumer.Close()
			continue
		}
		kept = append(kept, e)
	}
	r.consumers = kept

	keptP := r.producers[:0]
	for _, e := range r.producers {
		if e.UID == uid {
			e.Producer.Close()
			continue
		}
		keptP = append(keptP, e)
	}
	r.producers = keptP

	keptT := r.transports[:0]
	for _, e := range r.transports {
		if e.UID == uid {
			e.Transport.Close()
			continue
		}
		keptT = append(keptT, e)
	}
	r.transports = keptT
}

// Chat fans the message out on the shared room channel, sender included.
func (r *Room) Chat(uid domain.UserID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[uid]
	if !ok {
		return core.ErrUnauthorized
	}
	r.broadcastLocked("", ChatEvent{Type: EventChat, UID: uid, Nickname: p.user.Nickname, Message: message})
	return nil
}

// CreateTransport allocates an engine transport bound to uid+direction. For
// recv transports it also returns the announcements for every producer other
// participants already publish, read under the same lock so a concurrent
// produce is either announced here or broadcast, never both or neither.
// A second recv transport for the same uid replaces the first.
func (r *Room) CreateTransport(ctx context.Context, uid domain.UserID, dir core.TransportDirection) (core.TransportInfo, []NewProducerEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return core.TransportInfo{}, nil, core.ErrNotFound
	}
	if _, ok := r.participants[uid]; !ok {
		return core.TransportInfo{}, nil, core.ErrUnauthorized
	}

	if dir == core.DirectionRecv {
		kept := r.transports[:0]
		for _, e := range r.transports {
			if e.UID == uid && e.Direction == core.DirectionRecv {
				e.Transport.Close()
				log.Info().Str("module", "app.room").Str("room", string(r.code)).Str("uid", string(uid)).Msg("replaced recv transport")
				continue
			}
			kept = append(kept, e)
		}
		r.transports = kept
	}

	transport, err := r.router.CreateTransport(ctx)
	if err != nil {
		return core.TransportInfo{}, nil, engineErr("create transport", err)
	}
	r.transports = append(r.transports, &TransportEntry{UID: uid, Direction: dir, Transport: transport})

	var announce []NewProducerEvent
	if dir == core.DirectionRecv {
		for _, e := range r.producers {
			if e.UID == uid {
				continue
			}
			announce = append(announce, NewProducerEvent{
				Type:       EventNewProducer,
				ProducerID: e.Producer.ID(),
				UID:        e.UID,
				Kind:       e.Producer.Kind(),
			})
		}
	}
	return transport.Info(), announce, nil
}

// ConnectTransport completes the ICE/DTLS handshake on a transport owned by
// the caller. The handshake is client-paced and can take seconds, so it runs
// outside the room lock; a transport torn down mid-handshake surfaces as an
// engine error.
func (r *Room) ConnectTransport(ctx context.Context, uid domain.UserID, transportID string, params core.TransportConnectParams) error {
	r.mu.Lock()
	entry := r.transportByIDLocked(transportID)
	if entry == nil {
		r.mu.Unlock()
		return core.ErrNotFound
	}
	if entry.UID != uid {
		r.mu.Unlock()
		return core.ErrUnauthorized
	}
	transport := entry.Transport
	r.mu.Unlock()

	if err := transport.Connect(ctx, params); err != nil {
		return engineErr("connect transport", err)
	}
	return nil
}

// Produce creates a producer on the caller's send transport and broadcasts
// new-producer to every other connection in the room.
func (r *Room) Produce(ctx context.Context, uid domain.UserID, transportID string, kind core.MediaKind, params core.RTPParameters) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.transportByIDLocked(transportID)
	if entry == nil {
		return "", core.ErrNotFound
	}
	if entry.UID != uid || entry.Direction != core.DirectionSend {
		return "", core.ErrUnauthorized
	}
	producer, err := entry.Transport.Produce(ctx, kind, params)
	if err != nil {
		return "", engineErr("produce", err)
	}
	r.producers = append(r.producers, &ProducerEntry{UID: uid, Producer: producer})
	r.broadcastLocked(uid, NewProducerEvent{
		Type:       EventNewProducer,
		ProducerID: producer.ID(),
		UID:        uid,
		Kind:       producer.Kind(),
	})
	log.Info().Str("module", "app.room").Str("room", string(r.code)).Str("uid", string(uid)).Str("producer", producer.ID()).Str("kind", string(kind)).Msg("producer created")
	return producer.ID(), nil
}

// Consume creates a consumer for producerID on the caller's recv transport,
// gated by the engine capability check. Consumers start unpaused.
func (r *Room) Consume(ctx context.Context, uid domain.UserID, producerID string, caps webrtc.RTPCapabilities) (core.ConsumerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var transport core.Transport
	for _, e := range r.transports {
		if e.UID == uid && e.Direction == core.DirectionRecv {
			transport = e.Transport
			break
		}
	}
	if transport == nil {
		return core.ConsumerInfo{}, core.ErrNotFound
	}
	var producer core.Producer
	for _, e := range r.producers {
		if e.Producer.ID() == producerID {
			producer = e.Producer
			break
		}
	}
	if producer == nil {
		return core.ConsumerInfo{}, core.ErrNotFound
	}
	if !r.router.CanConsume(producer, caps) {
		return core.ConsumerInfo{}, core.ErrCapabilityMismatch
	}
	consumer, err := transport.Consume(ctx, producer, caps, false)
	if err != nil {
		return core.ConsumerInfo{}, engineErr("consume", err)
	}
	r.consumers = append(r.consumers, &ConsumerEntry{UID: uid, ProducerID: producerID, Consumer: consumer})
	return core.ConsumerInfo{
		ID:            consumer.ID(),
		ProducerID:    producerID,
		Kind:          consumer.Kind(),
		RTPParameters: consumer.RTPParameters(),
	}, nil
}

// Close tears the room down exactly once: sessionClosed to remaining
// members, then every transport, producer and consumer handle, then the
// router. Best-effort; handle closes are idempotent on the engine side.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.broadcastLocked("", SessionClosedEvent{Type: EventSessionClosed, Room: r.code})
	for _, e := range r.transports {
		e.Transport.Close()
	}
	for _, e := range r.producers {
		e.Producer.Close()
	}
	for _, e := range r.consumers {
		e.Consumer.Close()
	}
	r.router.Close()
	r.transports = nil
	r.producers = nil
	r.consumers = nil
	r.participants = make(map[domain.UserID]*participant)
	log.Info().Str("module", "app.room").Str("room", string(r.code)).Msg("room closed")
}

func (r *Room) transportByIDLocked(id string) *TransportEntry {
	for _, e := range r.transports {
		if e.Transport.ID() == id {
			return e
		}
	}
	return nil
}

// broadcastLocked fans an event out to every participant, skipping except
// when non-empty. Delivery order per room equals mutation order because the
// room lock is held.
func (r *Room) broadcastLocked(except domain.UserID, v any) {
	frame, err := encodeEvent(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.room").Msg("broadcast encode")
		return
	}
	for uid, p := range r.participants {
		if except != "" && uid == except {
			continue
		}
		if err := p.conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.room").Str("room", string(r.code)).Str("uid", string(uid)).Msg("broadcast drop")
		}
	}
}

// counters used by tests and the /api/rooms surface.
func (r *Room) resourceCounts() (transports, producers, consumers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transports), len(r.producers), len(r.consumers)
}

func engineErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout
	}
	return core.EngineError(op, err)
}
