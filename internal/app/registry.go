package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

const codeRetryLimit = 32

// RoomRegistry owns the code→Room mapping and the only path that creates or
// destroys rooms. Its lock guards the map alone; resource mutation happens
// under each room's own lock, and the registry lock is released before a
// room lock is taken.
type RoomRegistry struct {
	engine core.MediaEngine

	mu    sync.RWMutex
	rooms map[domain.RoomCode]*Room
}

func NewRoomRegistry(engine core.MediaEngine) *RoomRegistry {
	return &RoomRegistry{
		engine: engine,
		rooms:  make(map[domain.RoomCode]*Room),
	}
}

// CreateRoom registers a room under code, or under a freshly generated code
// when code is empty. A duplicate code returns the existing room so repeated
// client requests stay idempotent. The router is allocated before
// registration; if the engine refuses, nothing is registered.
func (r *RoomRegistry) CreateRoom(ctx context.Context, code domain.RoomCode, creator domain.UserID) (*Room, error) {
	if code != "" {
		r.mu.RLock()
		existing, ok := r.rooms[code]
		r.mu.RUnlock()
		if ok {
			log.Info().Str("module", "app.registry").Str("room", string(code)).Msg("duplicate create, returning existing room")
			return existing, nil
		}
	}

	router, err := r.engine.CreateRouter(ctx)
	if err != nil {
		return nil, engineErr("create router", err)
	}

	r.mu.Lock()
	if code == "" {
		generated, ok := r.generateCodeLocked()
		if !ok {
			r.mu.Unlock()
			router.Close()
			return nil, core.ErrAlreadyExists
		}
		code = generated
	} else if existing, ok := r.rooms[code]; ok {
		// Lost the race to a concurrent create for the same code.
		r.mu.Unlock()
		router.Close()
		return existing, nil
	}
	room := NewRoom(code, creator, router)
	r.rooms[code] = room
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("room", string(code)).Str("creator", string(creator)).Msg("room created")
	return room, nil
}

// generateCodeLocked retries the uniform generator until the code is free.
func (r *RoomRegistry) generateCodeLocked() (domain.RoomCode, bool) {
	for i := 0; i < codeRetryLimit; i++ {
		code := domain.NewRoomCode()
		if _, taken := r.rooms[code]; !taken {
			return code, true
		}
	}
	return "", false
}

func (r *RoomRegistry) GetRoom(code domain.RoomCode) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	return room, nil
}

// CloseRoom releases everything the room owns and then removes it. The close
// happens before the mapping disappears, so a lookup miss never coexists with
// live engine handles. Closing an absent or already-closed room is a no-op.
func (r *RoomRegistry) CloseRoom(code domain.RoomCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return
	}
	room.Close()
	delete(r.rooms, code)
}

// LeaveAll removes uid from every room that contains it. A user belongs to
// at most one room, but a stale membership elsewhere must not crash us.
func (r *RoomRegistry) LeaveAll(uid domain.UserID) {
	for _, room := range r.snapshot() {
		room.Leave(uid)
	}
}

// ClearUserData releases uid's transports/producers/consumers in every room
// without touching membership.
func (r *RoomRegistry) ClearUserData(uid domain.UserID) {
	for _, room := range r.snapshot() {
		room.ClearUser(uid)
	}
}

// Sweep closes rooms whose creator is gone or that are empty. It reads live
// participant state at fire time, so a rejoin inside the debounce window
// keeps the room alive. Each closure is idempotent and a failure on one room
// never stops the rest.
func (r *RoomRegistry) Sweep() {
	for _, room := range r.snapshot() {
		if !room.CreatorPresent() {
			log.Info().Str("module", "app.registry").Str("room", string(room.Code())).Msg("sweep: creator absent, closing")
			r.CloseRoom(room.Code())
			continue
		}
		if room.ParticipantCount() == 0 {
			log.Info().Str("module", "app.registry").Str("room", string(room.Code())).Msg("sweep: room empty, closing")
			r.CloseRoom(room.Code())
		}
	}
}

// CloseAll is the shutdown path.
func (r *RoomRegistry) CloseAll() {
	for _, room := range r.snapshot() {
		r.CloseRoom(room.Code())
	}
	r.engine.Close()
}

func (r *RoomRegistry) snapshot() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}

// RoomInfo is the read-only view for the inspection API.
type RoomInfo struct {
	Code         domain.RoomCode `json:"code"`
	Participants int             `json:"participants"`
	Transports   int             `json:"transports"`
	Producers    int             `json:"producers"`
	Consumers    int             `json:"consumers"`
}

func (r *RoomRegistry) List() []RoomInfo {
	rooms := r.snapshot()
	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		t, p, c := room.resourceCounts()
		out = append(out, RoomInfo{
			Code:         room.Code(),
			Participants: room.ParticipantCount(),
			Transports:   t,
			Producers:    p,
			Consumers:    c,
		})
	}
	return out
}
