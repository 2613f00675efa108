package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type sessionEntry struct {
	User   *domain.User
	Conn   core.SignalConnection
	Room   domain.RoomCode
	Cancel context.CancelFunc
}

// SessionRegistry tracks per-connection state: the verified identity, the
// signal endpoint and the current room, keyed by the connection's sid.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (r *SessionRegistry) Bind(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("bound session")
}

// SetUser attaches the verified identity. The identity is immutable for the
// connection's lifetime: a repeat authenticate for the same uid refreshes the
// entry, a different uid is rejected.
func (r *SessionRegistry) SetUser(sid core.SessionID, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return core.ErrNotFound
	}
	if e.User != nil && e.User.UID != user.UID {
		log.Warn().Str("module", "app.sessions").Str("sid", string(sid)).Str("uid", string(e.User.UID)).Str("attempted", string(user.UID)).Msg("identity switch rejected")
		return core.ErrAlreadyExists
	}
	e.User = user
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Str("uid", string(user.UID)).Msg("authenticated")
	return nil
}

func (r *SessionRegistry) User(sid core.SessionID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.User == nil {
		return nil, false
	}
	return e.User, true
}

func (r *SessionRegistry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Conn == nil {
		return nil, false
	}
	return e.Conn, true
}

func (r *SessionRegistry) SetRoom(sid core.SessionID, code domain.RoomCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Room = code
	}
}

func (r *SessionRegistry) ClearRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Room = ""
	}
}

func (r *SessionRegistry) RoomOf(sid core.SessionID) (domain.RoomCode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

// Unbind drops the entry and releases the connection's context so the pumps
// derived from it terminate.
func (r *SessionRegistry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("unbind session")
}
