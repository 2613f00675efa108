package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Orchestrator implements every signaling operation on top of the injected
// registries. It is the only layer adapters talk to; all failures come back
// as taxonomy errors, never panics.
type Orchestrator struct {
	Sessions *SessionRegistry
	Users    core.UserStore
	Tokens   core.TokenVerifier
	Rooms    *RoomRegistry
	Cleanup  *CleanupScheduler

	// EngineTimeout bounds suspension points (engine and store calls).
	// Zero disables the bound.
	EngineTimeout time.Duration
}

func (o *Orchestrator) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.EngineTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.EngineTimeout)
}

// Authenticate verifies the signed token and loads the identity. Every other
// operation requires this to have succeeded on the connection.
func (o *Orchestrator) Authenticate(ctx context.Context, sid core.SessionID, token string) (*domain.User, error) {
	uid, err := o.Tokens.Verify(token)
	if err != nil {
		return nil, core.ErrUnauthenticated
	}
	ctx, cancel := o.boundCtx(ctx)
	defer cancel()
	user, err := o.Users.FindByUID(ctx, uid)
	if err != nil {
		// A valid token for an unknown uid is still an auth failure.
		return nil, core.ErrUnauthenticated
	}
	if err := o.Sessions.SetUser(sid, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (o *Orchestrator) requireUser(sid core.SessionID) (*domain.User, error) {
	user, ok := o.Sessions.User(sid)
	if !ok {
		return nil, core.ErrUnauthenticated
	}
	return user, nil
}

// Disconnect releases everything the connection's identity held and
// schedules the cleanup sweep. Safe for never-authenticated connections.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	if user, ok := o.Sessions.User(sid); ok {
		o.Rooms.LeaveAll(user.UID)
		o.Cleanup.Schedule()
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("uid", string(user.UID)).Msg("disconnected")
	}
	o.Sessions.Unbind(sid)
}
