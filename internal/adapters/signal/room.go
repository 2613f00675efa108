package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

func (ctl *SignalWSController) handleCreateRoom(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
) {
	code, err := ctl.Orch.CreateRoom(ctx, sid)
	if err != nil {
		ctl.sendError(conn, seq, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(code)).Msg("room created")
	ctl.sendJSON(conn, struct {
		Type string          `json:"type"`
		Seq  int64           `json:"seq"`
		Room domain.RoomCode `json:"room"`
	}{"room-created", seq, code})
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendBadPayload(conn, seq)
		return
	}

	caps, err := ctl.Orch.JoinRoom(sid, domain.RoomCode(p.Room))
	if err != nil {
		ctl.sendError(conn, seq, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join")

	ctl.sendJSON(conn, struct {
		Type   string `json:"type"`
		Seq    int64  `json:"seq"`
		Room   string `json:"room"`
		Joined bool   `json:"joined"`
	}{"room-joined", seq, p.Room, true})

	// The joining connection needs the router capabilities before it can
	// consume anything.
	ctl.sendJSON(conn, app.RouterCapsEvent{
		Type:                  app.EventRouterCaps,
		RouterRTPCapabilities: caps,
	})
}

// handleLeave drops room membership, the connection stays up.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
) {
	if err := ctl.Orch.LeaveRoom(sid); err != nil {
		ctl.sendError(conn, seq, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		Seq  int64  `json:"seq"`
	}{"left", seq})
}

func (ctl *SignalWSController) handleChat(
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type chatPayload struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		Message string `json:"message"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendBadPayload(conn, seq)
		return
	}

	if err := ctl.Orch.Chat(sid, domain.RoomCode(p.Room), p.Message); err != nil {
		ctl.sendError(conn, seq, err)
	}
}
