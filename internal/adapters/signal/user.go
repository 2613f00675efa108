package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

func (ctl *SignalWSController) handleAuthenticate(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type authPayload struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var p authPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad authenticate payload")
		ctl.sendBadPayload(conn, seq)
		return
	}

	user, err := ctl.Orch.Authenticate(ctx, sid, p.Token)
	if err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("authenticate rejected")
		ctl.sendError(conn, seq, err)
		return
	}

	ctl.sendJSON(conn, struct {
		Type     string        `json:"type"`
		Seq      int64         `json:"seq"`
		UID      domain.UserID `json:"uid"`
		Nickname string        `json:"nickname"`
	}{"authenticated", seq, user.UID, user.Nickname})
}
