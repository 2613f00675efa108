package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(ctx, sid, c, data)
		}
	}
}

// handleSignal is the event boundary: every handler failure is reported to
// the caller's ack and never tears the connection down.
func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
		Seq  int64  `json:"seq"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "authenticate":
		ctl.handleAuthenticate(ctx, sid, c, env.Seq, data)
	case "create-room":
		ctl.handleCreateRoom(ctx, sid, c, env.Seq)
	case "join-room":
		ctl.handleJoin(sid, c, env.Seq, data)
	case "leave-room":
		ctl.handleLeave(sid, c, env.Seq)
	case "chat":
		ctl.handleChat(sid, c, env.Seq, data)
	case "create-transport":
		ctl.handleCreateTransport(ctx, sid, c, env.Seq, data)
	case "connect-transport":
		ctl.handleConnectTransport(ctx, sid, c, env.Seq, data)
	case "produce":
		ctl.handleProduce(ctx, sid, c, env.Seq, data)
	case "consume":
		ctl.handleConsume(ctx, sid, c, env.Seq, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, seq int64, err error) {
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Seq   int64  `json:"seq"`
		Code  string `json:"code"`
		Error string `json:"error"`
	}{"error", seq, core.ErrorCode(err), err.Error()})
}

func (ctl *SignalWSController) sendBadPayload(c *WsSignalConn, seq int64) {
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Seq   int64  `json:"seq"`
		Code  string `json:"code"`
		Error string `json:"error"`
	}{"error", seq, "BAD_PAYLOAD", "bad payload"})
}
