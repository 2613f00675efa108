package signal

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

func (ctl *SignalWSController) handleCreateTransport(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type payload struct {
		Type      string `json:"type"`
		Room      string `json:"room"`
		Direction string `json:"direction"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-transport payload")
		ctl.sendBadPayload(conn, seq)
		return
	}
	dir := core.TransportDirection(p.Direction)
	if dir != core.DirectionSend && dir != core.DirectionRecv {
		ctl.sendBadPayload(conn, seq)
		return
	}

	info, announce, err := ctl.Orch.CreateTransport(ctx, sid, domain.RoomCode(p.Room), dir)
	if err != nil {
		ctl.sendError(conn, seq, err)
		return
	}

	ctl.sendJSON(conn, struct {
		Type      string             `json:"type"`
		Seq       int64              `json:"seq"`
		Direction string             `json:"direction"`
		Transport core.TransportInfo `json:"transport"`
	}{"transport-created", seq, p.Direction, info})

	// A fresh recv transport learns about every producer already live in
	// the room.
	for _, ev := range announce {
		ctl.sendJSON(conn, ev)
	}
}

func (ctl *SignalWSController) handleConnectTransport(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type payload struct {
		Type           string                `json:"type"`
		Room           string                `json:"room"`
		TransportID    string                `json:"transportId"`
		ICEParameters  webrtc.ICEParameters  `json:"iceParameters"`
		DTLSParameters webrtc.DTLSParameters `json:"dtlsParameters"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad connect-transport payload")
		ctl.sendBadPayload(conn, seq)
		return
	}

	err := ctl.Orch.ConnectTransport(ctx, sid, domain.RoomCode(p.Room), p.TransportID, core.TransportConnectParams{
		ICEParameters:  p.ICEParameters,
		DTLSParameters: p.DTLSParameters,
	})
	if err != nil {
		ctl.sendError(conn, seq, err)
		return
	}
	ctl.sendJSON(conn, struct {
		Type        string `json:"type"`
		Seq         int64  `json:"seq"`
		TransportID string `json:"transportId"`
	}{"transport-connected", seq, p.TransportID})
}

func (ctl *SignalWSController) handleProduce(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type payload struct {
		Type          string             `json:"type"`
		Room          string             `json:"room"`
		TransportID   string             `json:"transportId"`
		Kind          string             `json:"kind"`
		RTPParameters core.RTPParameters `json:"rtpParameters"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad produce payload")
		ctl.sendBadPayload(conn, seq)
		return
	}
	kind := core.MediaKind(p.Kind)
	if kind != core.MediaKindAudio && kind != core.MediaKindVideo {
		ctl.sendBadPayload(conn, seq)
		return
	}

	producerID, err := ctl.Orch.Produce(ctx, sid, domain.RoomCode(p.Room), p.TransportID, kind, p.RTPParameters)
	if err != nil {
		ctl.sendError(conn, seq, err)
		return
	}
	ctl.sendJSON(conn, struct {
		Type       string `json:"type"`
		Seq        int64  `json:"seq"`
		ProducerID string `json:"producerId"`
	}{"produced", seq, producerID})
}

func (ctl *SignalWSController) handleConsume(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	seq int64,
	data []byte,
) {
	type payload struct {
		Type            string                 `json:"type"`
		Room            string                 `json:"room"`
		ProducerID      string                 `json:"producerId"`
		RTPCapabilities webrtc.RTPCapabilities `json:"rtpCapabilities"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad consume payload")
		ctl.sendBadPayload(conn, seq)
		return
	}

	info, err := ctl.Orch.Consume(ctx, sid, domain.RoomCode(p.Room), p.ProducerID, p.RTPCapabilities)
	if err != nil {
		ctl.sendError(conn, seq, err)
		return
	}
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		Seq  int64  `json:"seq"`
		core.ConsumerInfo
	}{"consumed", seq, info})
}
