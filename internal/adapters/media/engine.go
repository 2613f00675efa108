// Package media implements the engine interface on pion's ORTC API:
// router contexts, ICE/DTLS transports, RTP receivers for producers and
// RTP senders for consumers, with a per-producer forwarding relay.
package media

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
)

type Config struct {
	AnnouncedIP string
	PortMin     uint16
	PortMax     uint16
	ICELite     bool
	STUNServers []string
}

// Engine holds the shared pion API object every router/transport is built
// from. Process-lifetime; rooms own the routers it hands out.
type Engine struct {
	api        *webrtc.API
	iceServers []webrtc.ICEServer
}

func NewEngine(cfg Config) (*Engine, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	se := webrtc.SettingEngine{}
	se.SetLite(cfg.ICELite)
	if cfg.PortMin > 0 && cfg.PortMax > cfg.PortMin {
		if err := se.SetEphemeralUDPPortRange(cfg.PortMin, cfg.PortMax); err != nil {
			return nil, fmt.Errorf("udp port range: %w", err)
		}
	}
	if ip := NewAddrResolver(cfg.AnnouncedIP).AnnouncedIP(); ip != "" {
		se.SetNAT1To1IPs([]string{ip}, webrtc.ICECandidateTypeHost)
		log.Info().Str("module", "media").Str("announced_ip", ip).Msg("announcing address")
	}

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.STUNServers))
	for _, u := range cfg.STUNServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{u}})
	}

	return &Engine{
		api:        webrtc.NewAPI(webrtc.WithMediaEngine(me), webrtc.WithSettingEngine(se)),
		iceServers: iceServers,
	}, nil
}

func (e *Engine) CreateRouter(ctx context.Context) (core.Router, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &router{
		id:     uuid.NewString(),
		engine: e,
		caps:   defaultRTPCapabilities(),
	}
	log.Info().Str("module", "media").Str("router", r.id).Msg("router created")
	return r, nil
}

// Close exists for interface symmetry; the pion API object holds no
// resources of its own, transports are closed by their rooms.
func (e *Engine) Close() {}

func defaultRTPCapabilities() webrtc.RTPCapabilities {
	return webrtc.RTPCapabilities{
		Codecs: []webrtc.RTPCodecCapability{
			{
				MimeType:    webrtc.MimeTypeOpus,
				ClockRate:   48000,
				Channels:    2,
				SDPFmtpLine: "minptime=10;useinbandfec=1",
			},
			{
				MimeType:  webrtc.MimeTypeVP8,
				ClockRate: 90000,
			},
		},
	}
}
