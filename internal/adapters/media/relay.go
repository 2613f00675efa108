package media

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type outState int32

const (
	outStateLive outState = iota
	outStatePaused
	outStateDead
)

// outTrack is one consumer's copy of the stream.
type outTrack struct {
	track *webrtc.TrackLocalStaticRTP
	state atomic.Int32 // zero value is outStateLive
}

func newOutTrack(track *webrtc.TrackLocalStaticRTP) *outTrack {
	return &outTrack{track: track}
}

func (o *outTrack) setState(s outState) { o.state.Store(int32(s)) }
func (o *outTrack) getState() outState  { return outState(o.state.Load()) }

// relay pumps RTP from one producer's remote track to all consumer tracks.
type relay struct {
	src *webrtc.TrackRemote

	mu   sync.RWMutex
	outs map[string]*outTrack
}

func newRelay(src *webrtc.TrackRemote) *relay {
	return &relay{src: src, outs: make(map[string]*outTrack)}
}

func (r *relay) addOut(id string, ot *outTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outs[id] = ot
}

func (r *relay) removeOut(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.outs, id)
}

// loop reads RTP packets from the source track and forwards them to every
// live out-track.
func (r *relay) loop(ctx context.Context, producerID string) {
	logger := log.With().Str("module", "media.relay").Str("producer", producerID).Logger()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all out tracks for delete")
			r.markAllDead()
			return
		default:
		}
		pkt, _, err := r.src.ReadRTP()
		if err != nil {
			logger.Error().Err(err).Msg("relay read RTP error, stopping")
			r.markAllDead()
			return
		}
		r.forward(pkt, &logger)
	}
}

func (r *relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := make(map[string]*outTrack, len(r.outs))
	maps.Copy(snapshot, r.outs)
	r.mu.RUnlock()

	dirty := make([]string, 0, len(snapshot))
	for id, ot := range snapshot {
		switch ot.getState() {
		case outStateDead:
			dirty = append(dirty, id)
		case outStatePaused:
		case outStateLive:
			if err := ot.track.WriteRTP(pkt); err != nil {
				logger.Error().
					Err(err).
					Str("consumer", id).
					Msg("relay write RTP error, marking outtrack as delete")
				ot.setState(outStateDead)
				dirty = append(dirty, id)
			}
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDead(dirty)
	}
}

func (r *relay) cleanupDead(dirty []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range dirty {
		delete(r.outs, id)
	}
}

func (r *relay) markAllDead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outs {
		ot.setState(outStateDead)
	}
}
