package media

import (
	"fmt"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Forwarding snapshots the out-track set under the read lock; membership
// churn from other goroutines must never race it.
func TestRelayForwardConcurrentWithMembershipChurn(t *testing.T) {
	r := newRelay(nil)
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", "relay-test",
	)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			id := fmt.Sprintf("c%d", i)
			r.addOut(id, newOutTrack(track))
			r.removeOut(id)
		}
	}()

	logger := zerolog.Nop()
	pkt := &rtp.Packet{}
	for {
		select {
		case <-done:
			return
		default:
			r.forward(pkt, &logger)
		}
	}
}

func TestRelayOutTrackStates(t *testing.T) {
	ot := newOutTrack(nil)
	require.Equal(t, outStateLive, ot.getState())
	ot.setState(outStatePaused)
	require.Equal(t, outStatePaused, ot.getState())
	ot.setState(outStateDead)
	require.Equal(t, outStateDead, ot.getState())
}
