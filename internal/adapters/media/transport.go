package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
)

// transport is one ICE+DTLS path between a client and the engine, built on
// pion's ORTC objects. The control plane owns its lifetime through the room.
type transport struct {
	id       string
	api      *webrtc.API
	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport
	info     core.TransportInfo

	closeOnce sync.Once
}

func newTransport(ctx context.Context, api *webrtc.API, iceServers []webrtc.ICEServer) (*transport, error) {
	gatherer, err := api.NewICEGatherer(webrtc.ICEGatherOptions{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("ice gatherer: %w", err)
	}
	ice := api.NewICETransport(gatherer)
	dtls, err := api.NewDTLSTransport(ice, nil)
	if err != nil {
		return nil, fmt.Errorf("dtls transport: %w", err)
	}

	gatherDone := make(chan struct{})
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			close(gatherDone)
		}
	})
	if err := gatherer.Gather(); err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("gather: %w", err)
	}
	select {
	case <-gatherDone:
	case <-ctx.Done():
		_ = gatherer.Close()
		return nil, ctx.Err()
	}

	candidates, err := gatherer.GetLocalCandidates()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local candidates: %w", err)
	}
	iceParams, err := gatherer.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local ice parameters: %w", err)
	}
	dtlsParams, err := dtls.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local dtls parameters: %w", err)
	}

	t := &transport{
		id:       uuid.NewString(),
		api:      api,
		gatherer: gatherer,
		ice:      ice,
		dtls:     dtls,
	}
	t.info = core.TransportInfo{
		ID:             t.id,
		ICEParameters:  iceParams,
		ICECandidates:  candidates,
		DTLSParameters: dtlsParams,
	}
	log.Info().Str("module", "media").Str("transport", t.id).Int("candidates", len(candidates)).Msg("transport created")
	return t, nil
}

func (t *transport) ID() string               { return t.id }
func (t *transport) Info() core.TransportInfo { return t.info }

// Connect runs the server side of the handshake: the client drives ICE
// connectivity checks against our candidates, we answer as controlled and
// then complete DTLS.
func (t *transport) Connect(ctx context.Context, params core.TransportConnectParams) error {
	errCh := make(chan error, 1)
	go func() {
		role := webrtc.ICERoleControlled
		if err := t.ice.Start(nil, params.ICEParameters, &role); err != nil {
			errCh <- fmt.Errorf("ice start: %w", err)
			return
		}
		if err := t.dtls.Start(params.DTLSParameters); err != nil {
			errCh <- fmt.Errorf("dtls start: %w", err)
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Produce attaches an RTP receiver for the client's stream and starts the
// relay that fans its packets out to consumers.
func (t *transport) Produce(ctx context.Context, kind core.MediaKind, params core.RTPParameters) (core.Producer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	codecType := webrtc.NewRTPCodecType(string(kind))
	if codecType == webrtc.RTPCodecType(0) {
		return nil, fmt.Errorf("unknown media kind %q", kind)
	}
	if len(params.Codecs) == 0 || len(params.Encodings) == 0 {
		return nil, errors.New("rtp parameters missing codecs or encodings")
	}

	receiver, err := t.api.NewRTPReceiver(codecType, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("rtp receiver: %w", err)
	}
	recvParams := webrtc.RTPReceiveParameters{
		Encodings: make([]webrtc.RTPDecodingParameters, 0, len(params.Encodings)),
	}
	for _, enc := range params.Encodings {
		recvParams.Encodings = append(recvParams.Encodings, webrtc.RTPDecodingParameters{RTPCodingParameters: enc})
	}
	if err := receiver.Receive(recvParams); err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	p := &producer{
		id:       uuid.NewString(),
		kind:     kind,
		params:   params,
		receiver: receiver,
		relay:    newRelay(receiver.Track()),
	}
	relayCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.relay.loop(relayCtx, p.id)
	log.Info().Str("module", "media").Str("transport", t.id).Str("producer", p.id).Str("kind", string(kind)).Msg("producer created")
	return p, nil
}

// Consume attaches an RTP sender carrying a copy of prod's stream.
func (t *transport) Consume(ctx context.Context, prod core.Producer, caps webrtc.RTPCapabilities, paused bool) (core.Consumer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := prod.(*producer)
	if !ok {
		return nil, errors.New("producer handle from a foreign engine")
	}
	codec := p.params.Codecs[0].RTPCodecCapability
	track, err := webrtc.NewTrackLocalStaticRTP(codec, string(p.kind), "huddle-"+p.id)
	if err != nil {
		return nil, fmt.Errorf("local track: %w", err)
	}
	sender, err := t.api.NewRTPSender(track, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("rtp sender: %w", err)
	}
	sendParams := sender.GetParameters()
	if err := sender.Send(sendParams); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	c := &consumer{
		id:     uuid.NewString(),
		kind:   p.kind,
		sender: sender,
		out:    newOutTrack(track),
		relay:  p.relay,
		params: consumerParameters(sendParams),
	}
	if paused {
		c.out.setState(outStatePaused)
	}
	p.relay.addOut(c.id, c.out)
	log.Info().Str("module", "media").Str("transport", t.id).Str("consumer", c.id).Str("producer", p.id).Msg("consumer created")
	return c, nil
}

func (t *transport) Close() {
	t.closeOnce.Do(func() {
		if err := t.dtls.Stop(); err != nil {
			log.Warn().Err(err).Str("module", "media").Str("transport", t.id).Msg("dtls stop")
		}
		if err := t.ice.Stop(); err != nil {
			log.Warn().Err(err).Str("module", "media").Str("transport", t.id).Msg("ice stop")
		}
		if err := t.gatherer.Close(); err != nil {
			log.Warn().Err(err).Str("module", "media").Str("transport", t.id).Msg("gatherer close")
		}
		log.Info().Str("module", "media").Str("transport", t.id).Msg("transport closed")
	})
}

func consumerParameters(p webrtc.RTPSendParameters) core.RTPParameters {
	out := core.RTPParameters{Codecs: p.Codecs}
	for _, enc := range p.Encodings {
		out.Encodings = append(out.Encodings, enc.RTPCodingParameters)
	}
	return out
}

// producer owns the inbound receiver and the relay fanning its stream out.
type producer struct {
	id       string
	kind     core.MediaKind
	params   core.RTPParameters
	receiver *webrtc.RTPReceiver
	relay    *relay
	cancel   context.CancelFunc

	closeOnce sync.Once
}

func (p *producer) ID() string                        { return p.id }
func (p *producer) Kind() core.MediaKind              { return p.kind }
func (p *producer) RTPParameters() core.RTPParameters { return p.params }

func (p *producer) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if err := p.receiver.Stop(); err != nil {
			log.Warn().Err(err).Str("module", "media").Str("producer", p.id).Msg("receiver stop")
		}
	})
}

// consumer owns the outbound sender; pausing just mutes the out-track in the
// producer's relay.
type consumer struct {
	id     string
	kind   core.MediaKind
	sender *webrtc.RTPSender
	out    *outTrack
	relay  *relay
	params core.RTPParameters

	closeOnce sync.Once
}

func (c *consumer) ID() string                        { return c.id }
func (c *consumer) Kind() core.MediaKind              { return c.kind }
func (c *consumer) RTPParameters() core.RTPParameters { return c.params }

func (c *consumer) Pause()  { c.out.setState(outStatePaused) }
func (c *consumer) Resume() { c.out.setState(outStateLive) }

func (c *consumer) Close() {
	c.closeOnce.Do(func() {
		c.out.setState(outStateDead)
		c.relay.removeOut(c.id)
		if err := c.sender.Stop(); err != nil {
			log.Warn().Err(err).Str("module", "media").Str("consumer", c.id).Msg("sender stop")
		}
	})
}
