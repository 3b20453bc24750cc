package rtc

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
	"github.com/ravipandeydu/interview-pro-sub002/internal/config"
)

// PionFactory creates pion peer connections sharing one API instance.
type PionFactory struct {
	api    *pion.API
	config pion.Configuration
	logger *slog.Logger
}

// NewPionFactory registers the default codecs and interceptors (NACK, RTCP
// reports, TWCC) and applies the ICE and port settings from cfg.
func NewPionFactory(cfg *config.Config, logger *slog.Logger) (*PionFactory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	s := pion.SettingEngine{}
	if cfg.UDPPortMin > 0 && cfg.UDPPortMax > 0 {
		if err := s.SetEphemeralUDPPortRange(uint16(cfg.UDPPortMin), uint16(cfg.UDPPortMax)); err != nil {
			return nil, fmt.Errorf("udp port range: %w", err)
		}
	}

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(registry),
		pion.WithSettingEngine(s),
	)

	iceConfig := ICEConfiguration(cfg)
	logger.Debug("peer factory ready",
		"ice_servers", len(iceConfig.ICEServers),
		"relay_only", iceConfig.ICETransportPolicy == pion.ICETransportPolicyRelay)

	return &PionFactory{api: api, config: iceConfig, logger: logger}, nil
}

// NewPeerConnection creates a connection with one audio and one video
// transceiver. A missing video track still reserves a send-receive video
// sender with a silent placeholder so ReplaceVideoTrack can fill it later.
func (f *PionFactory) NewPeerConnection(tracks Tracks) (PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	c := &pionConn{pc: pc, logger: f.logger}

	sendrecv := pion.RTPTransceiverInit{Direction: pion.RTPTransceiverDirectionSendrecv}

	if tracks.Audio != nil {
		if _, err := pc.AddTransceiverFromTrack(tracks.Audio, sendrecv); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add audio: %w", err)
		}
	} else if _, err := pc.AddTransceiverFromKind(pion.RTPCodecTypeAudio,
		pion.RTPTransceiverInit{Direction: pion.RTPTransceiverDirectionRecvonly}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio: %w", err)
	}

	var video *pion.RTPTransceiver
	if tracks.Video != nil {
		video, err = pc.AddTransceiverFromTrack(tracks.Video, sendrecv)
	} else {
		video, err = pc.AddTransceiverFromKind(pion.RTPCodecTypeVideo, sendrecv)
	}
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("add video: %w", err)
	}
	c.video = video.Sender()

	for _, t := range pc.GetTransceivers() {
		if sender := t.Sender(); sender != nil {
			go drainRTCP(sender)
		}
	}

	pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		if fn, ok := c.onTrack.Load().(func(RemoteTrack)); ok {
			fn(RemoteTrack{
				StreamID: track.StreamID(),
				TrackID:  track.ID(),
				Kind:     track.Kind().String(),
			})
		}
		go c.drainTrack(track)
	})

	return c, nil
}

// drainRTCP reads incoming RTCP so interceptors such as NACK keep working.
func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

type pionConn struct {
	pc      *pion.PeerConnection
	video   *pion.RTPSender
	packets atomic.Uint64
	onTrack atomic.Value
	logger  *slog.Logger
}

func (c *pionConn) CreateOffer() (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return c.pc.LocalDescription().SDP, nil
}

func (c *pionConn) AcceptOffer(sdp string) (string, error) {
	if err := c.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}); err != nil {
		return "", fmt.Errorf("set remote description: %w", err)
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}
	return c.pc.LocalDescription().SDP, nil
}

func (c *pionConn) ApplyAnswer(sdp string) error {
	if err := c.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (c *pionConn) AddICECandidate(candidate pion.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *pionConn) ReplaceVideoTrack(track pion.TrackLocal) error {
	return c.video.ReplaceTrack(track)
}

func (c *pionConn) OnICECandidate(fn func(pion.ICECandidateInit)) {
	c.pc.OnICECandidate(func(candidate *pion.ICECandidate) {
		if candidate == nil {
			return
		}
		fn(candidate.ToJSON())
	})
}

func (c *pionConn) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *pionConn) OnRemoteTrack(fn func(RemoteTrack)) {
	c.onTrack.Store(fn)
}

func (c *pionConn) PacketsReceived() uint64 {
	return c.packets.Load()
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}

// drainTrack consumes remote RTP. Rendering is out of scope; the packet
// count feeds the peers view.
func (c *pionConn) drainTrack(track *pion.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			c.logger.Debug("remote track ended", "track", track.ID(), "err", err)
			return
		}
		c.packets.Add(1)
	}
}
