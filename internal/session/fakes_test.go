package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/media"
	"github.com/ravipandeydu/interview-pro-sub002/internal/rtc"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

type fakeChannel struct {
	mu      sync.Mutex
	sent    []*signaling.Message
	handler func(*signaling.Message)
	closed  bool
	done    chan struct{}
	once    sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{done: make(chan struct{})}
}

func (c *fakeChannel) Send(msg *signaling.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return callerr.ErrChannelClosed
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) OnMessage(handler func(*signaling.Message)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

func (c *fakeChannel) Done() <-chan struct{} {
	return c.done
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.drop()
	return nil
}

// deliver hands msg to the registered handler as the transport would.
func (c *fakeChannel) deliver(msg *signaling.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	handler(msg)
}

// drop ends the transport without a local Close.
func (c *fakeChannel) drop() {
	c.once.Do(func() { close(c.done) })
}

func (c *fakeChannel) messages() []*signaling.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*signaling.Message(nil), c.sent...)
}

func (c *fakeChannel) types() []string {
	var types []string
	for _, msg := range c.messages() {
		types = append(types, msg.Type)
	}
	return types
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu       sync.Mutex
	err      error
	calls    int
	channels []*fakeChannel
	block    chan struct{}
	entered  chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, roomID, token string) (signaling.Channel, error) {
	d.mu.Lock()
	block, entered := d.block, d.entered
	d.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	ch := newFakeChannel()
	d.channels = append(d.channels, ch)
	return ch, nil
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeConn struct {
	mu          sync.Mutex
	closed      bool
	onCandidate func(pion.ICECandidateInit)
	onState     func(pion.PeerConnectionState)
	video       []pion.TrackLocal
	tracks      rtc.Tracks
}

func (c *fakeConn) CreateOffer() (string, error)           { return "offer-sdp", nil }
func (c *fakeConn) AcceptOffer(sdp string) (string, error) { return "answer-sdp", nil }
func (c *fakeConn) ApplyAnswer(sdp string) error           { return nil }

func (c *fakeConn) AddICECandidate(pion.ICECandidateInit) error { return nil }

func (c *fakeConn) ReplaceVideoTrack(track pion.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.video = append(c.video, track)
	return nil
}

func (c *fakeConn) OnICECandidate(fn func(pion.ICECandidateInit)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCandidate = fn
}

func (c *fakeConn) OnConnectionStateChange(fn func(pion.PeerConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

func (c *fakeConn) OnRemoteTrack(func(rtc.RemoteTrack)) {}
func (c *fakeConn) PacketsReceived() uint64             { return 0 }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) candidate(candidate string) {
	c.mu.Lock()
	fn := c.onCandidate
	c.mu.Unlock()
	fn(pion.ICECandidateInit{Candidate: candidate})
}

type fakeFactory struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (f *fakeFactory) NewPeerConnection(tracks rtc.Tracks) (rtc.PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConn{tracks: tracks}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFactory) all() []*fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeConn(nil), f.conns...)
}

var (
	vp8  = pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8, ClockRate: 90000}
	opus = pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus, ClockRate: 48000, Channels: 2}
)

type fakeDevices struct {
	mu           sync.Mutex
	userErr      error
	displayErr   error
	userCalls    int
	displayCalls int
	tracks       []*media.Track
	screen       *media.Track
	// screenEnded makes DisplayMedia return a capture that already ended.
	screenEnded bool
}

func (d *fakeDevices) UserMedia(ctx context.Context, c media.Constraints) (*media.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userCalls++
	if d.userErr != nil {
		return nil, d.userErr
	}
	s := &media.Stream{ID: uuid.NewString()}
	if c.Audio {
		s.Audio, _ = media.NewTrack(media.KindAudio, media.SourceMicrophone, opus, s.ID)
		d.tracks = append(d.tracks, s.Audio)
	}
	if c.Video {
		s.Video, _ = media.NewTrack(media.KindVideo, media.SourceCamera, vp8, s.ID)
		d.tracks = append(d.tracks, s.Video)
	}
	return s, nil
}

func (d *fakeDevices) DisplayMedia(ctx context.Context) (*media.Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.displayCalls++
	if d.displayErr != nil {
		return nil, d.displayErr
	}
	t, err := media.NewTrack(media.KindVideo, media.SourceScreen, vp8, uuid.NewString())
	d.tracks = append(d.tracks, t)
	d.screen = t
	if d.screenEnded && t != nil {
		t.End()
	}
	return t, err
}

func (d *fakeDevices) setUserErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userErr = err
}

func (d *fakeDevices) allTracks() []*media.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*media.Track(nil), d.tracks...)
}

func (d *fakeDevices) lastScreen() *media.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen
}

func (d *fakeDevices) userMediaCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userCalls
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	var levels []Level
	for _, n := range r.notices {
		levels = append(levels, n.Level)
	}
	return levels
}

func (r *recorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
