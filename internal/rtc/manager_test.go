package rtc

import (
	"errors"
	"net"
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	offerErr   error
	acceptErr  error
	answerErr  error
	closed     bool
	remote     string
	candidates []pion.ICECandidateInit
	video      []pion.TrackLocal
	packets    uint64

	onCandidate func(pion.ICECandidateInit)
	onState     func(pion.PeerConnectionState)
	onTrack     func(RemoteTrack)
}

func (c *fakeConn) CreateOffer() (string, error) {
	if c.offerErr != nil {
		return "", c.offerErr
	}
	return "offer-sdp", nil
}

func (c *fakeConn) AcceptOffer(sdp string) (string, error) {
	if c.acceptErr != nil {
		return "", c.acceptErr
	}
	c.remote = sdp
	return "answer-sdp", nil
}

func (c *fakeConn) ApplyAnswer(sdp string) error {
	if c.answerErr != nil {
		return c.answerErr
	}
	c.remote = sdp
	return nil
}

func (c *fakeConn) AddICECandidate(candidate pion.ICECandidateInit) error {
	c.candidates = append(c.candidates, candidate)
	return nil
}

func (c *fakeConn) ReplaceVideoTrack(track pion.TrackLocal) error {
	c.video = append(c.video, track)
	return nil
}

func (c *fakeConn) OnICECandidate(fn func(pion.ICECandidateInit))             { c.onCandidate = fn }
func (c *fakeConn) OnConnectionStateChange(fn func(pion.PeerConnectionState)) { c.onState = fn }
func (c *fakeConn) OnRemoteTrack(fn func(RemoteTrack))                        { c.onTrack = fn }
func (c *fakeConn) PacketsReceived() uint64                                   { return c.packets }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeFactory struct {
	conns []*fakeConn
	next  *fakeConn
	err   error
}

func (f *fakeFactory) NewPeerConnection(Tracks) (PeerConnection, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := f.next
	if c == nil {
		c = &fakeConn{}
	}
	f.next = nil
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFactory) last() *fakeConn {
	return f.conns[len(f.conns)-1]
}

type harness struct {
	factory *fakeFactory
	sent    []*signaling.Message
	events  []Event
	manager *Manager
}

func newHarness(localID string) *harness {
	h := &harness{factory: &fakeFactory{}}
	h.manager = NewManager(Options{
		Factory: h.factory,
		Send: func(msg *signaling.Message) error {
			h.sent = append(h.sent, msg)
			return nil
		},
		Observe: func(ev Event) { h.events = append(h.events, ev) },
	})
	h.manager.SetLocalID(localID)
	return h
}

func (h *harness) sentTypes() []string {
	types := make([]string, len(h.sent))
	for i, msg := range h.sent {
		types[i] = msg.Type
	}
	return types
}

func TestCreateOutboundLinkSendsOffer(t *testing.T) {
	h := newHarness("a")

	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))

	link, ok := h.manager.Link("b")
	require.True(t, ok)
	assert.Equal(t, StateSignalSent, link.State())
	assert.True(t, link.Initiator)
	require.Len(t, h.sent, 1)
	assert.Equal(t, signaling.TypeOffer, h.sent[0].Type)
	assert.Equal(t, "b", h.sent[0].Target)
	assert.Equal(t, "offer-sdp", h.sent[0].SDU)
}

func TestOutboundLifecycle(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	conn := h.factory.last()

	require.NoError(t, h.manager.ApplyAnswer("b", "answer-from-b"))
	assert.Equal(t, "answer-from-b", conn.remote)

	conn.onState(pion.PeerConnectionStateConnected)
	link, _ := h.manager.Link("b")
	assert.Equal(t, StateConnected, link.State())
	require.Len(t, h.events, 1)
	assert.Equal(t, EventConnected, h.events[0].Kind)

	assert.True(t, h.manager.CloseLink("b"))
	assert.True(t, conn.closed)
	assert.Equal(t, 0, h.manager.Len())
	assert.Equal(t, StateClosed, link.State())
}

func TestCreateInboundLinkAnswers(t *testing.T) {
	h := newHarness("b")

	require.NoError(t, h.manager.CreateInboundLink("a", "offer-from-a", Tracks{}))

	link, ok := h.manager.Link("a")
	require.True(t, ok)
	assert.False(t, link.Initiator)
	assert.Equal(t, StateAnswerSent, link.State())
	assert.Equal(t, "offer-from-a", h.factory.last().remote)
	require.Len(t, h.sent, 1)
	assert.Equal(t, signaling.TypeAnswer, h.sent[0].Type)
	assert.Equal(t, "a", h.sent[0].Target)
	assert.Equal(t, "answer-sdp", h.sent[0].SDU)
}

func TestCreateLinkReplacesExisting(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	first := h.factory.last()
	first.onState(pion.PeerConnectionStateConnected)

	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))

	assert.True(t, first.closed)
	assert.Equal(t, 1, h.manager.Len())
	link, _ := h.manager.Link("b")
	assert.Equal(t, StateSignalSent, link.State())
}

func TestStaleCallbacksIgnored(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	first := h.factory.last()
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	h.sent = nil

	first.onState(pion.PeerConnectionStateFailed)
	first.onCandidate(pion.ICECandidateInit{Candidate: "stale"})

	assert.Equal(t, 1, h.manager.Len())
	assert.Empty(t, h.events)
	assert.Empty(t, h.sent)
}

func TestLocalCandidatesAreRelayed(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))

	h.factory.last().onCandidate(pion.ICECandidateInit{Candidate: "candidate:1"})

	assert.Equal(t, []string{signaling.TypeOffer, signaling.TypeICECandidate}, h.sentTypes())
	assert.Equal(t, "b", h.sent[1].Target)
	assert.Equal(t, "candidate:1", h.sent[1].Candidate.Candidate)
}

func TestEarlyCandidatesAreQueued(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	conn := h.factory.last()

	require.NoError(t, h.manager.ApplyRemoteCandidate("b", pion.ICECandidateInit{Candidate: "early"}))
	assert.Empty(t, conn.candidates)

	require.NoError(t, h.manager.ApplyAnswer("b", "answer"))
	require.NoError(t, h.manager.ApplyRemoteCandidate("b", pion.ICECandidateInit{Candidate: "late"}))

	require.Len(t, conn.candidates, 2)
	assert.Equal(t, "early", conn.candidates[0].Candidate)
	assert.Equal(t, "late", conn.candidates[1].Candidate)
}

func TestUnknownPeerSignalsAreInconsistent(t *testing.T) {
	h := newHarness("a")

	err := h.manager.ApplyAnswer("ghost", "sdp")
	assert.ErrorIs(t, err, callerr.ErrSignalInconsistency)
	assert.Equal(t, "ghost", callerr.PeerOf(err))

	err = h.manager.ApplyRemoteCandidate("ghost", pion.ICECandidateInit{Candidate: "x"})
	assert.ErrorIs(t, err, callerr.ErrSignalInconsistency)
	assert.Equal(t, 0, h.manager.Len())
}

func TestAnswerForInboundLinkIsInconsistent(t *testing.T) {
	h := newHarness("b")
	require.NoError(t, h.manager.CreateInboundLink("a", "offer", Tracks{}))

	err := h.manager.ApplyAnswer("a", "answer")
	assert.ErrorIs(t, err, callerr.ErrSignalInconsistency)
	assert.Equal(t, 1, h.manager.Len())
}

func TestNegotiationFailureClosesOnlyThatLink(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	healthy := h.factory.last()

	h.factory.next = &fakeConn{offerErr: errors.New("no codecs")}
	err := h.manager.CreateOutboundLink("c", Tracks{})

	assert.ErrorIs(t, err, callerr.ErrPeerFailure)
	assert.Equal(t, "c", callerr.PeerOf(err))
	assert.True(t, h.factory.last().closed)
	assert.False(t, healthy.closed)
	assert.Equal(t, 1, h.manager.Len())
	require.Len(t, h.events, 1)
	assert.Equal(t, EventFailed, h.events[0].Kind)
	assert.Equal(t, "c", h.events[0].RemoteID)
}

func TestRejectedAnswerFailsLink(t *testing.T) {
	h := newHarness("a")
	h.factory.next = &fakeConn{answerErr: errors.New("bad sdp")}
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))

	err := h.manager.ApplyAnswer("b", "garbage")
	assert.ErrorIs(t, err, callerr.ErrPeerFailure)
	assert.Equal(t, 0, h.manager.Len())
}

func TestICEFailureEmitsPeerFailure(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	conn := h.factory.last()

	conn.onState(pion.PeerConnectionStateFailed)

	assert.True(t, conn.closed)
	assert.Equal(t, 0, h.manager.Len())
	require.Len(t, h.events, 1)
	assert.Equal(t, EventFailed, h.events[0].Kind)
	assert.ErrorIs(t, h.events[0].Err, callerr.ErrPeerFailure)
}

func TestFactoryErrorIsPeerFailure(t *testing.T) {
	h := newHarness("a")
	h.factory.err = errors.New("no interfaces")

	err := h.manager.CreateOutboundLink("b", Tracks{})
	assert.ErrorIs(t, err, callerr.ErrPeerFailure)
	assert.Equal(t, 0, h.manager.Len())
}

func TestGlareSmallerIDKeepsOffer(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	own := h.factory.last()

	require.NoError(t, h.manager.CreateInboundLink("b", "offer-from-b", Tracks{}))

	assert.False(t, own.closed)
	link, _ := h.manager.Link("b")
	assert.Equal(t, StateSignalSent, link.State())
	assert.Equal(t, []string{signaling.TypeOffer}, h.sentTypes())
}

func TestGlareKeptOfferDropsCandidatesOfIgnoredOffer(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	own := h.factory.last()

	require.NoError(t, h.manager.ApplyRemoteCandidate("b", pion.ICECandidateInit{Candidate: "before-glare"}))
	require.NoError(t, h.manager.CreateInboundLink("b", "offer-from-b", Tracks{}))

	stale := "old"
	require.NoError(t, h.manager.ApplyRemoteCandidate("b", pion.ICECandidateInit{Candidate: "after-glare", UsernameFragment: &stale}))
	require.NoError(t, h.manager.ApplyRemoteCandidate("b", pion.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host ufrag fresh"}))

	require.NoError(t, h.manager.ApplyAnswer("b", "v=0\r\na=ice-ufrag:fresh\r\na=ice-pwd:x\r\n"))

	require.Len(t, own.candidates, 1)
	assert.Contains(t, own.candidates[0].Candidate, "ufrag fresh")
}

func TestCandidateUfrag(t *testing.T) {
	explicit := "abc"
	assert.Equal(t, "abc", candidateUfrag(pion.ICECandidateInit{Candidate: "candidate:1 ufrag zzz", UsernameFragment: &explicit}))
	assert.Equal(t, "zzz", candidateUfrag(pion.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host ufrag zzz"}))
	assert.Empty(t, candidateUfrag(pion.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host"}))
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, sdpUfrags("v=0\r\na=ice-ufrag:u1\r\nm=video\r\na=ice-ufrag:u2\r\n"))
}

func TestGlareLargerIDAnswers(t *testing.T) {
	h := newHarness("b")
	require.NoError(t, h.manager.CreateOutboundLink("a", Tracks{}))
	own := h.factory.last()

	require.NoError(t, h.manager.CreateInboundLink("a", "offer-from-a", Tracks{}))

	assert.True(t, own.closed)
	assert.Equal(t, 1, h.manager.Len())
	link, _ := h.manager.Link("a")
	assert.Equal(t, StateAnswerSent, link.State())
	assert.Equal(t, []string{signaling.TypeOffer, signaling.TypeAnswer}, h.sentTypes())
}

func TestReplaceOutgoingVideoTrack(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	require.NoError(t, h.manager.CreateOutboundLink("c", Tracks{}))

	h.manager.ReplaceOutgoingVideoTrack(nil)

	for _, conn := range h.factory.conns {
		require.Len(t, conn.video, 1)
		assert.Nil(t, conn.video[0])
	}
}

func TestCloseAll(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	require.NoError(t, h.manager.CreateInboundLink("c", "offer", Tracks{}))

	h.manager.CloseAll()

	assert.Equal(t, 0, h.manager.Len())
	for _, conn := range h.factory.conns {
		assert.True(t, conn.closed)
	}
	assert.False(t, h.manager.CloseLink("b"))
}

func TestRemoteCloseRemovesLink(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))

	h.factory.last().onState(pion.PeerConnectionStateClosed)

	assert.Equal(t, 0, h.manager.Len())
	require.Len(t, h.events, 1)
	assert.Equal(t, EventClosed, h.events[0].Kind)
}

func TestLinksViewIsSortedAndCarriesRemoteMedia(t *testing.T) {
	h := newHarness("m")
	require.NoError(t, h.manager.CreateOutboundLink("z", Tracks{}))
	require.NoError(t, h.manager.CreateInboundLink("b", "offer", Tracks{}))
	conn := h.factory.last()
	conn.packets = 42

	conn.onTrack(RemoteTrack{StreamID: "s1", TrackID: "t-audio", Kind: "audio"})
	conn.onTrack(RemoteTrack{StreamID: "s1", TrackID: "t-video", Kind: "video"})

	views := h.manager.Links()
	require.Len(t, views, 2)
	assert.Equal(t, "b", views[0].RemoteID)
	assert.Equal(t, "z", views[1].RemoteID)

	assert.True(t, views[0].HasRemoteStream)
	assert.Equal(t, []string{"audio", "video"}, views[0].RemoteKinds)
	assert.Equal(t, uint64(42), views[0].Packets)
	assert.False(t, views[1].HasRemoteStream)

	link, _ := h.manager.Link("b")
	assert.Equal(t, "s1", link.Remote().StreamID)
}

func TestPostDefersCallbacks(t *testing.T) {
	var queued []func()
	factory := &fakeFactory{}
	var sent []*signaling.Message
	m := NewManager(Options{
		Factory: factory,
		Send: func(msg *signaling.Message) error {
			sent = append(sent, msg)
			return nil
		},
		Post: func(fn func()) { queued = append(queued, fn) },
	})
	require.NoError(t, m.CreateOutboundLink("b", Tracks{}))

	factory.last().onCandidate(pion.ICECandidateInit{Candidate: "c"})
	assert.Len(t, sent, 1)

	for _, fn := range queued {
		fn()
	}
	assert.Len(t, sent, 2)
}

func TestLooksTunneled(t *testing.T) {
	assert.True(t, looksTunneled("wg0", nil))
	assert.True(t, looksTunneled("utun3", nil))
	assert.True(t, looksTunneled("CloudflareWARP", nil))
	assert.True(t, looksTunneled("eth0", []net.IP{net.ParseIP("100.101.102.103")}))
	assert.False(t, looksTunneled("eth0", []net.IP{net.ParseIP("192.168.1.20")}))
}

func TestDuplicateAnswerIsInconsistent(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	require.NoError(t, h.manager.ApplyAnswer("b", "answer"))

	err := h.manager.ApplyAnswer("b", "answer-again")
	assert.ErrorIs(t, err, callerr.ErrSignalInconsistency)
	assert.Equal(t, 1, h.manager.Len())
}

func TestOfferAfterAnsweredOfferReplacesLink(t *testing.T) {
	h := newHarness("a")
	require.NoError(t, h.manager.CreateOutboundLink("b", Tracks{}))
	first := h.factory.last()
	require.NoError(t, h.manager.ApplyAnswer("b", "answer"))

	require.NoError(t, h.manager.CreateInboundLink("b", "fresh-offer", Tracks{}))

	assert.True(t, first.closed)
	link, _ := h.manager.Link("b")
	assert.Equal(t, StateAnswerSent, link.State())
}
