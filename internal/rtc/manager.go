package rtc

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// EventKind identifies an asynchronous link event.
type EventKind int

const (
	EventConnected EventKind = iota
	EventFailed
	EventClosed
	EventRemoteStream
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventFailed:
		return "failed"
	case EventClosed:
		return "closed"
	case EventRemoteStream:
		return "remote-stream"
	}
	return "unknown"
}

// Event reports something that happened to a link outside of a Manager call.
type Event struct {
	Kind     EventKind
	RemoteID string
	Err      error
}

// Options wires a Manager into its owner.
type Options struct {
	Factory Factory

	// Send delivers a message on the signaling channel.
	Send func(*signaling.Message) error

	// Post runs fn on the goroutine that owns the Manager. Connection
	// callbacks arrive on arbitrary goroutines and are re-entered through it.
	// Nil runs callbacks inline.
	Post func(fn func())

	// Observe receives link events. Optional.
	Observe func(Event)

	Logger *slog.Logger
}

// Manager keeps at most one Link per remote participant.
//
// A Manager is not safe for concurrent use. All methods must be called from
// the goroutine that Options.Post delivers to.
type Manager struct {
	opts    Options
	localID string
	links   map[string]*Link
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	return &Manager{
		opts:   opts,
		links:  make(map[string]*Link),
		logger: logger.With("component", "rtc"),
		now:    time.Now,
	}
}

// SetLocalID records our own participant id, used to settle offer glare.
func (m *Manager) SetLocalID(id string) {
	m.localID = id
}

func (m *Manager) LocalID() string {
	return m.localID
}

// CreateOutboundLink opens a link as initiator and sends the offer.
func (m *Manager) CreateOutboundLink(remoteID string, tracks Tracks) error {
	m.CloseLink(remoteID)

	link, err := m.newLink(remoteID, true, tracks)
	if err != nil {
		return err
	}

	sdp, err := link.conn.CreateOffer()
	if err != nil {
		return m.fail(link, "create offer", err)
	}
	link.state = StateSignalSent

	if err := m.send(signaling.Offer(remoteID, sdp)); err != nil {
		return m.fail(link, "send offer", err)
	}
	m.logger.Debug("offer sent", "peer", remoteID)
	return nil
}

// CreateInboundLink answers an offer from remoteID. If we already sent our
// own offer to remoteID, the participant with the smaller id keeps its offer:
// either the incoming offer is ignored or our pending link is replaced.
func (m *Manager) CreateInboundLink(remoteID, offerSDU string, tracks Tracks) error {
	if existing, ok := m.links[remoteID]; ok {
		glare := existing.state == StateSignalSent && !existing.remoteDescribed
		if glare && m.localID != "" && m.localID < remoteID {
			m.logger.Debug("offer glare, keeping own offer", "peer", remoteID)
			// Held candidates belong to the offer we just ignored.
			existing.pending = nil
			return nil
		}
		m.CloseLink(remoteID)
	}

	link, err := m.newLink(remoteID, false, tracks)
	if err != nil {
		return err
	}
	link.state = StateSignalReceived

	answer, err := link.conn.AcceptOffer(offerSDU)
	if err != nil {
		return m.fail(link, "accept offer", err)
	}
	link.remoteDescribed = true
	m.flushCandidates(link, offerSDU)

	if err := m.send(signaling.Answer(remoteID, answer)); err != nil {
		return m.fail(link, "send answer", err)
	}
	link.state = StateAnswerSent
	m.logger.Debug("answer sent", "peer", remoteID)
	return nil
}

// ApplyAnswer completes negotiation of a link we initiated.
func (m *Manager) ApplyAnswer(remoteID, sdu string) error {
	link, ok := m.links[remoteID]
	if !ok || link.state != StateSignalSent || link.remoteDescribed {
		return m.inconsistent("apply answer", remoteID)
	}

	if err := link.conn.ApplyAnswer(sdu); err != nil {
		return m.fail(link, "apply answer", err)
	}
	link.remoteDescribed = true
	m.flushCandidates(link, sdu)
	return nil
}

// ApplyRemoteCandidate adds a connectivity candidate. Candidates that arrive
// before the remote description are held on the link until it is applied.
func (m *Manager) ApplyRemoteCandidate(remoteID string, candidate pion.ICECandidateInit) error {
	link, ok := m.links[remoteID]
	if !ok {
		return m.inconsistent("apply candidate", remoteID)
	}

	if !link.remoteDescribed {
		link.pending = append(link.pending, candidate)
		return nil
	}

	if err := link.conn.AddICECandidate(candidate); err != nil {
		m.logger.Warn("candidate rejected", "peer", remoteID, "err", err)
		return callerr.NewPeerError("apply candidate", remoteID, err)
	}
	return nil
}

// ReplaceOutgoingVideoTrack swaps the video every open link sends. A nil
// track stops outgoing video.
func (m *Manager) ReplaceOutgoingVideoTrack(track pion.TrackLocal) {
	for id, link := range m.links {
		if err := link.conn.ReplaceVideoTrack(track); err != nil {
			m.logger.Warn("replace video failed", "peer", id, "err", err)
		}
	}
}

// CloseLink closes and forgets the link to remoteID. It reports whether a
// link existed.
func (m *Manager) CloseLink(remoteID string) bool {
	link, ok := m.links[remoteID]
	if !ok {
		return false
	}
	delete(m.links, remoteID)
	m.closeConn(link)
	return true
}

// CloseAll closes every link.
func (m *Manager) CloseAll() {
	for id := range m.links {
		m.CloseLink(id)
	}
}

// Link returns the live link to remoteID.
func (m *Manager) Link(remoteID string) (*Link, bool) {
	link, ok := m.links[remoteID]
	return link, ok
}

func (m *Manager) Len() int {
	return len(m.links)
}

// Links returns a view of every link ordered by remote id.
func (m *Manager) Links() []LinkView {
	views := make([]LinkView, 0, len(m.links))
	for _, link := range m.links {
		views = append(views, link.view())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].RemoteID < views[j].RemoteID
	})
	return views
}

func (m *Manager) newLink(remoteID string, initiator bool, tracks Tracks) (*Link, error) {
	conn, err := m.opts.Factory.NewPeerConnection(tracks)
	if err != nil {
		m.logger.Error("create connection failed", "peer", remoteID, "err", err)
		failure := callerr.PeerFailure("create connection", remoteID, err)
		m.observe(Event{Kind: EventFailed, RemoteID: remoteID, Err: failure})
		return nil, failure
	}

	link := &Link{
		RemoteID:  remoteID,
		Initiator: initiator,
		CreatedAt: m.now(),
		conn:      conn,
		state:     StateCreated,
	}
	m.links[remoteID] = link

	conn.OnICECandidate(func(candidate pion.ICECandidateInit) {
		m.opts.Post(func() {
			if !m.current(link) {
				return
			}
			if err := m.send(signaling.ICECandidate(remoteID, candidate)); err != nil {
				m.logger.Debug("candidate not sent", "peer", remoteID, "err", err)
			}
		})
	})

	conn.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		m.opts.Post(func() {
			m.handleConnectionState(link, state)
		})
	})

	conn.OnRemoteTrack(func(track RemoteTrack) {
		m.opts.Post(func() {
			m.handleRemoteTrack(link, track)
		})
	})

	return link, nil
}

func (m *Manager) handleConnectionState(link *Link, state pion.PeerConnectionState) {
	if !m.current(link) {
		return
	}

	switch state {
	case pion.PeerConnectionStateConnected:
		if link.state == StateConnected {
			return
		}
		link.state = StateConnected
		m.logger.Info("peer connected", "peer", link.RemoteID)
		m.observe(Event{Kind: EventConnected, RemoteID: link.RemoteID})

	case pion.PeerConnectionStateFailed:
		m.fail(link, "ice", errors.New("connectivity checks failed"))

	case pion.PeerConnectionStateClosed:
		delete(m.links, link.RemoteID)
		link.state = StateClosed
		m.observe(Event{Kind: EventClosed, RemoteID: link.RemoteID})
	}
}

func (m *Manager) handleRemoteTrack(link *Link, track RemoteTrack) {
	if !m.current(link) {
		return
	}

	if link.remote == nil || link.remote.StreamID != track.StreamID {
		link.remote = &RemoteMedia{StreamID: track.StreamID, Tracks: make(map[string]string)}
	}
	link.remote.Tracks[track.Kind] = track.TrackID

	m.logger.Debug("remote track", "peer", link.RemoteID, "kind", track.Kind, "stream", track.StreamID)
	m.observe(Event{Kind: EventRemoteStream, RemoteID: link.RemoteID})
}

// fail closes only the given link and reports a peer failure.
func (m *Manager) fail(link *Link, op string, cause error) error {
	if m.current(link) {
		delete(m.links, link.RemoteID)
	}
	m.closeConn(link)

	err := callerr.PeerFailure(op, link.RemoteID, cause)
	m.logger.Warn("peer failed", "peer", link.RemoteID, "op", op, "err", cause)
	m.observe(Event{Kind: EventFailed, RemoteID: link.RemoteID, Err: err})
	return err
}

func (m *Manager) inconsistent(op, remoteID string) error {
	m.logger.Warn("signal for unknown peer", "op", op, "peer", remoteID)
	return callerr.NewPeerError(op, remoteID, callerr.ErrSignalInconsistency)
}

// flushCandidates applies the candidates held for link. Candidates tagged
// with an ICE username fragment the remote description does not carry were
// gathered by a connection the remote has since dropped.
func (m *Manager) flushCandidates(link *Link, remoteSDP string) {
	pending := link.pending
	link.pending = nil
	ufrags := sdpUfrags(remoteSDP)
	for _, candidate := range pending {
		if ufrag := candidateUfrag(candidate); ufrag != "" && len(ufrags) > 0 && !ufrags[ufrag] {
			m.logger.Debug("stale candidate dropped", "peer", link.RemoteID, "ufrag", ufrag)
			continue
		}
		if err := link.conn.AddICECandidate(candidate); err != nil {
			m.logger.Debug("queued candidate rejected", "peer", link.RemoteID, "err", err)
		}
	}
}

// sdpUfrags collects the a=ice-ufrag values of a session description.
func sdpUfrags(sdp string) map[string]bool {
	ufrags := map[string]bool{}
	for _, line := range strings.Split(sdp, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "a=ice-ufrag:"); ok {
			ufrags[v] = true
		}
	}
	return ufrags
}

// candidateUfrag returns the username fragment of candidate, from the
// explicit field or the "ufrag" extension of the candidate line.
func candidateUfrag(candidate pion.ICECandidateInit) string {
	if candidate.UsernameFragment != nil && *candidate.UsernameFragment != "" {
		return *candidate.UsernameFragment
	}
	fields := strings.Fields(candidate.Candidate)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "ufrag" {
			return fields[i+1]
		}
	}
	return ""
}

func (m *Manager) closeConn(link *Link) {
	if link.state == StateClosed {
		return
	}
	link.state = StateClosed
	link.pending = nil
	if err := link.conn.Close(); err != nil {
		m.logger.Debug("close connection", "peer", link.RemoteID, "err", err)
	}
}

// current reports whether link is still the live link for its remote id.
// Callbacks from replaced or closed connections are dropped.
func (m *Manager) current(link *Link) bool {
	return m.links[link.RemoteID] == link
}

func (m *Manager) send(msg *signaling.Message) error {
	if m.opts.Send == nil {
		return callerr.ErrChannelClosed
	}
	return m.opts.Send(msg)
}

func (m *Manager) observe(ev Event) {
	if m.opts.Observe != nil {
		m.opts.Observe(ev)
	}
}
