package rtc

import (
	"time"

	pion "github.com/pion/webrtc/v4"
)

// State is the negotiation state of one Link.
type State int

const (
	StateCreated State = iota
	StateSignalSent
	StateSignalReceived
	StateAnswerSent
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSignalSent:
		return "offer-sent"
	case StateSignalReceived:
		return "offer-received"
	case StateAnswerSent:
		return "answer-sent"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Tracks are the outgoing tracks a new connection starts with. Either may be
// nil; a video sender is negotiated regardless so it can be filled later.
type Tracks struct {
	Audio pion.TrackLocal
	Video pion.TrackLocal
}

// RemoteTrack describes one track received from a remote participant.
type RemoteTrack struct {
	StreamID string
	TrackID  string
	Kind     string
}

// RemoteMedia is the last stream a remote participant sent us.
type RemoteMedia struct {
	StreamID string
	Tracks   map[string]string // kind -> track id
}

// Link is the local handle of one direct media connection.
type Link struct {
	RemoteID  string
	Initiator bool
	CreatedAt time.Time

	conn            PeerConnection
	state           State
	remote          *RemoteMedia
	remoteDescribed bool
	pending         []pion.ICECandidateInit
}

// State returns the current negotiation state.
func (l *Link) State() State {
	return l.state
}

// Remote returns the received media, nil until the first track arrives.
func (l *Link) Remote() *RemoteMedia {
	return l.remote
}

// LinkView is a read-only copy of a Link for rendering.
type LinkView struct {
	RemoteID        string
	State           State
	Initiator       bool
	HasRemoteStream bool
	RemoteKinds     []string
	Packets         uint64
	Since           time.Time
}

func (l *Link) view() LinkView {
	v := LinkView{
		RemoteID:  l.RemoteID,
		State:     l.state,
		Initiator: l.Initiator,
		Since:     l.CreatedAt,
	}
	if l.remote != nil {
		v.HasRemoteStream = true
		v.Packets = l.conn.PacketsReceived()
		for _, kind := range []string{"audio", "video"} {
			if _, ok := l.remote.Tracks[kind]; ok {
				v.RemoteKinds = append(v.RemoteKinds, kind)
			}
		}
	}
	return v
}
