package rtc

import (
	pion "github.com/pion/webrtc/v4"
)

// PeerConnection is the media connection behind a Link. Callbacks may fire
// on any goroutine.
type PeerConnection interface {
	// CreateOffer generates an offer and applies it locally.
	CreateOffer() (string, error)

	// AcceptOffer applies a remote offer and returns the local answer.
	AcceptOffer(sdp string) (string, error)

	// ApplyAnswer applies the remote answer to an offer we made.
	ApplyAnswer(sdp string) error

	AddICECandidate(candidate pion.ICECandidateInit) error

	// ReplaceVideoTrack swaps the outgoing video without renegotiation. A nil
	// track stops sending video.
	ReplaceVideoTrack(track pion.TrackLocal) error

	OnICECandidate(fn func(pion.ICECandidateInit))
	OnConnectionStateChange(fn func(pion.PeerConnectionState))
	OnRemoteTrack(fn func(RemoteTrack))

	// PacketsReceived counts RTP packets read from every remote track.
	PacketsReceived() uint64

	Close() error
}

// Factory creates media connections preloaded with the outgoing tracks.
type Factory interface {
	NewPeerConnection(tracks Tracks) (PeerConnection, error)
}
