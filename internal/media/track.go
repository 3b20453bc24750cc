package media

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Source is the device a track is captured from.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceCamera     Source = "camera"
	SourceScreen     Source = "screen"
)

// Track is one captured media track. A disabled track stays attached to its
// connections but sends nothing.
type Track struct {
	id     string
	kind   Kind
	source Source
	local  *pion.TrackLocalStaticSample

	enabled atomic.Bool
	once    sync.Once
	done    chan struct{}

	mu      sync.Mutex
	onEnded func()
	ended   bool
}

// NewTrack creates an enabled track backed by a pion sample track.
func NewTrack(kind Kind, source Source, codec pion.RTPCodecCapability, streamID string) (*Track, error) {
	id := uuid.NewString()
	local, err := pion.NewTrackLocalStaticSample(codec, id, streamID)
	if err != nil {
		return nil, fmt.Errorf("create %s track: %w", kind, err)
	}

	t := &Track{
		id:     id,
		kind:   kind,
		source: source,
		local:  local,
		done:   make(chan struct{}),
	}
	t.enabled.Store(true)
	return t, nil
}

func (t *Track) ID() string       { return t.id }
func (t *Track) Kind() Kind       { return t.kind }
func (t *Track) Source() Source   { return t.source }
func (t *Track) StreamID() string { return t.local.StreamID() }

// Local returns the track handed to peer connections.
func (t *Track) Local() pion.TrackLocal {
	return t.local
}

func (t *Track) Enabled() bool {
	return t.enabled.Load()
}

func (t *Track) SetEnabled(enabled bool) {
	t.enabled.Store(enabled)
}

// WriteSample forwards a captured sample unless the track is disabled.
func (t *Track) WriteSample(sample pionmedia.Sample) error {
	if !t.enabled.Load() {
		return nil
	}
	return t.local.WriteSample(sample)
}

// OnEnded registers fn to run when the source ends by itself. It is not
// called for Stop. fn runs at once if the source has already ended.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	ended := t.ended
	t.mu.Unlock()
	if ended && fn != nil {
		fn()
	}
}

// Stop releases the source.
func (t *Track) Stop() {
	t.once.Do(func() {
		close(t.done)
	})
}

// End marks the source as finished on its own, e.g. the user ended a screen
// capture outside the application.
func (t *Track) End() {
	ended := false
	t.once.Do(func() {
		close(t.done)
		ended = true
	})
	if !ended {
		return
	}

	t.mu.Lock()
	t.ended = true
	fn := t.onEnded
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Done is closed once the track is stopped or ended.
func (t *Track) Done() <-chan struct{} {
	return t.done
}

func (t *Track) Stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Stream groups the tracks of one capture request.
type Stream struct {
	ID    string
	Audio *Track
	Video *Track
}

func (s *Stream) Tracks() []*Track {
	var tracks []*Track
	if s.Audio != nil {
		tracks = append(tracks, s.Audio)
	}
	if s.Video != nil {
		tracks = append(tracks, s.Video)
	}
	return tracks
}

func (s *Stream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
