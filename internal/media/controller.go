package media

import (
	"context"
	"log/slog"

	pion "github.com/pion/webrtc/v4"
	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
)

// VideoSink receives the outgoing video track whenever it changes.
type VideoSink interface {
	ReplaceOutgoingVideoTrack(track pion.TrackLocal)
}

// ControllerOptions wires a Controller into its owner.
type ControllerOptions struct {
	Devices Devices
	Sink    VideoSink

	// ShareChanged announces screen sharing to the room.
	ShareChanged func(sharing bool)

	// ScreenEnded is called after a capture that ended on its own has been
	// torn down.
	ScreenEnded func()

	// Post runs fn on the goroutine that owns the Controller. Nil runs
	// inline.
	Post func(fn func())

	Logger *slog.Logger
}

// State is a snapshot of local media.
type State struct {
	HasAudio      bool
	HasVideo      bool
	MicOn         bool
	VideoOn       bool
	ScreenSharing bool
	AudioTrackID  string
	VideoTrackID  string
	VideoSource   Source
}

// Controller owns the outgoing audio and video tracks. At any time the
// outgoing video is fed by the camera, the screen, or nothing.
//
// Request* methods only talk to devices and may run on any goroutine; every
// other method must run on the owner's goroutine.
type Controller struct {
	opts   ControllerOptions
	logger *slog.Logger

	audio   *Track
	camera  *Track
	screen  *Track
	videoOn bool
}

func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}
	return &Controller{opts: opts, logger: logger.With("component", "media")}
}

// SetSink replaces the video sink.
func (c *Controller) SetSink(sink VideoSink) {
	c.opts.Sink = sink
}

// RequestUserMedia captures camera and microphone without changing state.
func (c *Controller) RequestUserMedia(ctx context.Context, wantVideo, wantAudio bool) (*Stream, error) {
	return c.opts.Devices.UserMedia(ctx, Constraints{Video: wantVideo, Audio: wantAudio})
}

// Adopt makes stream the local media, releasing anything held before.
func (c *Controller) Adopt(stream *Stream) {
	c.Release()
	c.audio = stream.Audio
	c.camera = stream.Video
	c.videoOn = stream.Video != nil
	c.logger.Debug("local media adopted", "audio", c.audio != nil, "video", c.videoOn)
}

// AcquireUserMedia captures and adopts camera and microphone.
func (c *Controller) AcquireUserMedia(ctx context.Context, wantVideo, wantAudio bool) (State, error) {
	stream, err := c.RequestUserMedia(ctx, wantVideo, wantAudio)
	if err != nil {
		return c.State(), err
	}
	c.Adopt(stream)
	return c.State(), nil
}

// Outgoing returns the tracks a new connection should send.
func (c *Controller) Outgoing() (audio, video pion.TrackLocal) {
	if c.audio != nil {
		audio = c.audio.Local()
	}
	if t := c.videoTrack(); t != nil {
		video = t.Local()
	}
	return audio, video
}

// SetMicEnabled flips the audio track's enabled flag.
func (c *Controller) SetMicEnabled(enabled bool) error {
	if c.audio == nil {
		return callerr.MediaAccess("microphone", callerr.ErrNoTrack, "no audio track")
	}
	c.audio.SetEnabled(enabled)
	return nil
}

// SetVideoEnabled turns video off by disabling the camera track, and back
// on by capturing a fresh camera track next to the existing audio.
func (c *Controller) SetVideoEnabled(ctx context.Context, enabled bool) error {
	if !enabled {
		return c.DisableVideo()
	}
	if c.videoOn {
		return nil
	}
	track, err := c.RequestCamera(ctx)
	if err != nil {
		return err
	}
	return c.AttachCamera(track)
}

// DisableVideo soft-disables the camera. The device is kept.
func (c *Controller) DisableVideo() error {
	if c.camera == nil {
		return callerr.MediaAccess("camera", callerr.ErrNoTrack, "no video track")
	}
	c.camera.SetEnabled(false)
	c.videoOn = false
	return nil
}

// RequestCamera captures a camera track only.
func (c *Controller) RequestCamera(ctx context.Context) (*Track, error) {
	stream, err := c.opts.Devices.UserMedia(ctx, Constraints{Video: true})
	if err != nil {
		return nil, err
	}
	if stream.Audio != nil {
		stream.Audio.Stop()
	}
	if stream.Video == nil {
		return nil, callerr.MediaAccess("camera", callerr.ErrNoTrack, "no video track")
	}
	return stream.Video, nil
}

// AttachCamera makes track the camera, replacing the previous one. The audio
// track is left untouched.
func (c *Controller) AttachCamera(track *Track) error {
	if c.camera != nil {
		c.camera.Stop()
	}
	c.camera = track
	c.videoOn = true

	if c.screen == nil {
		c.replaceVideo(track)
	}
	c.logger.Debug("camera attached", "track", track.ID())
	return nil
}

// StartScreenShare captures the screen and sends it instead of the camera.
func (c *Controller) StartScreenShare(ctx context.Context) error {
	if c.screen != nil {
		return nil
	}
	track, err := c.RequestScreen(ctx)
	if err != nil {
		return err
	}
	return c.AttachScreen(track)
}

// RequestScreen captures the screen without changing state.
func (c *Controller) RequestScreen(ctx context.Context) (*Track, error) {
	return c.opts.Devices.DisplayMedia(ctx)
}

// AttachScreen starts sending track as the outgoing video. A track that
// already stopped or ended is not shared.
func (c *Controller) AttachScreen(track *Track) error {
	if c.screen != nil {
		track.Stop()
		return nil
	}
	if track.Stopped() {
		c.logger.Info("screen capture ended before sharing", "track", track.ID())
		return ErrTrackEnded
	}

	c.screen = track
	c.replaceVideo(track)
	c.announce(true)

	track.OnEnded(func() {
		c.opts.Post(func() {
			if c.screen != track {
				return
			}
			c.logger.Info("screen capture ended")
			c.StopScreenShare()
			if c.opts.ScreenEnded != nil {
				c.opts.ScreenEnded()
			}
		})
	})
	c.logger.Debug("screen share started", "track", track.ID())
	return nil
}

// StopScreenShare releases the screen capture and restores the camera if
// video is on. Stopping when not sharing does nothing.
func (c *Controller) StopScreenShare() error {
	if c.screen == nil {
		return nil
	}
	c.screen.Stop()
	c.screen = nil

	c.replaceVideo(c.videoTrack())
	c.announce(false)
	c.logger.Debug("screen share stopped", "video_on", c.videoOn)
	return nil
}

// Release stops every track. It is safe to call repeatedly.
func (c *Controller) Release() {
	for _, t := range []*Track{c.audio, c.camera, c.screen} {
		if t != nil {
			t.Stop()
		}
	}
	c.audio = nil
	c.camera = nil
	c.screen = nil
	c.videoOn = false
}

func (c *Controller) State() State {
	s := State{
		HasAudio:      c.audio != nil,
		HasVideo:      c.camera != nil,
		VideoOn:       c.videoOn,
		ScreenSharing: c.screen != nil,
	}
	if c.audio != nil {
		s.MicOn = c.audio.Enabled()
		s.AudioTrackID = c.audio.ID()
	}
	if t := c.videoTrack(); t != nil {
		s.VideoTrackID = t.ID()
		s.VideoSource = t.Source()
	}
	return s
}

// Tracks returns every track currently held.
func (c *Controller) Tracks() []*Track {
	var tracks []*Track
	for _, t := range []*Track{c.audio, c.camera, c.screen} {
		if t != nil {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// videoTrack is the track feeding outgoing video, or nil.
func (c *Controller) videoTrack() *Track {
	if c.screen != nil {
		return c.screen
	}
	if c.videoOn && c.camera != nil {
		return c.camera
	}
	return nil
}

func (c *Controller) replaceVideo(track *Track) {
	if c.opts.Sink == nil {
		return
	}
	if track == nil {
		c.opts.Sink.ReplaceOutgoingVideoTrack(nil)
		return
	}
	c.opts.Sink.ReplaceOutgoingVideoTrack(track.Local())
}

func (c *Controller) announce(sharing bool) {
	if c.opts.ShareChanged != nil {
		c.opts.ShareChanged(sharing)
	}
}
