package session

import (
	"context"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/media"
)

// ToggleMic mutes or unmutes the microphone. The result is reported through
// the Notifier.
func (s *Session) ToggleMic() {
	s.do(func() {
		if !s.inCall() {
			return
		}
		st := s.media.State()
		if err := s.media.SetMicEnabled(!st.MicOn); err != nil {
			s.notify(LevelWarning, "Microphone unavailable", err)
			return
		}
		if st.MicOn {
			s.notify(LevelSuccess, "Microphone muted", nil)
		} else {
			s.notify(LevelSuccess, "Microphone unmuted", nil)
		}
	})
}

// ToggleVideo turns the camera off, or captures it afresh to turn it on.
// A failed capture leaves video off.
func (s *Session) ToggleVideo(ctx context.Context) {
	var (
		epoch uint64
		start bool
	)
	s.do(func() {
		if !s.inCall() {
			return
		}
		if s.media.State().VideoOn {
			if err := s.media.DisableVideo(); err != nil {
				s.notify(LevelWarning, "Camera unavailable", err)
				return
			}
			s.notify(LevelSuccess, "Camera off", nil)
			return
		}
		if s.cameraPending {
			return
		}
		s.cameraPending = true
		epoch = s.epoch
		start = true
	})
	if !start {
		return
	}

	track, err := s.media.RequestCamera(ctx)

	done := s.do(func() {
		if s.epoch != epoch {
			stopTrack(track)
			return
		}
		s.cameraPending = false
		if err != nil {
			s.notify(LevelError, "Could not turn on the camera", err)
			return
		}
		s.media.AttachCamera(track)
		s.notify(LevelSuccess, "Camera on", nil)
	})
	if done != nil {
		stopTrack(track)
	}
}

// ToggleScreenShare starts or stops sharing the screen.
func (s *Session) ToggleScreenShare(ctx context.Context) {
	var (
		epoch uint64
		start bool
	)
	s.do(func() {
		if !s.inCall() {
			return
		}
		if s.media.State().ScreenSharing {
			s.media.StopScreenShare()
			s.notify(LevelSuccess, "Screen sharing stopped", nil)
			return
		}
		if s.screenPending {
			return
		}
		s.screenPending = true
		epoch = s.epoch
		start = true
	})
	if !start {
		return
	}

	track, err := s.media.RequestScreen(ctx)

	done := s.do(func() {
		if s.epoch != epoch {
			stopTrack(track)
			return
		}
		s.screenPending = false
		if err != nil {
			s.notify(LevelError, "Could not share the screen", err)
			return
		}
		if err := s.media.AttachScreen(track); err != nil {
			s.notify(LevelInfo, "Screen sharing ended", nil)
			return
		}
		s.notify(LevelSuccess, "Screen sharing started", nil)
	})
	if done != nil {
		stopTrack(track)
	}
}

func (s *Session) inCall() bool {
	if s.state == StateConnected {
		return true
	}
	s.notify(LevelWarning, "Not in a call", callerr.ErrNotConnected)
	return false
}

func stopTrack(t *media.Track) {
	if t != nil {
		t.Stop()
	}
}
