package session

import (
	"context"
	"errors"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// Connect captures local media, opens the signaling channel and joins
// roomID. It returns once the join has been sent. A media failure leaves the
// session Failed without opening the channel.
func (s *Session) Connect(ctx context.Context, roomID string) error {
	if roomID == "" {
		return callerr.ErrNoRoom
	}

	var (
		epoch uint64
		err   error
	)
	if doErr := s.do(func() {
		switch s.state {
		case StateConnecting, StateConnected:
			err = callerr.ErrAlreadyConnected
			return
		}
		s.epoch++
		epoch = s.epoch
		s.roomID = roomID
		s.lastErr = nil
		s.setState(StateConnecting)
	}); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}

	s.logger.Info("connecting", "room", roomID)

	want := s.opts.Media
	stream, mediaErr := s.media.RequestUserMedia(ctx, want.Video, want.Audio)

	if doErr := s.do(func() {
		if s.epoch != epoch {
			if stream != nil {
				stream.Stop()
			}
			err = callerr.ErrCancelled
			return
		}
		if mediaErr != nil {
			s.fail("Camera or microphone unavailable", mediaErr)
			err = mediaErr
			return
		}
		s.media.Adopt(stream)
	}); doErr != nil {
		if stream != nil {
			stream.Stop()
		}
		return doErr
	}
	if err != nil {
		return err
	}

	ch, dialErr := s.opts.Dialer.Dial(ctx, roomID, s.opts.Token)

	if doErr := s.do(func() {
		if s.epoch != epoch {
			if ch != nil {
				ch.Close()
			}
			err = callerr.ErrCancelled
			return
		}
		if dialErr != nil {
			s.media.Release()
			s.fail("Could not reach the interview room", dialErr)
			err = dialErr
			return
		}
		s.attach(epoch, ch)
		if sendErr := ch.Send(signaling.Join(roomID)); sendErr != nil {
			s.channel = nil
			ch.Close()
			s.media.Release()
			err = callerr.Connection("join", sendErr, roomID)
			s.fail("Could not join the interview room", err)
			return
		}
		s.setState(StateConnected)
		s.notify(LevelSuccess, "Joined room "+roomID, nil)
	}); doErr != nil {
		if ch != nil {
			ch.Close()
		}
		return doErr
	}
	return err
}

// Disconnect leaves the room and releases everything. It is idempotent and
// safe in any state; an in-flight Connect is cancelled.
func (s *Session) Disconnect() error {
	return s.do(s.teardown)
}

// Reconnect disconnects, ignoring errors, and connects to the same room.
func (s *Session) Reconnect(ctx context.Context) error {
	var roomID string
	if err := s.do(func() {
		roomID = s.roomID
		s.teardown()
	}); err != nil {
		return err
	}
	if roomID == "" {
		return callerr.ErrNoRoom
	}
	return s.Connect(ctx, roomID)
}

// attach installs ch as the current channel. Messages and transport loss are
// fed back into the loop tagged with the epoch they belong to.
func (s *Session) attach(epoch uint64, ch signaling.Channel) {
	s.channel = ch
	ch.OnMessage(func(msg *signaling.Message) {
		s.post(func() {
			if s.epoch != epoch || s.channel != ch {
				return
			}
			s.handle(msg)
		})
	})
	go func() {
		<-ch.Done()
		s.post(func() {
			s.transportLost(epoch, ch)
		})
	}()
}

func (s *Session) transportLost(epoch uint64, ch signaling.Channel) {
	if s.epoch != epoch || s.channel != ch {
		return
	}
	s.logger.Warn("signaling transport lost", "room", s.roomID)

	s.channel = nil
	s.manager.CloseAll()
	s.media.Release()
	s.resetRoom()
	s.lastErr = callerr.ErrConnection
	s.setState(StateDisconnected)
	s.notify(LevelError, "Connection to the room was lost", callerr.ErrConnection)
}

func (s *Session) teardown() {
	s.epoch++

	if s.channel != nil {
		if err := s.channel.Send(signaling.LeaveRoom(s.roomID)); err != nil && !errors.Is(err, callerr.ErrChannelClosed) {
			s.logger.Debug("leave not sent", "err", err)
		}
		s.channel.Close()
		s.channel = nil
	}

	s.manager.CloseAll()
	s.media.Release()
	s.resetRoom()
	s.cameraPending = false
	s.screenPending = false

	if s.state != StateIdle {
		s.setState(StateDisconnected)
	}
}

func (s *Session) resetRoom() {
	s.selfID = ""
	s.manager.SetLocalID("")
	clear(s.participants)
}

func (s *Session) fail(text string, err error) {
	s.lastErr = err
	s.setState(StateFailed)
	s.logger.Error(text, "err", err)
	s.notify(LevelError, text, err)
}
