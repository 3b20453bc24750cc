package session

import (
	"errors"
	"time"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/rtc"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// handle dispatches one message from the coordination service.
func (s *Session) handle(msg *signaling.Message) {
	switch msg.Type {
	case signaling.TypeUsersInRoom:
		s.selfID = msg.ID
		s.manager.SetLocalID(msg.ID)
		for _, p := range msg.Participants {
			s.remember(p.ID, p.Role, p.JoinedAt)
		}
		for _, id := range msg.IDs {
			if id == s.selfID {
				continue
			}
			s.remember(id, "", time.Time{})
			s.linkErr(s.manager.CreateOutboundLink(id, s.outgoing()))
		}

	case signaling.TypeUserJoined:
		if msg.ID == "" || msg.ID == s.selfID {
			return
		}
		var joined time.Time
		if len(msg.Participants) > 0 {
			joined = msg.Participants[0].JoinedAt
		}
		s.remember(msg.ID, msg.Role, joined)
		s.notify(LevelInfo, describeJoin(msg.Role), nil)

		// An offer from the newcomer may already have been answered.
		if _, ok := s.manager.Link(msg.ID); ok {
			s.logger.Debug("already linked", "peer", msg.ID)
			return
		}
		s.linkErr(s.manager.CreateOutboundLink(msg.ID, s.outgoing()))

	case signaling.TypeOffer:
		s.remember(msg.From, "", time.Time{})
		s.linkErr(s.manager.CreateInboundLink(msg.From, msg.SDU, s.outgoing()))

	case signaling.TypeAnswer:
		s.linkErr(s.manager.ApplyAnswer(msg.From, msg.SDU))

	case signaling.TypeICECandidate:
		if msg.Candidate == nil {
			return
		}
		s.linkErr(s.manager.ApplyRemoteCandidate(msg.From, *msg.Candidate))

	case signaling.TypeUserLeft:
		s.manager.CloseLink(msg.ID)
		if _, ok := s.participants[msg.ID]; ok {
			delete(s.participants, msg.ID)
			s.notify(LevelInfo, "A participant left", nil)
		}

	case signaling.TypeScreenShareUpdate:
		if p, ok := s.participants[msg.ID]; ok {
			p.Sharing = msg.IsSharing
		}
		if msg.IsSharing {
			s.notify(LevelInfo, "A participant started sharing their screen", nil)
		}

	case signaling.TypeError:
		s.logger.Warn("service error", "error", msg.Error)
		s.notify(LevelWarning, msg.Error, nil)

	default:
		s.logger.Debug("unhandled message", "type", msg.Type)
	}
}

// remember records a remote participant, filling in details that arrive
// later.
func (s *Session) remember(id, role string, joined time.Time) {
	if id == "" || id == s.selfID {
		return
	}
	p, ok := s.participants[id]
	if !ok {
		p = &Participant{ID: id}
		s.participants[id] = p
	}
	if role != "" {
		p.Role = role
	}
	if !joined.IsZero() {
		p.Joined = joined
	}
}

func (s *Session) outgoing() rtc.Tracks {
	audio, video := s.media.Outgoing()
	return rtc.Tracks{Audio: audio, Video: video}
}

// linkErr reports a failed link operation. Signals for unknown peers were
// already logged by the manager and are otherwise ignored.
func (s *Session) linkErr(err error) {
	if err == nil || errors.Is(err, callerr.ErrSignalInconsistency) {
		return
	}
	if errors.Is(err, callerr.ErrPeerFailure) {
		// Reported through onLinkEvent.
		return
	}
	s.logger.Debug("link operation", "err", err)
}

func (s *Session) onLinkEvent(ev rtc.Event) {
	switch ev.Kind {
	case rtc.EventConnected:
		s.notify(LevelSuccess, "Connected to "+s.describePeer(ev.RemoteID), nil)
	case rtc.EventFailed:
		s.notify(LevelWarning, "Connection to "+s.describePeer(ev.RemoteID)+" failed", ev.Err)
	case rtc.EventClosed:
		s.logger.Debug("link closed by remote", "peer", ev.RemoteID)
	}
}

func (s *Session) describePeer(id string) string {
	if p, ok := s.participants[id]; ok && p.Role != "" {
		return "the " + p.Role
	}
	return "a participant"
}

func describeJoin(role string) string {
	if role == "" {
		return "A participant joined"
	}
	return "The " + role + " joined"
}

func (s *Session) announceShare(sharing bool) {
	if err := s.send(signaling.ScreenShareUpdate(sharing)); err != nil {
		s.logger.Debug("share update not sent", "err", err)
	}
}
