package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ravipandeydu/interview-pro-sub002/internal/callerr"
	"github.com/ravipandeydu/interview-pro-sub002/internal/media"
	"github.com/ravipandeydu/interview-pro-sub002/internal/rtc"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// State of the call.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Options configure a Session.
type Options struct {
	Dialer  signaling.Dialer
	Factory rtc.Factory
	Devices media.Devices

	// Token is sent as the bearer credential when dialing.
	Token string

	// Media selects what Connect captures. The zero value captures both.
	Media media.Constraints

	Notifier Notifier

	// Logger is the untagged base logger. The session, its peer manager
	// and its media controller each add their own component attribute.
	Logger *slog.Logger
}

// Participant is a remote member of the room.
type Participant struct {
	ID      string
	Role    string
	Sharing bool
	Joined  time.Time
}

// Snapshot is a consistent copy of the session for rendering.
type Snapshot struct {
	State        State
	RoomID       string
	SelfID       string
	Media        media.State
	Peers        []rtc.LinkView
	Participants []Participant
	LastError    error
}

// Session is the call façade. Every piece of state is owned by a single
// goroutine that runs queued operations one at a time; media capture and
// dialing run outside it and re-enter when done.
type Session struct {
	opts    Options
	logger  *slog.Logger
	media   *media.Controller
	manager *rtc.Manager

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
	closed bool

	// Owned by the loop.
	state         State
	epoch         uint64
	roomID        string
	selfID        string
	channel       signaling.Channel
	participants  map[string]*Participant
	lastErr       error
	cameraPending bool
	screenPending bool
}

// New creates a session and starts its loop.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Media.Video && !opts.Media.Audio {
		opts.Media = media.Constraints{Video: true, Audio: true}
	}

	s := &Session{
		opts:         opts,
		logger:       logger.With("component", "session"),
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		participants: make(map[string]*Participant),
	}

	s.manager = rtc.NewManager(rtc.Options{
		Factory: opts.Factory,
		Send:    s.send,
		Post:    s.post,
		Observe: s.onLinkEvent,
		Logger:  logger,
	})

	s.media = media.NewController(media.ControllerOptions{
		Devices:      opts.Devices,
		Sink:         s.manager,
		ShareChanged: s.announceShare,
		ScreenEnded: func() {
			s.notify(LevelInfo, "Screen sharing ended", nil)
		},
		Post:   s.post,
		Logger: logger,
	})

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
		case <-s.quit:
			return
		}
		for {
			fn := s.next()
			if fn == nil {
				break
			}
			fn()
		}
	}
}

func (s *Session) next() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	fn := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return fn
}

// post queues fn on the loop without waiting. It never blocks, so it is safe
// to call from connection callbacks while the loop is busy.
func (s *Session) post(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return callerr.ErrSessionClosed
	}
	s.queue = append(s.queue, func() {
		defer close(finished)
		fn()
	})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return callerr.ErrSessionClosed
	}
}

// Close disconnects and stops the loop. The session cannot be used again.
func (s *Session) Close() error {
	if err := s.do(s.teardown); err != nil {
		return nil
	}

	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()

	close(s.quit)
	<-s.done
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	if err := s.do(func() { snap = s.snapshot() }); err != nil {
		snap.State = StateDisconnected
		snap.LastError = err
	}
	return snap
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		State:     s.state,
		RoomID:    s.roomID,
		SelfID:    s.selfID,
		Media:     s.media.State(),
		Peers:     s.manager.Links(),
		LastError: s.lastErr,
	}
	for _, p := range s.participants {
		snap.Participants = append(snap.Participants, *p)
	}
	sort.Slice(snap.Participants, func(i, j int) bool {
		return snap.Participants[i].ID < snap.Participants[j].ID
	})
	return snap
}

func (s *Session) send(msg *signaling.Message) error {
	if s.channel == nil {
		return callerr.ErrChannelClosed
	}
	return s.channel.Send(msg)
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("state changed", "from", s.state, "to", state)
	s.state = state
}

func (s *Session) notify(level Level, text string, err error) {
	if s.opts.Notifier == nil {
		return
	}
	s.opts.Notifier.Notify(Notice{Level: level, Text: text, Err: err, At: time.Now()})
}
