package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ravipandeydu/interview-pro-sub002/internal/session"
)

const (
	refreshInterval = 500 * time.Millisecond
	noticeHistory   = 6
)

// Call is the part of a session the call view drives.
type Call interface {
	Snapshot() session.Snapshot
	ToggleMic()
	ToggleVideo(ctx context.Context)
	ToggleScreenShare(ctx context.Context)
	Reconnect(ctx context.Context) error
}

type tickMsg time.Time

type noticeMsg session.Notice

type callModel struct {
	ctx      context.Context
	call     Call
	notices  <-chan session.Notice
	link     string
	spinner  spinner.Model
	snap     session.Snapshot
	history  []session.Notice
	quitting bool
}

func newCallModel(ctx context.Context, call Call, notices <-chan session.Notice, link string) *callModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &callModel{
		ctx:     ctx,
		call:    call,
		notices: notices,
		link:    link,
		spinner: s,
		snap:    call.Snapshot(),
	}
}

// RunCall shows the call until the user quits or ctx is cancelled.
// Notices from the session are read from notices.
func RunCall(ctx context.Context, call Call, notices <-chan session.Notice, link string) error {
	m := newCallModel(ctx, call, notices, link)
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *callModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), waitNotice(m.notices))
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitNotice(notices <-chan session.Notice) tea.Cmd {
	if notices == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-notices
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// background runs a session operation off the UI goroutine; the outcome
// arrives as a notice.
func (m *callModel) background(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m *callModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "m":
			return m, m.background(m.call.ToggleMic)
		case "v":
			return m, m.background(func() { m.call.ToggleVideo(m.ctx) })
		case "s":
			return m, m.background(func() { m.call.ToggleScreenShare(m.ctx) })
		case "r":
			return m, m.background(func() {
				// Failures are reported as notices.
				_ = m.call.Reconnect(m.ctx)
			})
		}
		return m, nil

	case tickMsg:
		m.snap = m.call.Snapshot()
		return m, tick()

	case noticeMsg:
		m.history = append(m.history, session.Notice(msg))
		if len(m.history) > noticeHistory {
			m.history = m.history[len(m.history)-noticeHistory:]
		}
		return m, waitNotice(m.notices)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *callModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.mediaLine())
	b.WriteString("\n\n")
	if m.snap.State == session.StateConnected {
		b.WriteString(PeersView(m.snap.Peers, m.snap.Participants))
		b.WriteString("\n")
	}
	for _, n := range m.history {
		b.WriteString("\n")
		b.WriteString(FormatNotice(n))
	}
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("m mic • v camera • s share screen • r reconnect • q leave"))
	return ContainerStyle.Render(b.String())
}

func (m *callModel) header() string {
	room := m.snap.RoomID
	if room == "" {
		room = "-"
	}
	title := TitleStyle.Render(fmt.Sprintf("%s Interview room %s", IconRoom, room))

	var status string
	switch m.snap.State {
	case session.StateConnecting:
		status = m.spinner.View() + " connecting"
	case session.StateConnected:
		status = SuccessStyle.Render("connected")
		if m.snap.SelfID != "" {
			status += MutedStyle.Render(" as " + ShortID(m.snap.SelfID))
		}
	case session.StateFailed:
		status = ErrorStyle.Render("failed")
		if m.snap.LastError != nil {
			status += " " + MutedStyle.Render(m.snap.LastError.Error())
		}
	default:
		status = WarningStyle.Render(m.snap.State.String()) + MutedStyle.Render(" (r to reconnect)")
	}

	line := title + "  " + status
	if m.link != "" {
		line += "\n" + MutedStyle.Render(IconWeb+" "+m.link)
	}
	return line
}

func (m *callModel) mediaLine() string {
	st := m.snap.Media
	badge := func(icon, label string, on, present bool) string {
		switch {
		case !present:
			return OffStyle.Render(icon + " " + label + " n/a")
		case on:
			return StatusStyle.Render(icon + " " + label + " on")
		default:
			return OffStyle.Render(icon + " " + label + " off")
		}
	}
	return strings.Join([]string{
		badge(IconMic, "mic", st.MicOn, st.HasAudio),
		badge(IconCamera, "camera", st.VideoOn && !st.ScreenSharing, st.HasVideo || st.ScreenSharing),
		badge(IconScreen, "screen", st.ScreenSharing, true),
	}, " ")
}
