package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravipandeydu/interview-pro-sub002/internal/media"
	"github.com/ravipandeydu/interview-pro-sub002/internal/rtc"
	"github.com/ravipandeydu/interview-pro-sub002/internal/session"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

type fakeCall struct {
	mu    sync.Mutex
	snap  session.Snapshot
	calls []string
}

func (f *fakeCall) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeCall) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeCall) ToggleMic()                        { f.record("mic") }
func (f *fakeCall) ToggleVideo(context.Context)       { f.record("video") }
func (f *fakeCall) ToggleScreenShare(context.Context) { f.record("screen") }

func (f *fakeCall) Reconnect(context.Context) error {
	f.record("reconnect")
	return nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCallModel_KeysDriveSession(t *testing.T) {
	call := &fakeCall{}
	m := newCallModel(context.Background(), call, nil, "")

	for _, k := range []string{"m", "v", "s", "r"} {
		_, cmd := m.Update(key(k))
		require.NotNil(t, cmd, k)
		assert.Nil(t, cmd())
	}
	assert.Equal(t, []string{"mic", "video", "screen", "reconnect"}, call.calls)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestCallModel_RefreshesSnapshot(t *testing.T) {
	call := &fakeCall{}
	m := newCallModel(context.Background(), call, nil, "https://meet.example/room/otter-maple")

	call.mu.Lock()
	call.snap = session.Snapshot{
		State:  session.StateConnected,
		RoomID: "otter-maple",
		SelfID: "0123456789",
		Media:  media.State{HasAudio: true, MicOn: true},
		Peers: []rtc.LinkView{{
			RemoteID:    "abcdef123456",
			State:       rtc.StateConnected,
			RemoteKinds: []string{"audio", "video"},
			Since:       time.Now(),
		}},
		Participants: []session.Participant{{ID: "abcdef123456", Role: signaling.RoleRecruiter}},
	}
	call.mu.Unlock()

	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "otter-maple")
	assert.Contains(t, view, "abcdef12")
	assert.Contains(t, view, "recruiter")
	assert.Contains(t, view, "audio+video")
}

func TestCallModel_KeepsRecentNotices(t *testing.T) {
	notices := make(chan session.Notice, 1)
	m := newCallModel(context.Background(), &fakeCall{}, notices, "")

	for i := 0; i < noticeHistory+3; i++ {
		_, cmd := m.Update(noticeMsg(session.Notice{Level: session.LevelInfo, Text: "hello", At: time.Now()}))
		require.NotNil(t, cmd)
	}
	assert.Len(t, m.history, noticeHistory)

	_, _ = m.Update(noticeMsg(session.Notice{Level: session.LevelError, Text: "Could not share the screen", Err: errors.New("denied"), At: time.Now()}))
	assert.Contains(t, m.View(), "Could not share the screen: denied")
}

func TestParticipantsTable(t *testing.T) {
	out := ParticipantsTable("otter-maple", []signaling.Participant{
		{ID: "p1", UserID: "u1", Role: signaling.RoleRecruiter, JoinedAt: time.Now()},
		{ID: "p2", Role: signaling.RoleCandidate, JoinedAt: time.Now()},
	})
	assert.Contains(t, out, "otter-maple")
	assert.Contains(t, out, "recruiter")
	assert.Contains(t, out, "candidate")
}
