package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/ravipandeydu/interview-pro-sub002/internal/rtc"
	"github.com/ravipandeydu/interview-pro-sub002/internal/session"
	"github.com/ravipandeydu/interview-pro-sub002/internal/signaling"
)

// PeersView renders the peer connections of a call.
func PeersView(peers []rtc.LinkView, participants []session.Participant) string {
	if len(peers) == 0 {
		return MutedStyle.Render("Waiting for others to join...")
	}

	roles := make(map[string]session.Participant, len(participants))
	for _, p := range participants {
		roles[p.ID] = p
	}

	var rows [][]string
	for _, peer := range peers {
		p := roles[peer.RemoteID]
		role := p.Role
		if role == "" {
			role = "participant"
		}
		if p.Sharing {
			role += " " + IconScreen
		}

		media := "none"
		if len(peer.RemoteKinds) > 0 {
			media = strings.Join(peer.RemoteKinds, "+")
		}

		rows = append(rows, []string{
			ShortID(peer.RemoteID),
			role,
			peer.State.String(),
			media,
			fmt.Sprintf("%d", peer.Packets),
			time.Since(peer.Since).Truncate(time.Second).String(),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Peer", "Role", "State", "Media", "Packets", "For").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// ParticipantsTable renders a room's presence list for plain terminal
// output.
func ParticipantsTable(roomID string, participants []signaling.Participant) string {
	t := prettytable.NewWriter()
	t.SetTitle("Room " + roomID)
	t.AppendHeader(prettytable.Row{"#", "ID", "User", "Role", "Joined"})
	for i, p := range participants {
		user := p.UserID
		if user == "" {
			user = "-"
		}
		t.AppendRow(prettytable.Row{i + 1, p.ID, user, p.Role, p.JoinedAt.Local().Format(time.DateTime)})
	}
	t.AppendFooter(prettytable.Row{"", "", "", "Total", len(participants)})
	t.SetStyle(prettytable.StyleRounded)
	return t.Render()
}

// ShortID abbreviates a connection id for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func (r RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)
	return SuccessBoxStyle.Render(content)
}
