package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ravipandeydu/interview-pro-sub002/internal/session"
)

// Color palette
var (
	Primary    = lipgloss.Color("#6366F1") // Indigo accent
	Secondary  = lipgloss.Color("#22d3ee") // Cyan
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1).
			Bold(true)

	OffStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Muted).
			Padding(0, 1)
)

var (
	SuccessBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Success).
			Padding(1, 2)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Align(lipgloss.Center)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

	TableRowStyle    = tableCellStyle.Foreground(lipgloss.Color("255"))
	TableRowAltStyle = tableCellStyle.Foreground(lipgloss.Color("245"))

	ContainerStyle = lipgloss.NewStyle().Margin(1, 2)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)
)

const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconRoom    = "🚪"
	IconPeer    = "👤"
	IconMic     = "🎙️"
	IconCamera  = "📷"
	IconScreen  = "🖥️"
	IconCopy    = "📋"
	IconWeb     = "🌐"
)

// NoticeStyle picks the icon and style for a notice level.
func NoticeStyle(level session.Level) (string, lipgloss.Style) {
	switch level {
	case session.LevelSuccess:
		return IconSuccess, SuccessStyle
	case session.LevelWarning:
		return IconWarning, WarningStyle
	case session.LevelError:
		return IconError, ErrorStyle
	}
	return IconInfo, InfoStyle
}

// FormatNotice renders a notice on one line.
func FormatNotice(n session.Notice) string {
	icon, style := NoticeStyle(n.Level)
	text := n.Text
	if n.Err != nil && n.Level >= session.LevelWarning {
		text = fmt.Sprintf("%s: %v", text, n.Err)
	}
	return fmt.Sprintf("%s %s %s", MutedStyle.Render(n.At.Format("15:04:05")), icon, style.Render(text))
}

func PrintError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintErrorf(format string, args ...any) {
	PrintError(fmt.Sprintf(format, args...))
}

func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), msg)
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}
