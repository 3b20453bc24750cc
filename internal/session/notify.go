package session

import "time"

// Level is the severity of a user-facing notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Notice is a status message for the user, the equivalent of a toast.
type Notice struct {
	Level Level
	Text  string
	Err   error
	At    time.Time
}

// Notifier receives notices. Notify is called from the session goroutine
// and must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// ChanNotifier delivers notices on a buffered channel, dropping them when
// the reader falls behind.
type ChanNotifier chan Notice

func (c ChanNotifier) Notify(n Notice) {
	select {
	case c <- n:
	default:
	}
}
