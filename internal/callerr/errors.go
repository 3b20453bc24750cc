package callerr

import (
	"errors"
	"fmt"
)

var (
	ErrConnection          = errors.New("signaling connection failed")
	ErrMediaAccess         = errors.New("media device unavailable")
	ErrPeerFailure         = errors.New("peer negotiation failed")
	ErrSignalInconsistency = errors.New("signal for unknown peer")
	ErrChannelClosed       = errors.New("signaling channel closed")
	ErrAlreadyConnected    = errors.New("session already connected")
	ErrNotConnected        = errors.New("session not connected")
	ErrCancelled           = errors.New("operation cancelled by disconnect")
	ErrNoRoom              = errors.New("no room to join")
	ErrNoTrack             = errors.New("no such track")
	ErrSessionClosed       = errors.New("session closed")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Error carries the operation that failed and, for peer errors, the remote
// participant it concerns.
type Error struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Peer != "" {
		if e.Details != "" {
			return fmt.Sprintf("%s %s: %v (%s)", e.Op, e.Peer, e.Err, e.Details)
		}
		return fmt.Sprintf("%s %s: %v", e.Op, e.Peer, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func NewPeerError(op, peer string, err error) *Error {
	return &Error{Op: op, Peer: peer, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}

// PeerFailure wraps cause so that it matches both ErrPeerFailure and cause.
func PeerFailure(op, peer string, cause error) *Error {
	return &Error{Op: op, Peer: peer, Err: fmt.Errorf("%w: %w", ErrPeerFailure, cause)}
}

// MediaAccess wraps cause so that it matches both ErrMediaAccess and cause.
func MediaAccess(op string, cause error, details string) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrMediaAccess, cause), Details: details}
}

// Connection wraps cause so that it matches both ErrConnection and cause.
func Connection(op string, cause error, details string) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrConnection, cause), Details: details}
}

// PeerOf returns the remote participant an error refers to, if any.
func PeerOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Peer
	}
	return ""
}
