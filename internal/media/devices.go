package media

import "context"

// Constraints select which kinds a user media request captures.
type Constraints struct {
	Video bool
	Audio bool
}

// Devices is the capture backend.
type Devices interface {
	// UserMedia captures the camera and/or microphone. Failures wrap
	// callerr.ErrMediaAccess.
	UserMedia(ctx context.Context, c Constraints) (*Stream, error)

	// DisplayMedia captures the screen. The returned track ends on its own
	// when the capture is stopped outside the application.
	DisplayMedia(ctx context.Context) (*Track, error)
}
