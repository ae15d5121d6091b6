package ime

import "errors"

// Fatal conditions. Session.Run returns an error wrapping one of these
// and the process is expected to release its resources and exit.
var (
	// ErrUnavailable means the compositor refused the input method,
	// usually because another one is already bound to the seat, or the
	// connection to it was lost.
	ErrUnavailable = errors.New("input method unavailable")

	// ErrGrabFailed means the keyboard grab could not be acquired.
	ErrGrabFailed = errors.New("keyboard grab failed")
)
