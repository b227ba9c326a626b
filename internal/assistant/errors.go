package assistant

import (
	"errors"
	"fmt"
)

// ErrRunTimeout reports that a run stayed non-terminal past the polling budget.
var ErrRunTimeout = errors.New("assistant run timed out while polling")

// RemoteError reports a transport failure or non-2xx response from the
// remote API. StatusCode is 0 when the request never reached the server.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("assistant API unreachable: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("assistant API error (HTTP %d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("assistant API error (HTTP %d)", e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RateLimited reports whether the remote rejected the request for rate
// limiting, which gets its own user-facing wording.
func (e *RemoteError) RateLimited() bool { return e.StatusCode == 429 }

// RunFailedError reports a run that reached a terminal failure status
// (failed, expired, or cancelled by the remote side).
type RunFailedError struct {
	Status RunStatus
	Reason string
}

func (e *RunFailedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("assistant run %s: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("assistant run ended with status %s", e.Status)
}
