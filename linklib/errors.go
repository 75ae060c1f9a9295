package linklib

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionFailed means the endpoint could not be reached within
	// the configured number of attempts.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost means the link dropped while a command was
	// outstanding.
	ErrConnectionLost = errors.New("connection lost")

	// ErrTimeout means the peer did not answer a command in time.
	ErrTimeout = errors.New("command timed out")
)

// RemoteError is a failure explicitly reported by the peer.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("remote error: %s", e.Message) }
