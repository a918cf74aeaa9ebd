package usecase

import (
	"errors"
	"fmt"
)

// ErrSessionActive is returned when a session is started while another one is
// still running
var ErrSessionActive = errors.New("a live session is already active")

// DeviceError reports a failure to open or read the audio input device
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %v", e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ConnectionError reports a failure to establish or keep the live connection
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("live connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ClosedSessionError reports a send attempted after the session closed
type ClosedSessionError struct {
	Err error
}

func (e *ClosedSessionError) Error() string {
	if e.Err == nil {
		return "session is closed"
	}
	return fmt.Sprintf("session is closed: %v", e.Err)
}

func (e *ClosedSessionError) Unwrap() error { return e.Err }

// DecodeError reports malformed audio payload from the server. Chunks that
// fail to decode are dropped; the session keeps running.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode audio chunk: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
