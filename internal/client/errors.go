package client

import (
	"errors"
	"fmt"
)

var (
	ErrMissingData      = errors.New("session response has no data")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// SessionError is fatal to the worker that received it.
type SessionError struct {
	StatusCode int
	Err        error
}

func (e *SessionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("session (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("session: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// HeartbeatError is recoverable; the worker logs it and keeps looping.
type HeartbeatError struct {
	StatusCode int
	Err        error
}

func (e *HeartbeatError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ping (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ping: %v", e.Err)
}

func (e *HeartbeatError) Unwrap() error { return e.Err }
