package dbconn

import "errors"

// State is the lifecycle state of a connection manager.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned for attempts on, or finished after, a closed manager.
	ErrClosed = errors.New("dbconn: manager closed")
	// ErrNotReady is returned by operations that need an established connection.
	ErrNotReady = errors.New("dbconn: connection not ready")
)
