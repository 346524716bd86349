package audio

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a transcription session.
type State int

const (
	// StateAwaitingConfig - Session created, no input seen yet. An optional
	// config message may still arrive.
	StateAwaitingConfig State = iota
	// StateStreaming - Config accepted, audio frames are being buffered.
	StateStreaming
	// StateClosing - Close requested, draining buffered audio.
	StateClosing
	// StateClosed - Session is finished. Terminal state.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingConfig:
		return "AWAITING_CONFIG"
	case StateStreaming:
		return "STREAMING"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid state transitions.
var (
	ErrSessionClosed     = errors.New("session is closed")
	ErrAlreadyConfigured = errors.New("session is already configured")
)

// Lifecycle manages the state machine for a single transcription session.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	AWAITING_CONFIG → STREAMING → CLOSING → CLOSED
//
// Rules:
//   - AWAITING_CONFIG: Can accept a config (once → transitions to STREAMING).
//     The config is optional: the first audio or commit input also
//     transitions to STREAMING.
//   - STREAMING: Audio and commit messages are accepted. Further config
//     messages are rejected.
//   - CLOSING: No new input. Buffered audio drains through the worker.
//   - CLOSED: All operations return errors.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
}

// NewLifecycle creates a new session lifecycle in AWAITING_CONFIG state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{
		sessionId: sessionId,
		state:     StateAwaitingConfig,
	}
}

// SessionId returns the session ID.
func (l *Lifecycle) SessionId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true if the session is in the terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateClosed
}

// Configure validates and transitions AWAITING_CONFIG → STREAMING.
func (l *Lifecycle) Configure() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateAwaitingConfig:
		l.state = StateStreaming
		return nil
	case StateStreaming:
		return ErrAlreadyConfigured
	case StateClosing, StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// AcceptInput validates that audio or commit input can be accepted. Input
// before any config message starts streaming with the session defaults.
func (l *Lifecycle) AcceptInput() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateStreaming:
		return nil
	case StateAwaitingConfig:
		l.state = StateStreaming
		return nil
	case StateClosing, StateClosed:
		return ErrSessionClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// BeginClose transitions to CLOSING. Idempotent; returns false if the
// session was already closing or closed.
func (l *Lifecycle) BeginClose() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateClosing || l.state == StateClosed {
		return false
	}
	l.state = StateClosing
	return true
}

// Finish transitions the session to CLOSED state.
// Can be called from any state. Idempotent.
func (l *Lifecycle) Finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}
