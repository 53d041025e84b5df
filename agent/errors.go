package agent

import "errors"

var (
	// ErrNotRunning is returned for UPI calls issued while the agent is not
	// running.
	ErrNotRunning = errors.New("agent is not running")
	// ErrAlreadyRunning is returned when starting an agent that is already
	// running.
	ErrAlreadyRunning = errors.New("agent is already running")
	// ErrStopped is returned when starting or configuring an agent that was
	// stopped. Agents are not restartable.
	ErrStopped = errors.New("agent is stopped")
)
