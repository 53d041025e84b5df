package harness

import (
	"errors"
	"fmt"

	"github.com/wishful-project/agent/agent"
)

var (
	// ErrNotRunning is returned for queries issued before setup completed or
	// after teardown.
	ErrNotRunning = agent.ErrNotRunning
	// ErrEmptyResult is returned when a query yields no hardware address
	// while assertions are enabled.
	ErrEmptyResult = errors.New("hardware address is empty")
	// ErrMalformedResult is returned when a query yields a value that is
	// not a hardware address while assertions are enabled.
	ErrMalformedResult = errors.New("malformed hardware address")
)

// ConfigError is returned when the configuration document cannot be read,
// parsed or applied.
type ConfigError struct {
	Path string
	Err  error
}

func (m *ConfigError) Error() string {
	return fmt.Sprintf("config %q: %v", m.Path, m.Err)
}

func (m *ConfigError) Unwrap() error {
	return m.Err
}

// AgentError is returned when an agent lifecycle operation fails.
type AgentError struct {
	Op  string
	Err error
}

func (m *AgentError) Error() string {
	return fmt.Sprintf("failed to %s agent: %v", m.Op, m.Err)
}

func (m *AgentError) Unwrap() error {
	return m.Err
}
