package harness

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/agent"
	"github.com/wishful-project/agent/internal/upi"
)

// Agent is the lifecycle surface of a control-plane agent driven by the
// harness.
type Agent interface {
	// LoadConfig applies the configuration document.
	LoadConfig(doc *yaml.Node) error
	// Start starts the agent.
	Start(ctx context.Context) error
	// Stop stops the agent. Must be idempotent.
	Stop() error
	// Controller returns the handle used to issue UPI calls.
	Controller() upi.Caller
}

// AgentFactory constructs a new agent.
type AgentFactory func(lc *LogContext) (Agent, error)

// LocalAgent returns a factory of in-process agents running in local mode.
func LocalAgent(options ...agent.AgentOption) AgentFactory {
	return func(lc *LogContext) (Agent, error) {
		opts := []agent.AgentOption{agent.WithLog(lc.Logger())}
		if level := lc.Level(); level != nil {
			opts = append(opts, agent.WithAtomicLogLevel(level))
		}
		opts = append(opts, options...)

		a, err := agent.New(agent.ModeLocal, opts...)
		if err != nil {
			return nil, err
		}
		return &localAgent{Agent: a}, nil
	}
}

type localAgent struct {
	*agent.Agent
}

func (m *localAgent) Controller() upi.Caller {
	return m.Agent.Controller()
}
