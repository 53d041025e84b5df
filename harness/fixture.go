package harness

import (
	"errors"
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/wishful-project/agent/agent"
	"github.com/wishful-project/agent/common/go/logging"
)

// HardwareAddrUPI is the UPI function queried by the harness.
const HardwareAddrUPI = "net.get_iface_hw_addr"

// hardwareAddrRe matches EUI-48 addresses in the canonical colon-separated
// form.
var hardwareAddrRe = regexp.MustCompile(`^[0-9a-fA-F]{2}(:[0-9a-fA-F]{2}){5}$`)

// AssertMode controls whether query results are checked.
type AssertMode int

const (
	// AssertEnabled fails queries that yield no valid hardware address.
	AssertEnabled AssertMode = iota
	// AssertDisabled only logs query results, which turns the harness into
	// a smoke test.
	AssertDisabled
)

func (m AssertMode) String() string {
	switch m {
	case AssertEnabled:
		return "enabled"
	case AssertDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ParseAssertMode parses "enabled" or "disabled".
func ParseAssertMode(s string) (AssertMode, error) {
	switch s {
	case "enabled":
		return AssertEnabled, nil
	case "disabled":
		return AssertDisabled, nil
	default:
		return 0, fmt.Errorf("unknown assert mode %q", s)
	}
}

// Options configures a harness run.
type Options struct {
	// ConfigPath is the path to the agent configuration document.
	ConfigPath string
	// Assert is the result checking mode.
	Assert AssertMode
	// LogContext is the logging scope of the run. When nil, a new one is
	// created from Logging and released at teardown.
	LogContext *LogContext
	// Logging configures the logging scope created by the harness.
	Logging logging.Config
	// NewAgent constructs the agent under test. Defaults to LocalAgent().
	NewAgent AgentFactory
}

// DefaultOptions returns options for the default configuration document.
func DefaultOptions() Options {
	return Options{
		ConfigPath: "testdata/config1.yaml",
		Assert:     AssertEnabled,
		Logging:    *logging.DefaultConfig(),
	}
}

// Fixture is a running agent owned by a single harness run.
type Fixture struct {
	opts    Options
	lc      *LogContext
	ownsLog bool
	agent   Agent
	log     *zap.SugaredLogger

	mu       sync.Mutex
	running  bool
	teardown sync.Once
	stopErr  error
}

// Setup reads the configuration, then constructs, configures and starts a
// local agent.
//
// On failure nothing is left running and the returned error is either a
// *ConfigError or an *AgentError.
func Setup(ctx context.Context, opts Options) (*Fixture, error) {
	lc := opts.LogContext
	ownsLog := false
	if lc == nil {
		var err error
		lc, err = NewLogContext(&opts.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		ownsLog = true
	}
	release := func() {
		if ownsLog {
			_ = lc.Close()
		}
	}

	if opts.NewAgent == nil {
		opts.NewAgent = LocalAgent()
	}

	log := lc.Logger()
	log.Infow("harness started",
		zap.String("config", opts.ConfigPath),
		zap.Stringer("assert", opts.Assert),
	)

	doc, err := agent.ReadDocument(opts.ConfigPath)
	if err != nil {
		log.Errorw("failed to read config", zap.Error(err))
		release()
		return nil, &ConfigError{Path: opts.ConfigPath, Err: err}
	}

	a, err := opts.NewAgent(lc)
	if err != nil {
		release()
		return nil, &AgentError{Op: "construct", Err: err}
	}

	if err := a.LoadConfig(doc); err != nil {
		log.Errorw("failed to load config", zap.Error(err))
		_ = a.Stop()
		release()
		return nil, &ConfigError{Path: opts.ConfigPath, Err: err}
	}

	if err := a.Start(ctx); err != nil {
		log.Errorw("failed to start agent", zap.Error(err))
		_ = a.Stop()
		release()
		return nil, &AgentError{Op: "start", Err: err}
	}

	return &Fixture{
		opts:    opts,
		lc:      lc,
		ownsLog: ownsLog,
		agent:   a,
		log:     log,
		running: true,
	}, nil
}

// Run sets up a fixture for the test and tears it down once the test and
// all its subtests complete.
//
// Setup failure fails the test immediately.
func Run(t testing.TB, opts Options) *Fixture {
	t.Helper()

	f, err := Setup(context.Background(), opts)
	if err != nil {
		t.Fatalf("failed to setup harness: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Teardown(); err != nil {
			t.Errorf("failed to teardown harness: %v", err)
		}
	})
	return f
}

// Agent returns the agent under test.
func (m *Fixture) Agent() Agent {
	return m.agent
}

// Log returns the harness logger.
func (m *Fixture) Log() *zap.SugaredLogger {
	return m.log
}

// Call issues a blocking UPI call through the agent controller.
func (m *Fixture) Call(ctx context.Context, name string, args ...any) (any, error) {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	if !running {
		return nil, fmt.Errorf("%w: harness is torn down", ErrNotRunning)
	}
	return m.agent.Controller().Call(ctx, name, args...)
}

// Query fetches the hardware address of the given network interface.
//
// An empty address with nil error is the absence indicator: the interface
// has no hardware address, or the lookup failed while assertions are
// disabled. Queries outside of the Running state fail with ErrNotRunning
// in every mode.
func (m *Fixture) Query(ctx context.Context, iface string) (string, error) {
	result, err := m.Call(ctx, HardwareAddrUPI, iface)
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return "", fmt.Errorf("failed to get hw address of %q: %w", iface, err)
		}
		if m.opts.Assert == AssertDisabled {
			m.log.Warnf("failed to get hw address of %s: %v", iface, err)
			return "", nil
		}
		return "", fmt.Errorf("failed to get hw address of %q: %w", iface, err)
	}

	m.log.Infof("hw address of %s is %v", iface, result)

	hwAddr, err := checkHardwareAddr(result)
	if err != nil {
		if m.opts.Assert == AssertDisabled {
			return hwAddr, nil
		}
		return "", fmt.Errorf("interface %q: %w", iface, err)
	}
	return hwAddr, nil
}

func checkHardwareAddr(result any) (string, error) {
	if result == nil {
		return "", ErrEmptyResult
	}

	hwAddr, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected type %T", ErrMalformedResult, result)
	}
	if hwAddr == "" {
		return "", ErrEmptyResult
	}
	if !hardwareAddrRe.MatchString(hwAddr) {
		return hwAddr, fmt.Errorf("%w: %q", ErrMalformedResult, hwAddr)
	}
	return hwAddr, nil
}

// Teardown stops the agent. Only the first call has effect, later calls
// return the same result.
func (m *Fixture) Teardown() error {
	m.teardown.Do(func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()

		m.stopErr = m.agent.Stop()
		if m.stopErr != nil {
			m.log.Errorw("failed to stop agent", zap.Error(m.stopErr))
			m.stopErr = &AgentError{Op: "stop", Err: m.stopErr}
		}
		m.log.Infof("harness stopped")

		if m.ownsLog {
			_ = m.lc.Close()
		}
	})
	return m.stopErr
}
