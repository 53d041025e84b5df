package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/internal/gateway"
	"github.com/wishful-project/agent/internal/upi"
	"github.com/wishful-project/agent/modules/info"
	"github.com/wishful-project/agent/modules/netupi"
)

// defaultModuleEndpoint is used for extra modules exposed in remote mode.
const defaultModuleEndpoint = "127.0.0.1:0"

type options struct {
	Log        *zap.SugaredLogger
	LogLevel   *zap.AtomicLevel
	Modules    []upi.Module
	NetOptions []netupi.Option
}

func newOptions() *options {
	return &options{
		Log: zap.NewNop().Sugar(),
	}
}

// AgentOption is a function that configures the agent.
type AgentOption func(*options)

// WithLog sets the logger for the agent.
func WithLog(log *zap.SugaredLogger) AgentOption {
	return func(o *options) {
		o.Log = log
	}
}

// WithAtomicLogLevel sets the atomic logger level for the agent.
//
// The level is updated from the loaded configuration and can be changed at
// runtime through the gateway in remote mode.
func WithAtomicLogLevel(level *zap.AtomicLevel) AgentOption {
	return func(o *options) {
		o.LogLevel = level
	}
}

// WithModule registers an additional UPI module.
func WithModule(module upi.Module) AgentOption {
	return func(o *options) {
		o.Modules = append(o.Modules, module)
	}
}

// WithNetOptions configures the built-in net module.
func WithNetOptions(opts ...netupi.Option) AgentOption {
	return func(o *options) {
		o.NetOptions = append(o.NetOptions, opts...)
	}
}

// Agent is a local control-plane agent hosting UPI modules.
//
// The agent is started once and stopped once. UPI calls are served only
// while it is running.
type Agent struct {
	id   uuid.UUID
	mode Mode
	opts *options
	log  *zap.SugaredLogger

	mu       sync.RWMutex
	state    State
	cfg      *Config
	registry *upi.Registry
	modules  []upi.Module
	gateway  *gateway.Gateway
	gwAddr   net.Addr
	cancel   context.CancelFunc
	done     chan struct{}
	runErr   error
}

// New creates a new agent in the given mode.
func New(mode Mode, options ...AgentOption) (*Agent, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	opts := newOptions()
	for _, o := range options {
		o(opts)
	}

	id := uuid.New()
	log := opts.Log.Named("agent").With(zap.Stringer("agent_id", id))

	return &Agent{
		id:    id,
		mode:  mode,
		opts:  opts,
		log:   log,
		state: StateNotStarted,
		cfg:   DefaultConfig(),
	}, nil
}

// ID returns the unique agent identifier.
func (m *Agent) ID() string {
	return m.id.String()
}

// Mode returns the agent operation mode.
func (m *Agent) Mode() Mode {
	return m.mode
}

// State returns the current lifecycle state.
func (m *Agent) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// Config returns the effective configuration.
func (m *Agent) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cfg
}

// LoadConfig applies the given configuration document.
//
// Must be called before Start.
func (m *Agent) LoadConfig(doc *yaml.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateStopped:
		return ErrStopped
	}

	cfg, err := DecodeConfig(doc)
	if err != nil {
		return err
	}

	if cfg.Agent.Mode != m.mode {
		m.log.Infow("agent mode is overridden",
			zap.Stringer("configured", cfg.Agent.Mode),
			zap.Stringer("effective", m.mode),
		)
	}
	if m.opts.LogLevel != nil {
		m.opts.LogLevel.SetLevel(cfg.Logging.Level)
	}

	m.cfg = cfg
	m.log.Debugw("loaded config", zap.Any("config", cfg))
	return nil
}

// Start starts the agent.
//
// The context bounds the startup only. The agent runs until Stop is called.
func (m *Agent) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateRunning:
		return ErrAlreadyRunning
	case StateStopped:
		return ErrStopped
	}

	m.log.Infow("starting agent", zap.Stringer("mode", m.mode), zap.String("name", m.cfg.Agent.Name))

	registry, err := upi.NewRegistry(m.cfg.UPI.Export)
	if err != nil {
		return err
	}

	modules, err := m.newModules(registry)
	if err != nil {
		return err
	}
	for _, module := range modules {
		exported, err := registry.Register(module)
		if err != nil {
			closeModules(modules, m.log)
			return fmt.Errorf("failed to register %q module: %w", module.Name(), err)
		}
		m.log.Infow("registered UPI module",
			zap.String("module", module.Name()),
			zap.Strings("functions", exported),
		)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	wg, wgCtx := errgroup.WithContext(runCtx)
	// Modules may finish their background jobs early, the agent keeps
	// running until Stop or a worker failure.
	wg.Go(func() error {
		<-wgCtx.Done()
		return nil
	})

	for _, module := range modules {
		if bg, ok := module.(upi.BackgroundModule); ok {
			wg.Go(func() error {
				if err := bg.Run(wgCtx); err != nil {
					return fmt.Errorf("module %q failed: %w", module.Name(), err)
				}
				return nil
			})
		}
	}

	if m.mode == ModeRemote {
		if err := m.startRemote(ctx, wgCtx, wg, registry, modules); err != nil {
			cancel()
			_ = wg.Wait()
			if m.gateway != nil {
				_ = m.gateway.Close()
				m.gateway = nil
			}
			closeModules(modules, m.log)
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		err := wg.Wait()
		if err != nil {
			m.log.Errorw("agent worker failed", zap.Error(err))
		}
		m.runErr = err
	}()

	m.registry = registry
	m.modules = modules
	m.cancel = cancel
	m.done = done
	m.state = StateRunning

	m.log.Infow("agent is running", zap.Strings("upis", registry.Names()))
	return nil
}

func (m *Agent) newModules(registry *upi.Registry) ([]upi.Module, error) {
	modules := []upi.Module{}

	if m.cfg.Modules.Net.Enabled {
		modules = append(modules, netupi.NewNetModule(m.cfg.Modules.Net, m.log, m.opts.NetOptions...))
	}
	if m.cfg.Modules.Info.Enabled {
		identity := info.Identity{
			ID:   m.ID(),
			Name: m.cfg.Agent.Name,
			Mode: m.mode.String(),
		}
		modules = append(modules, info.NewInfoModule(identity, registry, m.log))
	}
	modules = append(modules, m.opts.Modules...)

	return modules, nil
}

// startRemote exposes UPI modules through the gateway and waits until every
// module is registered there.
func (m *Agent) startRemote(
	ctx context.Context,
	runCtx context.Context,
	wg *errgroup.Group,
	registry *upi.Registry,
	modules []upi.Module,
) error {
	gw := gateway.NewGateway(
		m.cfg.Gateway,
		gateway.WithLog(m.log.Named("gateway")),
		gateway.WithAtomicLogLevel(m.opts.LogLevel),
	)
	m.gateway = gw

	addr, err := gw.Listen()
	if err != nil {
		return err
	}
	m.gwAddr = addr

	wg.Go(func() error {
		return gw.Run(runCtx)
	})

	runners := make([]*gateway.ModuleRunner, 0, len(modules))
	for _, module := range modules {
		functions := registry.ModuleFunctions(module.Name())
		if len(functions) == 0 {
			m.log.Debugw("skipping module without exported functions", zap.String("module", module.Name()))
			continue
		}

		runner := gateway.NewModuleRunner(
			module.Name(),
			functions,
			m,
			m.moduleEndpoint(module.Name()),
			addr.String(),
			m.log,
		)
		runners = append(runners, runner)

		wg.Go(func() error {
			return runner.Run(runCtx)
		})
	}

	for _, runner := range runners {
		select {
		case <-runner.Ready():
		case <-runCtx.Done():
			return fmt.Errorf("failed to start gateway: %w", context.Cause(runCtx))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Agent) moduleEndpoint(module string) string {
	switch module {
	case netupi.ModuleName:
		return m.cfg.Modules.Net.Endpoint
	case info.ModuleName:
		return m.cfg.Modules.Info.Endpoint
	default:
		return defaultModuleEndpoint
	}
}

// GatewayAddr returns the address the gateway listens on, or nil unless the
// agent runs in remote mode.
func (m *Agent) GatewayAddr() net.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.gwAddr
}

// Done returns a channel that is closed once all agent workers exit, either
// because the agent was stopped or because one of them failed.
//
// Returns nil if the agent was never started.
func (m *Agent) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.done
}

// Stop stops the agent and releases its modules.
//
// Stopping is idempotent. Stopping an agent that was never started marks it
// as stopped.
func (m *Agent) Stop() error {
	m.mu.Lock()
	switch m.state {
	case StateNotStarted:
		m.state = StateStopped
		m.mu.Unlock()
		return nil
	case StateStopped:
		m.mu.Unlock()
		return nil
	}

	// In-flight calls are finished at this point, new ones are rejected.
	m.state = StateStopped
	cancel, done, gw, modules := m.cancel, m.done, m.gateway, m.modules
	m.mu.Unlock()

	m.log.Infof("stopping agent")
	defer m.log.Infof("stopped agent")

	cancel()
	<-done

	var errs []error
	if m.runErr != nil {
		errs = append(errs, m.runErr)
	}
	if gw != nil {
		if err := gw.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := closeModules(modules, m.log); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Controller returns the in-process UPI controller of this agent.
func (m *Agent) Controller() *Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return NewController(m, m.cfg.Agent.CallTimeout)
}

// Invoke calls the UPI function with the given name.
//
// Calls fail with ErrNotRunning unless the agent is running.
func (m *Agent) Invoke(ctx context.Context, name string, args *structpb.ListValue) (*structpb.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateRunning {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, m.state)
	}

	return m.registry.Invoke(ctx, name, args)
}

func closeModules(modules []upi.Module, log *zap.SugaredLogger) error {
	var errs []error
	for _, module := range modules {
		if err := module.Close(); err != nil {
			log.Warnw("failed to close module", zap.String("module", module.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close %q module: %w", module.Name(), err))
		}
	}
	return errors.Join(errs...)
}
