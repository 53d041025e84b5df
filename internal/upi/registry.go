package upi

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/gobwas/glob"
	"google.golang.org/protobuf/types/known/structpb"
)

// Func is a single UPI function implementation.
type Func func(ctx context.Context, args Args) (any, error)

// Module is a group of UPI functions sharing a name prefix, such as `net`.
type Module interface {
	// Name returns the module name, which is used as the UPI prefix.
	Name() string
	// Functions returns the functions exported by the module, keyed by
	// function name without the module prefix.
	Functions() map[string]Func
	// Close releases module resources.
	Close() error
}

// BackgroundModule is a module that has background jobs, which must run for
// the whole agent lifetime.
type BackgroundModule interface {
	Run(ctx context.Context) error
}

// Registry keeps track of all exported UPI functions.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	funcs   map[string]Func
	export  []glob.Glob
}

// NewRegistry creates a new UPI registry.
//
// Only functions whose full names match at least one of the export glob
// patterns are exported. An empty pattern list exports everything.
func NewRegistry(export []string) (*Registry, error) {
	globs := make([]glob.Glob, 0, len(export))
	for _, pattern := range export {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("failed to compile export pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	return &Registry{
		modules: map[string]Module{},
		funcs:   map[string]Func{},
		export:  globs,
	}, nil
}

// Register registers all exported functions of the given module.
//
// Returns the full names of functions that were exported.
func (m *Registry) Register(module Module) ([]string, error) {
	functions := module.Functions()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.modules[module.Name()]; ok {
		return nil, fmt.Errorf("%w: module %q is already registered", ErrDuplicateFunction, module.Name())
	}

	exported := make([]string, 0, len(functions))
	for _, function := range slices.Sorted(maps.Keys(functions)) {
		name := module.Name() + "." + function
		if _, _, err := ParseName(name); err != nil {
			return nil, err
		}
		if !m.exported(name) {
			continue
		}
		exported = append(exported, name)
	}

	for _, name := range exported {
		_, function, _ := ParseName(name)
		m.funcs[name] = functions[function]
	}
	m.modules[module.Name()] = module

	return exported, nil
}

func (m *Registry) exported(name string) bool {
	if len(m.export) == 0 {
		return true
	}
	for _, g := range m.export {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Lookup returns the function registered under the given full name.
func (m *Registry) Lookup(name string) (Func, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fn, ok := m.funcs[name]
	return fn, ok
}

// Names returns a sorted list of all exported UPI function names.
func (m *Registry) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.funcs))
}

// ModuleFunctions returns a sorted list of exported function names of the
// given module, without the module prefix.
func (m *Registry) ModuleFunctions(module string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []string{}
	for name := range m.funcs {
		mod, function, _ := ParseName(name)
		if mod == module {
			out = append(out, function)
		}
	}
	slices.Sort(out)
	return out
}

// Modules returns all registered modules ordered by name.
func (m *Registry) Modules() []Module {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Module, 0, len(m.modules))
	for _, name := range slices.Sorted(maps.Keys(m.modules)) {
		out = append(out, m.modules[name])
	}
	return out
}

// Invoke calls the UPI function with the given name.
func (m *Registry) Invoke(ctx context.Context, name string, args *structpb.ListValue) (*structpb.Value, error) {
	if _, _, err := ParseName(name); err != nil {
		return nil, err
	}

	fn, ok := m.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	result, err := fn(ctx, NewArgsView(args))
	if err != nil {
		return nil, err
	}

	// Unencodable results are a module defect, not a caller mistake.
	value, err := structpb.NewValue(normalize(result))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q result: %w", name, err)
	}
	return value, nil
}
