package gateway

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/siderolabs/grpc-proxy/proxy"
	"google.golang.org/grpc"
)

// Backend is a UPI module backend registered in the gateway.
type Backend struct {
	// Service is the gRPC service name, such as "upi.net".
	Service string
	// Endpoint is the address the module serves on.
	Endpoint string
	// RegisteredAt is the time of the last registration.
	RegisteredAt time.Time

	proxy proxy.Backend
	conn  *grpc.ClientConn
}

// BackendRegistry keeps track of UPI module backends by service name.
//
// The registry owns backend connections: replaced and remaining backends
// are closed by the registry.
type BackendRegistry struct {
	mu       sync.RWMutex
	backends map[string]*Backend
}

// NewBackendRegistry creates a new BackendRegistry.
func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{
		backends: map[string]*Backend{},
	}
}

// Proxy returns the proxy backend for the given service, such as "upi.net".
func (m *BackendRegistry) Proxy(service string) (proxy.Backend, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	backend, ok := m.backends[service]
	if !ok {
		return nil, false
	}
	return backend.proxy, true
}

// Register registers a backend, replacing the previous one for the same
// service.
//
// Returns the connection of the replaced backend, which the caller must
// close, or nil.
func (m *BackendRegistry) Register(service string, endpoint string, conn *grpc.ClientConn, backend proxy.Backend) *grpc.ClientConn {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev *grpc.ClientConn
	if old, ok := m.backends[service]; ok {
		prev = old.conn
	}

	m.backends[service] = &Backend{
		Service:      service,
		Endpoint:     endpoint,
		RegisteredAt: time.Now(),
		proxy:        backend,
		conn:         conn,
	}
	return prev
}

// Backends returns all registered backends ordered by service name.
func (m *BackendRegistry) Backends() []Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Backend, 0, len(m.backends))
	for _, service := range slices.Sorted(maps.Keys(m.backends)) {
		out = append(out, *m.backends[service])
	}
	return out
}

// Services returns names of all registered services in ascending order.
func (m *BackendRegistry) Services() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.backends))
}

// Close closes connections of all backends and empties the registry.
func (m *BackendRegistry) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, backend := range m.backends {
		if backend.conn != nil {
			errs = append(errs, backend.conn.Close())
		}
	}
	clear(m.backends)

	return errors.Join(errs...)
}
