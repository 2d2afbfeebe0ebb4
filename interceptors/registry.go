package interceptors

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/glimte/intercept-go/contracts"
)

// Registration is the handle returned by Registry.Register
type Registration struct {
	Priority    float64
	Interceptor Interceptor

	seq      uint64
	registry *Registry
}

// Unregister removes the interceptor from its registry. It reports false if
// the registration was already removed.
func (r *Registration) Unregister() bool {
	if r == nil || r.registry == nil {
		return false
	}
	return r.registry.remove(r)
}

// Registry keeps the interceptors of one domain ordered by descending priority
type Registry struct {
	entries []*Registration
	sorted  bool
	seq     uint64
	mu      sync.Mutex
	logger  *slog.Logger
}

// RegistryOption configures the Registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		entries: make([]*Registration, 0),
		sorted:  true,
		logger:  slog.Default(),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Register adds an interceptor with the given priority and marks the ordering stale
func (r *Registry) Register(priority float64, interceptor Interceptor) (*Registration, error) {
	if interceptor == nil {
		return nil, fmt.Errorf("%w: interceptor cannot be nil", contracts.ErrInvalidInterceptor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	reg := &Registration{
		Priority:    priority,
		Interceptor: interceptor,
		seq:         r.seq,
		registry:    r,
	}
	r.entries = append(r.entries, reg)
	r.sorted = false

	_, hasBefore := BeforeHook(interceptor)
	_, hasAfter := AfterHook(interceptor)
	r.logger.Debug("registered interceptor",
		"interceptor", interceptor.Name(),
		"priority", priority,
		"beforeCall", hasBefore,
		"afterCall", hasAfter,
	)

	return reg, nil
}

// MustRegister is Register for start-up code; it panics on a nil interceptor
func (r *Registry) MustRegister(priority float64, interceptor Interceptor) *Registration {
	reg, err := r.Register(priority, interceptor)
	if err != nil {
		panic(err)
	}
	return reg
}

// Ordered returns the interceptors by descending priority, ties in
// registration order. The sort is recomputed only after a registration.
func (r *Registry) Ordered() []Interceptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sortLocked()

	result := make([]Interceptor, len(r.entries))
	for i, e := range r.entries {
		result[i] = e.Interceptor
	}
	return result
}

// Registrations returns a snapshot of the ordered registrations
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sortLocked()

	result := make([]Registration, len(r.entries))
	for i, e := range r.entries {
		result[i] = Registration{Priority: e.Priority, Interceptor: e.Interceptor, seq: e.seq}
	}
	return result
}

// Len returns the number of registered interceptors
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear removes every registration
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make([]*Registration, 0)
	r.sorted = true
}

func (r *Registry) sortLocked() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.entries, func(i, j int) bool {
		if r.entries[i].Priority != r.entries[j].Priority {
			return r.entries[i].Priority > r.entries[j].Priority
		}
		return r.entries[i].seq < r.entries[j].seq
	})
	r.sorted = true
}

func (r *Registry) remove(target *Registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e == target {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			target.registry = nil
			r.logger.Debug("unregistered interceptor", "interceptor", e.Interceptor.Name())
			return true
		}
	}
	return false
}
