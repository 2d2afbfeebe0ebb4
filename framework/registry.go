package framework

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/dispatch"
)

// Factory builds the framework for a registered name on first use
type Factory func() (*Framework, error)

// Registry maps framework names to lazily built frameworks. Each framework
// keeps its own bindings and history.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]*Framework
	logger    *slog.Logger
	options   []Option
}

// RegistryOption configures the Registry
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFrameworkOptions sets options applied to every framework built by RegisterDomain
func WithFrameworkOptions(opts ...Option) RegistryOption {
	return func(r *Registry) {
		r.options = append(r.options, opts...)
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]*Framework),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Register adds a factory under name
func (r *Registry) Register(name string, factory Factory) error {
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("%w: framework name cannot be empty", contracts.ErrInvalidBinding)
	}
	if factory == nil {
		return fmt.Errorf("%w: factory for %s cannot be nil", contracts.ErrInvalidBinding, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("%w: %s", contracts.ErrFrameworkRegistered, key)
	}
	r.factories[key] = factory
	r.logger.Debug("registered framework", "framework", key)
	return nil
}

// RegisterDomain registers a factory that builds a Framework for domain
func (r *Registry) RegisterDomain(domain Domain, opts ...Option) error {
	options := append(append([]Option{WithFrameworkLogger(r.logger)}, r.options...), opts...)
	return r.Register(domain.Name(), func() (*Framework, error) {
		return New(domain, options...), nil
	})
}

// Resolve returns the framework registered under name, building it on first use
func (r *Registry) Resolve(name string) (*Framework, error) {
	key := normalize(name)

	r.mu.RLock()
	fw, ok := r.instances[key]
	r.mu.RUnlock()
	if ok {
		return fw, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fw, ok := r.instances[key]; ok {
		return fw, nil
	}

	factory, ok := r.factories[key]
	if !ok {
		return nil, &contracts.ConfigurationError{
			Op:     "resolve",
			Domain: name,
			Known:  r.supportedLocked(),
			Err:    contracts.ErrFrameworkNotSupported,
		}
	}

	fw, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to build framework %s: %w", key, err)
	}
	if fw == nil {
		return nil, errors.New("framework factory returned nil for " + key)
	}
	r.instances[key] = fw
	return fw, nil
}

// Dispatcher returns the dispatcher of the named framework
func (r *Registry) Dispatcher(name string) (*dispatch.Dispatcher, error) {
	fw, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fw.Dispatcher(), nil
}

// Supported returns the registered names, upper case and sorted
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supportedLocked()
}

func (r *Registry) supportedLocked() []string {
	names := make([]string, 0, len(r.factories))
	for k := range r.factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ExecutionHistory returns the completed calls of the named framework
func (r *Registry) ExecutionHistory(name string) ([]contracts.ExecutionResult, error) {
	fw, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fw.ExecutionHistory(), nil
}

// SetPipelineArguments sets the pipeline arguments of the named framework
func (r *Registry) SetPipelineArguments(name string, args map[string]any) error {
	fw, err := r.Resolve(name)
	if err != nil {
		return err
	}
	fw.SetPipelineArguments(args)
	return nil
}
