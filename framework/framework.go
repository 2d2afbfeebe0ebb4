package framework

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/dispatch"
	"github.com/glimte/intercept-go/interceptors"
	"github.com/glimte/intercept-go/signature"
)

// Target describes one callable a domain intercepts
type Target struct {
	Kind string
	// Signature is the reference signature of the wrapped callable
	Signature signature.Signature
	// AllowList holds the signatures known to work with the domain's interceptors
	AllowList *signature.AllowList
}

// Plugin is an interceptor together with its priority
type Plugin struct {
	Priority    float64
	Interceptor interceptors.Interceptor
}

// Domain supplies the targets and interceptors of one framework
type Domain interface {
	Name() string
	Targets() []Target
	Interceptors() []Plugin
	DryRun() Plugin
}

// Original is a host callable and the signature it exposes. A nil Signature
// means the target's reference signature.
type Original struct {
	Call      contracts.Callable
	Signature *signature.Signature
}

// Framework is one Dispatcher with its registry and bindings for a Domain
type Framework struct {
	domain     Domain
	dispatcher *dispatch.Dispatcher
	targets    map[string]Target
	logger     *slog.Logger

	mu                 sync.Mutex
	interceptorsLoaded bool
	dryRunLoaded       bool
	originals          map[string]contracts.Callable
}

// Option configures a Framework
type Option func(*frameworkOptions)

type frameworkOptions struct {
	logger      *slog.Logger
	dispatchOps []dispatch.DispatcherOption
}

// WithFrameworkLogger sets the logger of the framework and its dispatcher
func WithFrameworkLogger(logger *slog.Logger) Option {
	return func(o *frameworkOptions) {
		o.logger = logger
	}
}

// WithDispatcherOptions passes options through to the dispatcher
func WithDispatcherOptions(opts ...dispatch.DispatcherOption) Option {
	return func(o *frameworkOptions) {
		o.dispatchOps = append(o.dispatchOps, opts...)
	}
}

// New creates a framework for domain
func New(domain Domain, opts ...Option) *Framework {
	options := &frameworkOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger.With("domain", domain.Name())
	dispatchOps := append([]dispatch.DispatcherOption{dispatch.WithDispatcherLogger(logger)}, options.dispatchOps...)

	targets := make(map[string]Target)
	for _, t := range domain.Targets() {
		targets[t.Kind] = t
	}

	return &Framework{
		domain:     domain,
		dispatcher: dispatch.NewDispatcher(domain.Name(), dispatchOps...),
		targets:    targets,
		logger:     logger,
		originals:  make(map[string]contracts.Callable),
	}
}

// Name returns the domain name
func (f *Framework) Name() string {
	return f.domain.Name()
}

// Domain returns the domain plugin
func (f *Framework) Domain() Domain {
	return f.domain
}

// Dispatcher returns the dispatcher of this framework
func (f *Framework) Dispatcher() *dispatch.Dispatcher {
	return f.dispatcher
}

// Targets returns the target kinds handled by the domain, sorted
func (f *Framework) Targets() []string {
	kinds := make([]string, 0, len(f.targets))
	for k := range f.targets {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// LoadInterceptors registers the domain's default interceptors. Calling it
// again has no effect.
func (f *Framework) LoadInterceptors() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.interceptorsLoaded {
		return nil
	}
	for _, p := range f.domain.Interceptors() {
		if _, err := f.dispatcher.Register(p.Priority, p.Interceptor); err != nil {
			return fmt.Errorf("failed to load interceptors for %s: %w", f.Name(), err)
		}
	}
	f.interceptorsLoaded = true
	return nil
}

// LoadDryRun registers the domain's dry-run interceptor. Calling it again
// has no effect.
func (f *Framework) LoadDryRun() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dryRunLoaded {
		return nil
	}
	p := f.domain.DryRun()
	if _, err := f.dispatcher.Register(p.Priority, p.Interceptor); err != nil {
		return fmt.Errorf("failed to load dry run interceptor for %s: %w", f.Name(), err)
	}
	f.dryRunLoaded = true
	return nil
}

// Patch binds the host originals to their target kinds. Every kind must be
// one of the domain's targets. Signature mismatches are logged by the
// dispatcher and do not fail the patch.
func (f *Framework) Patch(originals map[string]Original) error {
	kinds := make([]string, 0, len(originals))
	for k := range originals {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		target, ok := f.targets[kind]
		if !ok {
			return &contracts.ConfigurationError{
				Op:         "patch",
				Domain:     f.Name(),
				TargetKind: kind,
				Known:      f.Targets(),
				Err:        contracts.ErrUnknownTarget,
			}
		}

		original := originals[kind]
		sig := target.Signature
		if original.Signature != nil {
			sig = *original.Signature
		}
		if _, err := f.dispatcher.Bind(kind, original.Call, sig, target.AllowList); err != nil {
			return fmt.Errorf("failed to patch %s: %w", kind, err)
		}

		f.mu.Lock()
		f.originals[kind] = original.Call
		f.mu.Unlock()
	}
	return nil
}

// Patched reports whether kind has been bound
func (f *Framework) Patched(kind string) bool {
	_, ok := f.dispatcher.Binding(kind)
	return ok
}

// StandIn returns the intercepting replacement for kind
func (f *Framework) StandIn(kind string) contracts.Callable {
	return f.dispatcher.StandIn(kind)
}

// Unpatched returns the original callable bound under kind
func (f *Framework) Unpatched(kind string) (contracts.Callable, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.originals[kind]
	return fn, ok
}

// SetPipelineArguments sets the arguments visible to every interceptor
func (f *Framework) SetPipelineArguments(args map[string]any) {
	f.dispatcher.SetPipelineArguments(args)
}

// ExecutionHistory returns the completed calls in order
func (f *Framework) ExecutionHistory() []contracts.ExecutionResult {
	return f.dispatcher.History().Entries()
}
