package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/history"
	"github.com/glimte/intercept-go/interceptors"
	"github.com/glimte/intercept-go/signature"
)

// Dispatcher runs intercepted calls for one domain
type Dispatcher struct {
	domain   string
	registry *interceptors.Registry
	history  history.History
	metrics  MetricsCollector
	logger   *slog.Logger
	validate bool

	mu           sync.RWMutex
	bindings     map[string]*TargetBinding
	pipelineArgs map[string]any
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRegistry sets the interceptor registry
func WithRegistry(registry *interceptors.Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.registry = registry
	}
}

// WithHistory sets the history completed calls are appended to
func WithHistory(h history.History) DispatcherOption {
	return func(d *Dispatcher) {
		d.history = h
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(collector MetricsCollector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = collector
	}
}

// WithArgumentValidation checks each incoming call against the binding's
// signature before the before-call hooks run
func WithArgumentValidation(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.validate = enabled
	}
}

// NewDispatcher creates a dispatcher for domain
func NewDispatcher(domain string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		domain:       domain,
		metrics:      noopMetrics{},
		logger:       slog.Default(),
		bindings:     make(map[string]*TargetBinding),
		pipelineArgs: make(map[string]any),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.registry == nil {
		d.registry = interceptors.NewRegistry(interceptors.WithRegistryLogger(d.logger))
	}
	if d.history == nil {
		d.history = history.NewInMemory(history.WithHistoryLogger(d.logger))
	}
	if d.metrics == nil {
		d.metrics = noopMetrics{}
	}

	return d
}

// Domain returns the domain name
func (d *Dispatcher) Domain() string {
	return d.domain
}

// Registry returns the interceptor registry
func (d *Dispatcher) Registry() *interceptors.Registry {
	return d.registry
}

// History returns the history of completed calls
func (d *Dispatcher) History() history.History {
	return d.history
}

// Register adds an interceptor to the registry
func (d *Dispatcher) Register(priority float64, ic interceptors.Interceptor) (*interceptors.Registration, error) {
	return d.registry.Register(priority, ic)
}

// Bind records original under kind. A signature missing from allowed is
// logged as a warning and the binding proceeds. A nil allow-list skips
// the check. Binding the same kind again replaces the earlier binding.
func (d *Dispatcher) Bind(kind string, original contracts.Callable, sig signature.Signature, allowed *signature.AllowList) (*TargetBinding, error) {
	binding, err := newBinding(kind, original, sig, allowed)
	if err != nil {
		return nil, err
	}

	if binding.Mismatch != nil {
		d.logger.Warn("signature mismatch",
			"domain", d.domain,
			"targetKind", kind,
			"signature", binding.Mismatch.Got,
			"allowed", binding.Mismatch.Allowed,
			"error", binding.Mismatch,
		)
	}

	d.mu.Lock()
	d.bindings[kind] = binding
	d.mu.Unlock()

	d.logger.Debug("bound target", "domain", d.domain, "targetKind", kind, "signature", sig.String())
	return binding, nil
}

// Binding returns the binding for kind
func (d *Dispatcher) Binding(kind string) (*TargetBinding, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.bindings[kind]
	return b, ok
}

// Kinds returns the bound target kinds in sorted order
func (d *Dispatcher) Kinds() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]string, 0, len(d.bindings))
	for k := range d.bindings {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// SetPipelineArguments replaces the pipeline arguments seen by later calls
func (d *Dispatcher) SetPipelineArguments(args map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelineArgs = copyMap(args)
}

// PipelineArguments returns a copy of the current pipeline arguments
func (d *Dispatcher) PipelineArguments() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyMap(d.pipelineArgs)
}

// Dispatch runs one call to kind. A call stopped by a before-call hook
// returns a terminated Outcome and a nil error. Errors of the original
// callable are returned as is; hook errors are wrapped in *contracts.HookError.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, args []any, kwargs map[string]any) (contracts.Outcome, error) {
	start := time.Now()

	binding, ok := d.Binding(kind)
	if !ok {
		d.metrics.IncrementDispatchCount(d.domain, kind, OutcomeConfigError)
		return contracts.Outcome{}, &contracts.ConfigurationError{
			Op:         "dispatch",
			Domain:     d.domain,
			TargetKind: kind,
			Known:      d.Kinds(),
			Err:        contracts.ErrBindingNotFound,
		}
	}

	if d.validate {
		if err := signature.Validate(binding.Signature, args, kwargs); err != nil {
			d.finish(kind, OutcomeFailed, start)
			return contracts.Outcome{}, fmt.Errorf("invalid call to %s%s: %w", kind, binding.Signature, err)
		}
	}

	record := contracts.NewCallRecord(kind, copySlice(args), copyMap(kwargs))
	record.Domain = d.domain
	record.PipelineArguments = d.PipelineArguments()

	chain := d.registry.Ordered()

	for _, ic := range chain {
		hook, ok := interceptors.BeforeHook(ic)
		if !ok {
			continue
		}
		out, err := hook(ctx, record)
		if err != nil {
			d.finish(kind, OutcomeFailed, start)
			return contracts.Outcome{}, &contracts.HookError{
				Interceptor: ic.Name(),
				Phase:       contracts.PhaseBeforeCall,
				TargetKind:  kind,
				Err:         err,
			}
		}
		if out != nil {
			record = out
		}
		if record.ShouldTerminate {
			d.logger.Debug("call terminated",
				"domain", d.domain,
				"targetKind", kind,
				"callId", record.ID,
				"interceptor", ic.Name(),
			)
			d.finish(kind, OutcomeTerminated, start)
			return contracts.Terminated(record), nil
		}
	}

	result, err := binding.Original(ctx, record.Args, record.Kwargs)
	if err != nil {
		d.finish(kind, OutcomeFailed, start)
		return contracts.Outcome{}, err
	}

	for _, ic := range chain {
		hook, ok := interceptors.AfterHook(ic)
		if !ok {
			continue
		}
		out, err := hook(ctx, result, record)
		if err != nil {
			d.finish(kind, OutcomeFailed, start)
			return contracts.Outcome{}, &contracts.HookError{
				Interceptor: ic.Name(),
				Phase:       contracts.PhaseAfterCall,
				TargetKind:  kind,
				Err:         err,
			}
		}
		if out != nil {
			record = out
		}
	}

	completedAt := time.Now()
	if err := d.history.Append(ctx, contracts.ExecutionResult{
		Record:      record,
		Result:      result,
		CompletedAt: completedAt.UTC(),
		Duration:    completedAt.Sub(start),
	}); err != nil {
		d.finish(kind, OutcomeFailed, start)
		return contracts.Outcome{}, fmt.Errorf("failed to record %s call: %w", kind, err)
	}

	d.finish(kind, OutcomeCompleted, start)
	return contracts.Completed(record, result), nil
}

// StandIn returns a callable with the calling convention of the original
// bound under kind. A terminated call yields a *contracts.InterruptError
// carrying the final record.
func (d *Dispatcher) StandIn(kind string) contracts.Callable {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		outcome, err := d.Dispatch(ctx, kind, args, kwargs)
		if err != nil {
			return nil, err
		}
		if outcome.IsTerminated() {
			return nil, &contracts.InterruptError{Record: outcome.Record}
		}
		return outcome.Result, nil
	}
}

func (d *Dispatcher) finish(kind, outcome string, start time.Time) {
	d.metrics.IncrementDispatchCount(d.domain, kind, outcome)
	d.metrics.RecordDispatchTime(d.domain, kind, time.Since(start))
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	copy(out, s)
	return out
}
