package interceptors

import (
	"context"

	"github.com/glimte/intercept-go/contracts"
)

// Conventional priorities used by the built-in domain plugins
const (
	PriorityExtract float64 = 100
	PriorityInject  float64 = 10
	PriorityDryRun  float64 = 0
)

// Interceptor is the base plugin contract. Hooks are optional capabilities.
type Interceptor interface {
	// Name returns the interceptor name for logging and debugging
	Name() string
}

// BeforeCallInterceptor runs before the original callable
type BeforeCallInterceptor interface {
	Interceptor
	// BeforeCall may mutate record in place or return a replacement; nil keeps the current record
	BeforeCall(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error)
}

// AfterCallInterceptor runs after the original callable returned successfully
type AfterCallInterceptor interface {
	Interceptor
	// AfterCall may annotate record; termination fields are ignored in this phase
	AfterCall(ctx context.Context, result any, record *contracts.CallRecord) (*contracts.CallRecord, error)
}

// BeforeFunc is the function form of a before-call hook
type BeforeFunc func(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error)

// AfterFunc is the function form of an after-call hook
type AfterFunc func(ctx context.Context, result any, record *contracts.CallRecord) (*contracts.CallRecord, error)

// hookProvider lets wrappers decide their capabilities at runtime
type hookProvider interface {
	BeforeHook() (BeforeFunc, bool)
	AfterHook() (AfterFunc, bool)
}

// BeforeHook resolves the before-call capability of an interceptor
func BeforeHook(ic Interceptor) (BeforeFunc, bool) {
	if p, ok := ic.(hookProvider); ok {
		return p.BeforeHook()
	}
	if b, ok := ic.(BeforeCallInterceptor); ok {
		return b.BeforeCall, true
	}
	return nil, false
}

// AfterHook resolves the after-call capability of an interceptor
func AfterHook(ic Interceptor) (AfterFunc, bool) {
	if p, ok := ic.(hookProvider); ok {
		return p.AfterHook()
	}
	if a, ok := ic.(AfterCallInterceptor); ok {
		return a.AfterCall, true
	}
	return nil, false
}

// InterceptorFunc is a function adapter for Interceptor. A nil hook means
// the capability is absent.
type InterceptorFunc struct {
	name   string
	before BeforeFunc
	after  AfterFunc
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, before BeforeFunc, after AfterFunc) *InterceptorFunc {
	return &InterceptorFunc{name: name, before: before, after: after}
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// BeforeHook reports the before-call function, if any
func (i *InterceptorFunc) BeforeHook() (BeforeFunc, bool) {
	return i.before, i.before != nil
}

// AfterHook reports the after-call function, if any
func (i *InterceptorFunc) AfterHook() (AfterFunc, bool) {
	return i.after, i.after != nil
}
