package runner

import (
	"context"
	"sort"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
)

// Environment gives host code the framework callables for one run
type Environment struct {
	fw        *framework.Framework
	originals map[string]framework.Original
	intercept bool
}

// NewEnvironment creates an environment. With intercept set, callables are
// the framework's stand-ins; otherwise the originals are returned directly.
func NewEnvironment(fw *framework.Framework, originals map[string]framework.Original, intercept bool) *Environment {
	return &Environment{fw: fw, originals: originals, intercept: intercept}
}

// Framework returns the framework name
func (e *Environment) Framework() string {
	return e.fw.Name()
}

// Intercepting reports whether calls go through the dispatcher
func (e *Environment) Intercepting() bool {
	return e.intercept
}

// Callable returns the callable to use for kind
func (e *Environment) Callable(kind string) (contracts.Callable, error) {
	if e.intercept {
		if !e.fw.Patched(kind) {
			return nil, e.unknown(kind)
		}
		return e.fw.StandIn(kind), nil
	}

	original, ok := e.originals[kind]
	if !ok || original.Call == nil {
		return nil, e.unknown(kind)
	}
	return original.Call, nil
}

// Call invokes the callable for kind
func (e *Environment) Call(ctx context.Context, kind string, args []any, kwargs map[string]any) (any, error) {
	fn, err := e.Callable(kind)
	if err != nil {
		return nil, err
	}
	return fn(ctx, args, kwargs)
}

func (e *Environment) unknown(kind string) error {
	known := make([]string, 0, len(e.originals))
	for k := range e.originals {
		known = append(known, k)
	}
	sort.Strings(known)
	return &contracts.ConfigurationError{
		Op:         "lookup",
		Domain:     e.fw.Name(),
		TargetKind: kind,
		Known:      known,
		Err:        contracts.ErrBindingNotFound,
	}
}
