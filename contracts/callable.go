package contracts

import "context"

// Callable is the uniform shape of an intercepted function. Positional arguments
// travel in args, keyword arguments in kwargs.
type Callable func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// CallArguments holds the positional and keyword arguments of a single call.
type CallArguments struct {
	Args   []any          `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
	Kwargs map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty" mapstructure:"kwargs"`
}

// IsEmpty reports whether no arguments are set
func (a CallArguments) IsEmpty() bool {
	return len(a.Args) == 0 && len(a.Kwargs) == 0
}

// Call invokes fn with the arguments
func (a CallArguments) Call(ctx context.Context, fn Callable) (any, error) {
	kwargs := a.Kwargs
	if kwargs == nil {
		kwargs = make(map[string]any)
	}
	return fn(ctx, a.Args, kwargs)
}
