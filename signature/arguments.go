package signature

import (
	"fmt"
)

// Lookup returns the value supplied for the named parameter. Keyword arguments
// win over positional ones. When the signature does not declare the name, only
// kwargs are consulted.
func Lookup(sig Signature, args []any, kwargs map[string]any, name string) (any, bool) {
	if v, ok := kwargs[name]; ok {
		return v, true
	}
	_, position, ok := sig.Parameter(name)
	if !ok || position < 0 || position >= len(args) {
		return nil, false
	}
	return args[position], true
}

// Replace puts value in place of the named argument. A positional value is
// replaced in a fresh args slice; otherwise kwargs is updated in place. The
// previous value, if any, is returned.
func Replace(sig Signature, args []any, kwargs map[string]any, name string, value any) ([]any, any, bool) {
	if _, position, ok := sig.Parameter(name); ok && position >= 0 && position < len(args) {
		if _, dup := kwargs[name]; !dup {
			replaced := make([]any, len(args))
			copy(replaced, args)
			old := replaced[position]
			replaced[position] = value
			return replaced, old, true
		}
	}

	old, existed := kwargs[name]
	kwargs[name] = value
	return args, old, existed
}

// Validate checks that args and kwargs form a structurally valid call: arity,
// keyword names, duplicates and required parameters. Argument values are not
// inspected.
func Validate(sig Signature, args []any, kwargs map[string]any) error {
	bound := make(map[string]bool, len(sig.Parameters))

	i := 0
	for _, p := range sig.Parameters {
		if p.Kind != PositionalOnly && p.Kind != PositionalOrKeyword {
			continue
		}
		if i >= len(args) {
			break
		}
		bound[p.Name] = true
		i++
	}
	if i < len(args) && !sig.hasKind(VarPositional) {
		return fmt.Errorf("%w: takes %d but %d were given", ErrTooManyArguments, i, len(args))
	}

	acceptsAnyKeyword := sig.hasKind(VarKeyword)
	for name := range kwargs {
		p, _, ok := sig.Parameter(name)
		switch {
		case !ok || p.Kind == VarPositional || p.Kind == VarKeyword:
			if !acceptsAnyKeyword {
				return fmt.Errorf("%w: %s", ErrUnexpectedKeyword, name)
			}
		case p.Kind == PositionalOnly:
			if !acceptsAnyKeyword {
				return fmt.Errorf("%w: %s", ErrPositionalOnlyName, name)
			}
		case bound[name]:
			return fmt.Errorf("%w: %s", ErrDuplicateArgument, name)
		default:
			bound[name] = true
		}
	}

	for _, p := range sig.Parameters {
		if p.Kind == VarPositional || p.Kind == VarKeyword || p.HasDefault {
			continue
		}
		if !bound[p.Name] {
			return fmt.Errorf("%w: %s", ErrMissingArgument, p.Name)
		}
	}

	return nil
}
