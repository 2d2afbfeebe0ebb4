package signature

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrTooManyArguments   = errors.New("signature: too many positional arguments")
	ErrUnexpectedKeyword  = errors.New("signature: unexpected keyword argument")
	ErrDuplicateArgument  = errors.New("signature: multiple values for argument")
	ErrMissingArgument    = errors.New("signature: missing required argument")
	ErrPositionalOnlyName = errors.New("signature: positional-only argument passed as keyword")
)

// ParameterKind mirrors how an argument may be supplied
type ParameterKind int

const (
	PositionalOnly ParameterKind = iota
	PositionalOrKeyword
	VarPositional
	KeywordOnly
	VarKeyword
)

func (k ParameterKind) String() string {
	switch k {
	case PositionalOnly:
		return "positional-only"
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case VarPositional:
		return "var-positional"
	case KeywordOnly:
		return "keyword-only"
	case VarKeyword:
		return "var-keyword"
	default:
		return "unknown"
	}
}

// Parameter is one entry of a Signature
type Parameter struct {
	Name       string
	Kind       ParameterKind
	Default    any
	HasDefault bool
}

// Param declares a required positional-or-keyword parameter
func Param(name string) Parameter {
	return Parameter{Name: name, Kind: PositionalOrKeyword}
}

// Optional declares a positional-or-keyword parameter with a default
func Optional(name string, def any) Parameter {
	return Parameter{Name: name, Kind: PositionalOrKeyword, Default: def, HasDefault: true}
}

// KeywordOnlyParam declares a keyword-only parameter with a default
func KeywordOnlyParam(name string, def any) Parameter {
	return Parameter{Name: name, Kind: KeywordOnly, Default: def, HasDefault: true}
}

// VarArgs declares a parameter collecting extra positional arguments
func VarArgs(name string) Parameter {
	return Parameter{Name: name, Kind: VarPositional}
}

// VarKwargs declares a parameter collecting extra keyword arguments
func VarKwargs(name string) Parameter {
	return Parameter{Name: name, Kind: VarKeyword}
}

func (p Parameter) String() string {
	switch p.Kind {
	case VarPositional:
		return "*" + p.Name
	case VarKeyword:
		return "**" + p.Name
	}
	if p.HasDefault {
		return p.Name + "=" + formatDefault(p.Default)
	}
	return p.Name
}

// Equal compares name, kind and default
func (p Parameter) Equal(o Parameter) bool {
	if p.Name != o.Name || p.Kind != o.Kind || p.HasDefault != o.HasDefault {
		return false
	}
	return !p.HasDefault || reflect.DeepEqual(p.Default, o.Default)
}

// Signature is the ordered parameter list of a callable
type Signature struct {
	Parameters []Parameter
}

// New builds a Signature from parameters
func New(params ...Parameter) Signature {
	return Signature{Parameters: params}
}

// String renders the signature, e.g. "(experiments, backend, shots=None, **run_config)"
func (s Signature) String() string {
	parts := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Names returns the parameter names in order
func (s Signature) Names() []string {
	names := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		names[i] = p.Name
	}
	return names
}

// Equal compares two signatures parameter by parameter, defaults included
func (s Signature) Equal(o Signature) bool {
	if len(s.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range s.Parameters {
		if !s.Parameters[i].Equal(o.Parameters[i]) {
			return false
		}
	}
	return true
}

// NamesEqual compares names and kinds only, ignoring defaults
func (s Signature) NamesEqual(o Signature) bool {
	if len(s.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range s.Parameters {
		if s.Parameters[i].Name != o.Parameters[i].Name || s.Parameters[i].Kind != o.Parameters[i].Kind {
			return false
		}
	}
	return true
}

// Parameter finds a parameter by name together with its positional index.
// The index is -1 for parameters that cannot be passed positionally.
func (s Signature) Parameter(name string) (Parameter, int, bool) {
	position := 0
	for _, p := range s.Parameters {
		if p.Name == name {
			if p.Kind == PositionalOnly || p.Kind == PositionalOrKeyword {
				return p, position, true
			}
			return p, -1, true
		}
		if p.Kind == PositionalOnly || p.Kind == PositionalOrKeyword {
			position++
		}
	}
	return Parameter{}, -1, false
}

func (s Signature) hasKind(kind ParameterKind) bool {
	for _, p := range s.Parameters {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

func formatDefault(v any) string {
	switch d := v.(type) {
	case nil:
		return "None"
	case bool:
		if d {
			return "True"
		}
		return "False"
	case string:
		return "'" + d + "'"
	default:
		return fmt.Sprintf("%v", d)
	}
}
