package runner

import (
	"fmt"

	"github.com/glimte/intercept-go/contracts"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseEntryPointArguments decodes the JSON arguments of an entry point.
// A list is positional, an object with only "args" and "kwargs" keys is
// taken as is, any other object is keyword arguments and a scalar is a
// single positional argument.
func ParseEntryPointArguments(s string) (contracts.CallArguments, error) {
	if s == "" {
		return contracts.CallArguments{}, nil
	}

	var decoded any
	if err := json.UnmarshalFromString(s, &decoded); err != nil {
		return contracts.CallArguments{}, fmt.Errorf("value %q is not a valid json string: %w", s, err)
	}

	switch v := decoded.(type) {
	case []any:
		return contracts.CallArguments{Args: v}, nil
	case map[string]any:
		if !onlyCallKeys(v) {
			return contracts.CallArguments{Kwargs: v}, nil
		}
		var out contracts.CallArguments
		if raw, ok := v["args"]; ok && raw != nil {
			args, ok := raw.([]any)
			if !ok {
				return contracts.CallArguments{}, fmt.Errorf("entry point argument \"args\" must be a json list")
			}
			out.Args = args
		}
		if raw, ok := v["kwargs"]; ok && raw != nil {
			kwargs, ok := raw.(map[string]any)
			if !ok {
				return contracts.CallArguments{}, fmt.Errorf("entry point argument \"kwargs\" must be a json object")
			}
			out.Kwargs = kwargs
		}
		return out, nil
	default:
		return contracts.CallArguments{Args: []any{v}}, nil
	}
}

func onlyCallKeys(m map[string]any) bool {
	for k := range m {
		if k != "args" && k != "kwargs" {
			return false
		}
	}
	return true
}

// ParseInterceptorArguments decodes the pipeline arguments, which must be a JSON object
func ParseInterceptorArguments(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}

	var decoded any
	if err := json.UnmarshalFromString(s, &decoded); err != nil {
		return nil, fmt.Errorf("value %q is not a valid json string: %w", s, err)
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("value %q is not a valid json object", s)
	}
	return m, nil
}
