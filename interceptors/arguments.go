package interceptors

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeArguments decodes pipeline arguments into out, a pointer to a struct
// tagged with `mapstructure`. Scalar types are converted weakly so that values
// coming from JSON or YAML ("10" vs 10) decode either way.
func DecodeArguments(arguments map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create argument decoder: %w", err)
	}
	if err := decoder.Decode(arguments); err != nil {
		return fmt.Errorf("failed to decode pipeline arguments: %w", err)
	}
	return nil
}

// DecodeArgument decodes the single pipeline argument key into out. It
// reports false when the key is absent.
func DecodeArgument(arguments map[string]any, key string, out any) (bool, error) {
	value, ok := arguments[key]
	if !ok || value == nil {
		return false, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create argument decoder: %w", err)
	}
	if err := decoder.Decode(value); err != nil {
		return false, fmt.Errorf("failed to decode pipeline argument %s: %w", key, err)
	}
	return true, nil
}
