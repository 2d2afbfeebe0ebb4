package runner

import (
	"context"
	"testing"

	"github.com/glimte/intercept-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntryPoint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  EntryPoint
	}{
		{"package only", "bell", EntryPoint{Package: "bell"}},
		{"with method", "bell:run", EntryPoint{Package: "bell", Method: "run"}},
		{"with path", "examples/qiskit/bell:run", EntryPoint{Path: "examples/qiskit", Package: "bell", Method: "run"}},
		{"backslashes", `examples\qiskit\bell:run`, EntryPoint{Path: "examples/qiskit", Package: "bell", Method: "run"}},
		{"dotted package", "pkg.sub:main", EntryPoint{Package: "pkg.sub", Method: "main"}},
		{"go suffix", "examples/bell.go", EntryPoint{Path: "examples", Package: "bell"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntryPoint(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		for _, input := range []string{"", "examples/", "a:b:c", ":run", ".go:run"} {
			_, err := ParseEntryPoint(input)
			assert.ErrorIs(t, err, contracts.ErrInvalidEntryPoint, input)
		}
	})

	t.Run("key and string", func(t *testing.T) {
		ep := EntryPoint{Path: "examples", Package: "bell", Method: "run"}
		assert.Equal(t, "bell:run", ep.Key())
		assert.Equal(t, "examples/bell:run", ep.String())
		assert.Equal(t, "bell", EntryPoint{Package: "bell"}.String())
	})
}

func TestEntryPoints(t *testing.T) {
	noop := func(ctx context.Context, env *Environment, args []any, kwargs map[string]any) (any, error) {
		return "ok", nil
	}

	t.Run("register and lookup ignore path", func(t *testing.T) {
		eps := NewEntryPoints()
		require.NoError(t, eps.Register("examples/bell:run", noop))

		ep, err := ParseEntryPoint(`other\dir\bell:run`)
		require.NoError(t, err)
		fn, err := eps.Lookup(ep)
		require.NoError(t, err)

		got, err := fn(context.Background(), nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, []string{"bell:run"}, eps.Names())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := NewEntryPoints().Lookup(EntryPoint{Package: "missing"})
		assert.ErrorIs(t, err, contracts.ErrEntryPointNotFound)
	})

	t.Run("invalid registration", func(t *testing.T) {
		eps := NewEntryPoints()
		assert.ErrorIs(t, eps.Register("bell:run", nil), contracts.ErrInvalidEntryPoint)
		assert.ErrorIs(t, eps.Register("a:b:c", noop), contracts.ErrInvalidEntryPoint)
		assert.Panics(t, func() { eps.MustRegister("", noop) })
	})
}
