package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/interceptors"
	"github.com/glimte/intercept-go/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addSignature = signature.New(signature.Param("a"), signature.Param("b"))

type testDomain struct {
	name string
}

func (d testDomain) Name() string { return d.name }

func (d testDomain) Targets() []Target {
	return []Target{{
		Kind:      "add",
		Signature: addSignature,
		AllowList: signature.NewAllowList("add").MustAdd("1.0.0", addSignature, signature.MatchExact),
	}}
}

func (d testDomain) Interceptors() []Plugin {
	return []Plugin{{
		Priority: 100,
		Interceptor: interceptors.NewInterceptorFunc("tag", func(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
			record.SetExtra("domain", d.name)
			return nil, nil
		}, nil),
	}}
}

func (d testDomain) DryRun() Plugin {
	return Plugin{Priority: interceptors.PriorityDryRun, Interceptor: interceptors.NewDryRunInterceptor(nil)}
}

func add(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return args[0].(int) + args[1].(int), nil
}

func TestFramework(t *testing.T) {
	ctx := context.Background()

	t.Run("patch and dispatch through the stand-in", func(t *testing.T) {
		fw := New(testDomain{name: "math"})
		require.NoError(t, fw.LoadInterceptors())
		require.NoError(t, fw.LoadInterceptors())
		assert.Equal(t, 1, fw.Dispatcher().Registry().Len())

		require.NoError(t, fw.Patch(map[string]Original{"add": {Call: add}}))
		assert.True(t, fw.Patched("add"))

		result, err := fw.StandIn("add")(ctx, []any{1, 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, result)

		entries := fw.ExecutionHistory()
		require.Len(t, entries, 1)
		assert.Equal(t, "math", entries[0].Record.ExtraData["domain"])

		original, ok := fw.Unpatched("add")
		require.True(t, ok)
		direct, err := original(ctx, []any{2, 2}, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, direct)
		assert.Len(t, fw.ExecutionHistory(), 1)
	})

	t.Run("dry run returns first argument", func(t *testing.T) {
		fw := New(testDomain{name: "math"})
		require.NoError(t, fw.LoadDryRun())
		require.NoError(t, fw.Patch(map[string]Original{"add": {Call: add}}))

		_, err := fw.StandIn("add")(ctx, []any{5, 6}, nil)
		record, ok := contracts.GetInterruptedRecord(err)
		require.True(t, ok)
		assert.Equal(t, 5, record.TerminationResult)
		assert.Empty(t, fw.ExecutionHistory())
	})

	t.Run("patching an unknown kind fails", func(t *testing.T) {
		fw := New(testDomain{name: "math"})
		err := fw.Patch(map[string]Original{"sub": {Call: add}})
		assert.ErrorIs(t, err, contracts.ErrUnknownTarget)
		assert.True(t, contracts.IsConfigurationError(err))
	})

	t.Run("declared signature overrides reference", func(t *testing.T) {
		fw := New(testDomain{name: "math"})
		other := signature.New(signature.Param("x"), signature.Param("y"))
		require.NoError(t, fw.Patch(map[string]Original{"add": {Call: add, Signature: &other}}))

		binding, ok := fw.Dispatcher().Binding("add")
		require.True(t, ok)
		assert.False(t, binding.Compatible())
	})

	t.Run("pipeline arguments reach interceptors", func(t *testing.T) {
		fw := New(testDomain{name: "math"})
		var seen any
		fw.Dispatcher().Registry().MustRegister(1, interceptors.NewInterceptorFunc("read", func(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
			seen = record.PipelineArguments["backend"]
			return nil, nil
		}, nil))
		require.NoError(t, fw.Patch(map[string]Original{"add": {Call: add}}))

		fw.SetPipelineArguments(map[string]any{"backend": "sim"})
		_, err := fw.StandIn("add")(ctx, []any{1, 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, "sim", seen)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("resolve is case insensitive and lazy", func(t *testing.T) {
		built := 0
		r := NewRegistry()
		require.NoError(t, r.Register("qiskit", func() (*Framework, error) {
			built++
			return New(testDomain{name: "qiskit"}), nil
		}))
		assert.Equal(t, 0, built)

		first, err := r.Resolve("QISKIT")
		require.NoError(t, err)
		second, err := r.Resolve("qiskit")
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, built)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.RegisterDomain(testDomain{name: "dwave"}))
		err := r.RegisterDomain(testDomain{name: "DWave"})
		assert.ErrorIs(t, err, contracts.ErrFrameworkRegistered)
	})

	t.Run("unknown name lists supported frameworks", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.RegisterDomain(testDomain{name: "qiskit"}))
		require.NoError(t, r.RegisterDomain(testDomain{name: "dwave"}))

		_, err := r.Resolve("cirq")
		var cfgErr *contracts.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.ErrorIs(t, err, contracts.ErrFrameworkNotSupported)
		assert.Equal(t, []string{"DWAVE", "QISKIT"}, cfgErr.Known)
		assert.Equal(t, []string{"DWAVE", "QISKIT"}, r.Supported())
	})

	t.Run("factory failure", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("broken", func() (*Framework, error) {
			return nil, errors.New("no sdk")
		}))
		_, err := r.Resolve("broken")
		assert.ErrorContains(t, err, "no sdk")
	})

	t.Run("domains keep separate histories", func(t *testing.T) {
		ctx := context.Background()
		r := NewRegistry()
		require.NoError(t, r.RegisterDomain(testDomain{name: "qiskit"}))
		require.NoError(t, r.RegisterDomain(testDomain{name: "dwave"}))

		q, err := r.Resolve("qiskit")
		require.NoError(t, err)
		require.NoError(t, q.Patch(map[string]Original{"add": {Call: add}}))
		_, err = q.StandIn("add")(ctx, []any{1, 2}, nil)
		require.NoError(t, err)

		d, err := r.Dispatcher("dwave")
		require.NoError(t, err)
		_, err = d.Dispatch(ctx, "add", nil, nil)
		assert.True(t, contracts.IsConfigurationError(err))

		qHistory, err := r.ExecutionHistory("qiskit")
		require.NoError(t, err)
		assert.Len(t, qHistory, 1)
		dHistory, err := r.ExecutionHistory("dwave")
		require.NoError(t, err)
		assert.Empty(t, dHistory)

		require.NoError(t, r.SetPipelineArguments("dwave", map[string]any{"solver": "x"}))
		assert.Equal(t, map[string]any{"solver": "x"}, d.PipelineArguments())
		assert.Error(t, r.SetPipelineArguments("cirq", nil))
	})
}
