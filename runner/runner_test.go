package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
	"github.com/glimte/intercept-go/framework/qiskit"
	"github.com/glimte/intercept-go/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCircuit struct {
	name   string
	qubits int
}

func (c testCircuit) CircuitName() string { return c.name }
func (c testCircuit) NumQubits() int      { return c.qubits }

type fixture struct {
	frameworks  *framework.Registry
	entryPoints *EntryPoints
	runner      *Runner
	out         *bytes.Buffer
	executed    []any
	originals   map[string]framework.Original
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		frameworks:  framework.NewRegistry(framework.WithRegistryLogger(logging.NewNop())),
		entryPoints: NewEntryPoints(),
		out:         &bytes.Buffer{},
	}
	require.NoError(t, f.frameworks.RegisterDomain(qiskit.New(qiskit.WithLogger(logging.NewNop()))))

	f.originals = map[string]framework.Original{
		qiskit.KindExecute: {Call: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			backend := kwargs["backend"]
			if len(args) > 1 {
				backend = args[1]
			}
			f.executed = append(f.executed, backend)
			return map[string]any{"counts": map[string]int{"00": 512, "11": 512}}, nil
		}},
	}

	f.entryPoints.MustRegister("examples/bell:run", func(ctx context.Context, env *Environment, args []any, kwargs map[string]any) (any, error) {
		return env.Call(ctx, qiskit.KindExecute, []any{testCircuit{name: "bell", qubits: 2}, "ibmq_lima"}, kwargs)
	})

	f.runner = New(f.frameworks, f.entryPoints, WithOutput(f.out), WithRunnerLogger(logging.NewNop()))
	return f
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("intercepted run injects backend and writes result", func(t *testing.T) {
		f := newFixture(t)
		resultPath := filepath.Join(t.TempDir(), "run_result.json")

		result, err := f.runner.Run(ctx, Options{
			Framework:            "qiskit",
			EntryPoint:           "examples/bell:run",
			InterceptorArguments: map[string]any{"backend": "aer_simulator"},
			Intercept:            true,
			ResultPath:           resultPath,
			Originals:            f.originals,
		})
		require.NoError(t, err)
		assert.NotNil(t, result)

		require.Len(t, f.executed, 1)
		assert.Equal(t, qiskit.Backend{Name: "aer_simulator"}, f.executed[0])

		history, err := f.frameworks.ExecutionHistory("qiskit")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Len(t, history[0].Record.ExtraData[qiskit.ExtraCircuits], 1)

		data, err := os.ReadFile(resultPath)
		require.NoError(t, err)
		assert.JSONEq(t, `{"counts": {"00": 512, "11": 512}}`, string(data))

		assert.Contains(t, f.out.String(), "Intercepting framework function.")
		assert.Contains(t, f.out.String(), "Call 0:")
	})

	t.Run("dry run interrupts without result file", func(t *testing.T) {
		f := newFixture(t)
		resultPath := filepath.Join(t.TempDir(), "run_result.json")

		result, err := f.runner.Run(ctx, Options{
			Framework:  "QISKIT",
			EntryPoint: "bell:run",
			Intercept:  true,
			DryRun:     true,
			ResultPath: resultPath,
			Originals:  f.originals,
		})
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Empty(t, f.executed)

		assert.Contains(t, f.out.String(), "Performing dry run.")
		assert.Contains(t, f.out.String(), "Interrupted call:")
		assert.NoFileExists(t, resultPath)
	})

	t.Run("without interception originals run directly", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.runner.Run(ctx, Options{
			Framework:  "qiskit",
			EntryPoint: "bell:run",
			Intercept:  false,
			ResultPath: filepath.Join(t.TempDir(), "out.json"),
			Originals:  f.originals,
		})
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Equal(t, []any{"ibmq_lima"}, f.executed)

		history, err := f.frameworks.ExecutionHistory("qiskit")
		require.NoError(t, err)
		assert.Empty(t, history)
		assert.Contains(t, f.out.String(), "Running without intercepting framework function.")
	})

	t.Run("unknown framework lists supported", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.runner.Run(ctx, Options{Framework: "cirq", EntryPoint: "bell:run", Originals: f.originals})
		assert.ErrorIs(t, err, contracts.ErrFrameworkNotSupported)
		assert.Contains(t, f.out.String(), "No interceptor for framework CIRQ found. Available frameworks are: [QISKIT]")
	})

	t.Run("unknown entry point", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.runner.Run(ctx, Options{Framework: "qiskit", EntryPoint: "missing:run"})
		assert.ErrorIs(t, err, contracts.ErrEntryPointNotFound)
	})

	t.Run("entry point error is returned after analysis", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("boom")
		f.entryPoints.MustRegister("broken:run", func(ctx context.Context, env *Environment, args []any, kwargs map[string]any) (any, error) {
			return nil, boom
		})

		_, err := f.runner.Run(ctx, Options{
			Framework:  "qiskit",
			EntryPoint: "broken:run",
			ResultPath: filepath.Join(t.TempDir(), "out.json"),
		})
		assert.Same(t, boom, err)
	})

	t.Run("quiet suppresses report", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.runner.Run(ctx, Options{
			Framework:  "qiskit",
			EntryPoint: "bell:run",
			Intercept:  true,
			Quiet:      true,
			ResultPath: filepath.Join(t.TempDir(), "out.json"),
			Originals:  f.originals,
		})
		require.NoError(t, err)
		assert.Empty(t, f.out.String())
	})

	t.Run("main style entry point gets no arguments", func(t *testing.T) {
		f := newFixture(t)
		var gotArgs []any
		f.entryPoints.MustRegister("main", func(ctx context.Context, env *Environment, args []any, kwargs map[string]any) (any, error) {
			gotArgs = args
			assert.NotNil(t, kwargs)
			return nil, nil
		})

		_, err := f.runner.Run(ctx, Options{
			Framework:           "qiskit",
			EntryPoint:          "main",
			EntryPointArguments: contracts.CallArguments{Args: []any{1}},
		})
		require.NoError(t, err)
		assert.Nil(t, gotArgs)
	})
}

func TestEnvironment(t *testing.T) {
	f := newFixture(t)
	fw, err := f.frameworks.Resolve("qiskit")
	require.NoError(t, err)

	t.Run("unpatched kind is a configuration error", func(t *testing.T) {
		env := NewEnvironment(fw, f.originals, true)
		_, err := env.Callable(qiskit.KindExecute)
		assert.True(t, contracts.IsConfigurationError(err))
		assert.ErrorIs(t, err, contracts.ErrBindingNotFound)
	})

	t.Run("original when not intercepting", func(t *testing.T) {
		env := NewEnvironment(fw, f.originals, false)
		assert.False(t, env.Intercepting())
		assert.Equal(t, qiskit.Name, env.Framework())

		_, err := env.Call(context.Background(), qiskit.KindExecute, []any{"c", "b"}, nil)
		require.NoError(t, err)

		_, err = env.Callable("qiskit.unknown")
		assert.ErrorIs(t, err, contracts.ErrBindingNotFound)
	})
}

func TestAnalyzeResults(t *testing.T) {
	dir := t.TempDir()
	record := contracts.NewCallRecord("qiskit.execute", nil, nil)
	record.SetExtra("circuits", []string{"bell"})
	entries := []contracts.ExecutionResult{{Record: record}}

	t.Run("string written as is", func(t *testing.T) {
		var out bytes.Buffer
		path := filepath.Join(dir, "string.json")
		require.NoError(t, AnalyzeResults(&out, entries, "done", path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "done", string(data))
		assert.Contains(t, out.String(), "Call 0:")
		assert.Contains(t, out.String(), "circuits: [bell]")
	})

	t.Run("slice written as json", func(t *testing.T) {
		path := filepath.Join(dir, "slice.json")
		require.NoError(t, AnalyzeResults(&bytes.Buffer{}, nil, []int{1, 2}, path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `[1, 2]`, string(data))
	})

	t.Run("unserializable", func(t *testing.T) {
		var out bytes.Buffer
		path := filepath.Join(dir, "int.json")
		require.NoError(t, AnalyzeResults(&out, nil, 42, path))
		assert.Contains(t, out.String(), "Unserializable result type!")
		assert.NoFileExists(t, path)
	})

	t.Run("nil writes nothing", func(t *testing.T) {
		path := filepath.Join(dir, "nil.json")
		require.NoError(t, AnalyzeResults(&bytes.Buffer{}, nil, nil, path))
		assert.NoFileExists(t, path)
	})

	t.Run("interrupted", func(t *testing.T) {
		var out bytes.Buffer
		record.Terminate([]string{"bell"})
		AnalyzeInterrupted(&out, record)
		assert.Contains(t, out.String(), "Interrupted call:")
		assert.Contains(t, out.String(), "Termination result: [bell]")
	})
}
