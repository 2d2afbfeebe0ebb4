package main

import (
	"context"
	"fmt"
	"strings"

	intercept "github.com/glimte/intercept-go"
	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
	"github.com/glimte/intercept-go/framework/braket"
	"github.com/glimte/intercept-go/framework/dwave"
	"github.com/glimte/intercept-go/framework/qiskit"
	"github.com/glimte/intercept-go/runner"
	"github.com/glimte/intercept-go/signature"
)

// The examples stand in for host programs. The originals simulate the
// framework calls so runs are reproducible without hardware access.

type exampleCircuit struct {
	Name   string `json:"name"`
	Qubits int    `json:"qubits"`
}

func (c exampleCircuit) CircuitName() string { return c.Name }
func (c exampleCircuit) NumQubits() int      { return c.Qubits }

type exampleSampler struct {
	Kind   string          `json:"kind"`
	Config map[string]any  `json:"config,omitempty"`
	Child  *exampleSampler `json:"child,omitempty"`
}

func (s *exampleSampler) String() string {
	if s.Child != nil {
		return s.Kind + "(" + s.Child.String() + ")"
	}
	return s.Kind
}

func registerExamples(client *intercept.Client) error {
	examples := map[string]runner.EntryFunc{
		"examples/qiskit/bell:run":   runBell,
		"examples/dwave/sample:run":  runDWave,
		"examples/dwave/hybrid:run":  runHybrid,
		"examples/braket/sample:run": runBraket,
	}
	for name, fn := range examples {
		if err := client.RegisterEntryPoint(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func runBell(ctx context.Context, env *runner.Environment, args []any, kwargs map[string]any) (any, error) {
	bell := exampleCircuit{Name: "bell", Qubits: 2}
	return env.Call(ctx, qiskit.KindExecute, []any{[]any{bell}, "ibmq_qasm_simulator"}, kwargs)
}

func runDWave(ctx context.Context, env *runner.Environment, args []any, kwargs map[string]any) (any, error) {
	sampler, err := env.Call(ctx, dwave.KindDWaveSampler, nil, kwargs)
	if err != nil {
		return nil, err
	}
	composite, err := env.Call(ctx, dwave.KindEmbedding, []any{sampler}, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sampler": composite}, nil
}

func runHybrid(ctx context.Context, env *runner.Environment, args []any, kwargs map[string]any) (any, error) {
	sampler, err := env.Call(ctx, dwave.KindLeapHybridSampler, nil, kwargs)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sampler": sampler}, nil
}

func runBraket(ctx context.Context, env *runner.Environment, args []any, kwargs map[string]any) (any, error) {
	folder := braket.S3DestinationFolder{Bucket: "amazon-braket-results", Key: "dwave"}
	sampler, err := env.Call(ctx, braket.KindBraketDWaveSampler, []any{folder}, kwargs)
	if err != nil {
		return nil, err
	}
	composite, err := env.Call(ctx, dwave.KindEmbedding, []any{sampler}, nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{"sampler": composite}, nil
}

// exampleOriginals returns the simulated callables of the named framework
func exampleOriginals(name string) map[string]framework.Original {
	switch strings.ToLower(name) {
	case qiskit.Name:
		return map[string]framework.Original{
			qiskit.KindExecute: {Call: simulateExecute},
		}
	case dwave.Name:
		return map[string]framework.Original{
			dwave.KindDWaveSampler:      {Call: newSampler(dwave.KindDWaveSampler, dwave.DWaveSamplerSignature)},
			dwave.KindLeapHybridSampler: {Call: newSampler(dwave.KindLeapHybridSampler, dwave.LeapHybridSamplerSignature)},
			dwave.KindEmbedding:         {Call: embed},
		}
	case braket.Name:
		return map[string]framework.Original{
			braket.KindBraketDWaveSampler: {Call: newSampler(braket.KindBraketDWaveSampler, braket.SamplerSignature)},
			dwave.KindEmbedding:           {Call: embed},
		}
	default:
		return nil
	}
}

func simulateExecute(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	backend, ok := signature.Lookup(qiskit.ExecuteSignature, args, kwargs, "backend")
	if !ok {
		return nil, fmt.Errorf("execute() missing required argument: 'backend'")
	}

	shots := 1024
	if v, ok := kwargs["shots"]; ok {
		switch n := v.(type) {
		case int:
			shots = n
		case float64:
			shots = int(n)
		}
	}

	return map[string]any{
		"backend": fmt.Sprint(backend),
		"shots":   shots,
		"counts":  map[string]int{"00": shots / 2, "11": shots - shots/2},
	}, nil
}

func newSampler(kind string, sig signature.Signature) contracts.Callable {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		config := make(map[string]any, len(args)+len(kwargs))
		for _, p := range sig.Parameters {
			if p.Kind == signature.VarPositional || p.Kind == signature.VarKeyword {
				continue
			}
			if v, ok := signature.Lookup(sig, args, kwargs, p.Name); ok && v != nil {
				config[p.Name] = v
			}
		}
		for k, v := range kwargs {
			config[k] = v
		}
		return &exampleSampler{Kind: kind, Config: config}, nil
	}
}

func embed(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	child, _ := signature.Lookup(dwave.EmbeddingCompositeSignature, args, kwargs, "child_sampler")
	sampler, ok := child.(*exampleSampler)
	if !ok {
		return nil, fmt.Errorf("EmbeddingComposite requires a sampler, got %T", child)
	}
	return &exampleSampler{Kind: dwave.KindEmbedding, Child: sampler}, nil
}
