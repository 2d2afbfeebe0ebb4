// Package qiskit intercepts calls to qiskit.execute.
//
// The default interceptors extract circuits and schedules from the
// experiments argument and replace the backend with the one named by the
// "backend" pipeline argument. The dry-run interceptor returns the
// experiments instead of running them.
package qiskit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
	"github.com/glimte/intercept-go/interceptors"
	"github.com/glimte/intercept-go/signature"
)

const (
	// Name is the framework name
	Name = "qiskit"
	// KindExecute is the target kind of qiskit.execute
	KindExecute = "qiskit.execute"

	// ArgumentBackend is the pipeline argument naming the backend to inject
	ArgumentBackend = "backend"

	ExtraCircuits  = "circuits"
	ExtraSchedules = "schedules"
)

// ExecuteSignature is the reference signature of qiskit.execute
var ExecuteSignature = signature.New(
	signature.Param("experiments"),
	signature.Param("backend"),
	signature.Optional("basis_gates", nil),
	signature.Optional("coupling_map", nil),
	signature.Optional("backend_properties", nil),
	signature.Optional("initial_layout", nil),
	signature.Optional("seed_transpiler", nil),
	signature.Optional("optimization_level", nil),
	signature.Optional("pass_manager", nil),
	signature.Optional("qobj_id", nil),
	signature.Optional("qobj_header", nil),
	signature.Optional("shots", nil),
	signature.Optional("memory", false),
	signature.Optional("max_credits", nil),
	signature.Optional("seed_simulator", nil),
	signature.Optional("default_qubit_los", nil),
	signature.Optional("default_meas_los", nil),
	signature.Optional("schedule_los", nil),
	signature.Optional("meas_level", nil),
	signature.Optional("meas_return", nil),
	signature.Optional("memory_slots", nil),
	signature.Optional("memory_slot_size", nil),
	signature.Optional("rep_time", nil),
	signature.Optional("rep_delay", nil),
	signature.Optional("parameter_binds", nil),
	signature.Optional("schedule_circuit", false),
	signature.Optional("inst_map", nil),
	signature.Optional("meas_map", nil),
	signature.Optional("scheduling_method", nil),
	signature.Optional("init_qubits", nil),
	signature.VarKwargs("run_config"),
)

// ExecuteAllowList lists the qiskit-terra releases whose execute signature is supported
var ExecuteAllowList = signature.NewAllowList(KindExecute).
	MustAdd("0.18.0", ExecuteSignature, signature.MatchExact)

// Circuit is a quantum circuit passed to execute
type Circuit interface {
	CircuitName() string
	NumQubits() int
}

// Schedule is a pulse schedule passed to execute
type Schedule interface {
	ScheduleName() string
	Duration() int
}

// Domain implements framework.Domain for qiskit
type Domain struct {
	resolver interceptors.Resolver
	logger   *slog.Logger
}

// Option configures the Domain
type Option func(*Domain)

// WithBackendResolver sets how backend names are turned into backends.
// The default is AerBackends.
func WithBackendResolver(resolver interceptors.Resolver) Option {
	return func(d *Domain) {
		d.resolver = resolver
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(d *Domain) {
		d.logger = logger
	}
}

// New creates the qiskit domain
func New(opts ...Option) *Domain {
	d := &Domain{
		resolver: AerBackends,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements framework.Domain
func (d *Domain) Name() string {
	return Name
}

// Targets implements framework.Domain
func (d *Domain) Targets() []framework.Target {
	return []framework.Target{{
		Kind:      KindExecute,
		Signature: ExecuteSignature,
		AllowList: ExecuteAllowList,
	}}
}

// Interceptors implements framework.Domain
func (d *Domain) Interceptors() []framework.Plugin {
	return []framework.Plugin{
		{
			Priority:    interceptors.PriorityExtract,
			Interceptor: interceptors.NewExtractInterceptor("ExtractCircuitInterceptor", ExtractExperiments),
		},
		{
			Priority: interceptors.PriorityInject,
			Interceptor: interceptors.NewArgumentInjector(interceptors.InjectorConfig{
				Name:        "InjectAerBackendInterceptor",
				ArgumentKey: ArgumentBackend,
				Parameter:   "backend",
				Signatures:  map[string]signature.Signature{KindExecute: ExecuteSignature},
				Resolve:     d.resolver,
			}),
		},
	}
}

// DryRun implements framework.Domain
func (d *Domain) DryRun() framework.Plugin {
	return framework.Plugin{
		Priority:    interceptors.PriorityDryRun,
		Interceptor: interceptors.NewDryRunInterceptor(interceptors.ArgumentSelector(ExecuteSignature, "experiments")),
	}
}

// ExtractExperiments sorts the experiments argument into circuits and schedules
func ExtractExperiments(ctx context.Context, record *contracts.CallRecord) (map[string]any, error) {
	circuits := make([]Circuit, 0)
	schedules := make([]Schedule, 0)

	add := func(experiment any) {
		switch e := experiment.(type) {
		case Circuit:
			circuits = append(circuits, e)
		case Schedule:
			schedules = append(schedules, e)
		}
	}

	experiments, _ := signature.Lookup(ExecuteSignature, record.Args, record.Kwargs, "experiments")
	switch e := experiments.(type) {
	case []any:
		for _, item := range e {
			add(item)
		}
	case []Circuit:
		circuits = append(circuits, e...)
	case []Schedule:
		schedules = append(schedules, e...)
	default:
		add(e)
	}

	return map[string]any{
		ExtraCircuits:  circuits,
		ExtraSchedules: schedules,
	}, nil
}

// Backend is a simulator backend selected by name
type Backend struct {
	Name string `json:"name"`
}

func (b Backend) String() string {
	return b.Name
}

var aerBackends = map[string]struct{}{
	"aer_simulator":                {},
	"aer_simulator_statevector":    {},
	"aer_simulator_density_matrix": {},
	"aer_simulator_stabilizer":     {},
	"aer_simulator_unitary":        {},
	"qasm_simulator":               {},
	"statevector_simulator":        {},
	"unitary_simulator":            {},
	"pulse_simulator":              {},
}

// AerBackends resolves the names of the Aer simulators
func AerBackends(ctx context.Context, name string) (any, error) {
	if _, ok := aerBackends[name]; !ok {
		return nil, fmt.Errorf("no aer backend named %q", name)
	}
	return Backend{Name: name}, nil
}
