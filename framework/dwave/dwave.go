// Package dwave intercepts the D-Wave Ocean samplers: DWaveSampler,
// LeapHybridSampler and EmbeddingComposite.
//
// The "solver" pipeline argument selects the solver handed to the two
// samplers. EmbeddingComposite is only checked by parameter names since
// its defaults are functions that vary between releases.
package dwave

import (
	"context"
	"log/slog"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
	"github.com/glimte/intercept-go/interceptors"
	"github.com/glimte/intercept-go/signature"
)

const (
	Name = "dwave"

	KindDWaveSampler      = "DWaveSampler"
	KindLeapHybridSampler = "LeapHybridSampler"
	KindEmbedding         = "EmbeddingComposite"

	// ArgumentSolver is the pipeline argument naming the solver to inject
	ArgumentSolver = "solver"

	ExtraSampler       = "sampler"
	ExtraSamplerConfig = "sampler_config"
	ExtraChildSampler  = "child_sampler"
)

var (
	DWaveSamplerSignature = signature.New(
		signature.Optional("failover", false),
		signature.Optional("retry_interval", -1),
		signature.VarKwargs("config"),
	)

	LeapHybridSamplerSignature = signature.New(
		signature.Optional("solver", nil),
		signature.Optional("connection_close", true),
		signature.VarKwargs("config"),
	)

	EmbeddingCompositeSignature = signature.New(
		signature.Param("child_sampler"),
		signature.Optional("find_embedding", "minorminer.find_embedding"),
		signature.Optional("embedding_parameters", nil),
		signature.Optional("scale_aware", false),
		signature.Optional("child_structure_search", "dimod.child_structure_dfs"),
	)
)

var (
	DWaveSamplerAllowList       = signature.NewAllowList(KindDWaveSampler)
	LeapHybridSamplerAllowList  = signature.NewAllowList(KindLeapHybridSampler)
	EmbeddingCompositeAllowList = signature.NewAllowList(KindEmbedding)
)

func init() {
	DWaveSamplerAllowList.MustAdd("1.10.0", DWaveSamplerSignature, signature.MatchExact)
	LeapHybridSamplerAllowList.MustAdd("1.10.0", LeapHybridSamplerSignature, signature.MatchExact)
	EmbeddingCompositeAllowList.MustAdd("1.10.0", EmbeddingCompositeSignature, signature.MatchNames)
}

// EmbeddingTarget is the EmbeddingComposite target, shared with other D-Wave based domains
func EmbeddingTarget() framework.Target {
	return framework.Target{
		Kind:      KindEmbedding,
		Signature: EmbeddingCompositeSignature,
		AllowList: EmbeddingCompositeAllowList,
	}
}

// Domain implements framework.Domain for the Ocean samplers
type Domain struct {
	resolver interceptors.Resolver
	logger   *slog.Logger
}

// Option configures the Domain
type Option func(*Domain)

// WithSolverResolver sets how solver names are resolved. By default the
// name is passed through unchanged.
func WithSolverResolver(resolver interceptors.Resolver) Option {
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

// New creates the dwave domain
func New(opts ...Option) *Domain {
	d := &Domain{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Domain) Name() string {
	return Name
}

func (d *Domain) Targets() []framework.Target {
	return []framework.Target{
		{Kind: KindDWaveSampler, Signature: DWaveSamplerSignature, AllowList: DWaveSamplerAllowList},
		{Kind: KindLeapHybridSampler, Signature: LeapHybridSamplerSignature, AllowList: LeapHybridSamplerAllowList},
		EmbeddingTarget(),
	}
}

func (d *Domain) Interceptors() []framework.Plugin {
	return []framework.Plugin{
		{
			Priority:    interceptors.PriorityExtract,
			Interceptor: interceptors.NewExtractInterceptor("ExtractDWaveInterceptor", ExtractSampler),
		},
		{
			Priority: interceptors.PriorityInject,
			Interceptor: interceptors.NewArgumentInjector(interceptors.InjectorConfig{
				Name:        "InjectSolverInterceptor",
				ArgumentKey: ArgumentSolver,
				Parameter:   "solver",
				Signatures: map[string]signature.Signature{
					KindDWaveSampler:      DWaveSamplerSignature,
					KindLeapHybridSampler: LeapHybridSamplerSignature,
				},
				Resolve: d.resolver,
			}),
		},
	}
}

func (d *Domain) DryRun() framework.Plugin {
	return framework.Plugin{
		Priority:    interceptors.PriorityDryRun,
		Interceptor: interceptors.NewDryRunInterceptor(nil),
	}
}

// ExtractSampler records which sampler was requested and with what configuration
func ExtractSampler(ctx context.Context, record *contracts.CallRecord) (map[string]any, error) {
	config := make(map[string]any, len(record.Kwargs))
	for k, v := range record.Kwargs {
		config[k] = v
	}

	extra := map[string]any{
		ExtraSampler:       record.TargetKind,
		ExtraSamplerConfig: config,
	}
	if record.TargetKind == KindEmbedding {
		if child, ok := signature.Lookup(EmbeddingCompositeSignature, record.Args, record.Kwargs, "child_sampler"); ok {
			extra[ExtraChildSampler] = child
		}
	}
	return extra, nil
}
