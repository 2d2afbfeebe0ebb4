// Package braket intercepts the Amazon Braket D-Wave plugin:
// BraketDWaveSampler and the Ocean EmbeddingComposite.
package braket

import (
	"context"
	"log/slog"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
	"github.com/glimte/intercept-go/framework/dwave"
	"github.com/glimte/intercept-go/interceptors"
	"github.com/glimte/intercept-go/signature"
)

const (
	Name = "amazon_braket_dwave"

	KindBraketDWaveSampler = "BraketDWaveSampler"

	// ArgumentDeviceARN is the pipeline argument naming the device to inject
	ArgumentDeviceARN = "device_arn"

	ExtraDeviceARN           = "device_arn"
	ExtraS3DestinationFolder = "s3_destination_folder"
)

// S3DestinationFolder is the bucket and key prefix task results are written to
type S3DestinationFolder struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type loggerDefault string

// SamplerSignature is the reference signature of BraketDWaveSampler
var SamplerSignature = signature.New(
	signature.Param("s3_destination_folder"),
	signature.Optional("device_arn", nil),
	signature.Optional("aws_session", nil),
	signature.Optional("logger", loggerDefault("<Logger braket.ocean_plugin.braket_dwave_sampler (WARNING)>")),
)

var SamplerAllowList = signature.NewAllowList(KindBraketDWaveSampler)

func init() {
	SamplerAllowList.MustAdd("1.0.0", SamplerSignature, signature.MatchExact)
}

// Domain implements framework.Domain for the Braket D-Wave plugin
type Domain struct {
	resolver interceptors.Resolver
	logger   *slog.Logger
}

// Option configures the Domain
type Option func(*Domain)

// WithDeviceResolver sets how device names are turned into ARNs. By default
// the configured value is used as the ARN.
func WithDeviceResolver(resolver interceptors.Resolver) Option {
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

// New creates the braket domain
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
		{Kind: KindBraketDWaveSampler, Signature: SamplerSignature, AllowList: SamplerAllowList},
		dwave.EmbeddingTarget(),
	}
}

func (d *Domain) Interceptors() []framework.Plugin {
	return []framework.Plugin{
		{
			Priority: interceptors.PriorityExtract,
			Interceptor: interceptors.NewKindFilter(
				interceptors.NewExtractInterceptor("ExtractBraketSamplerInterceptor", ExtractSampler),
				KindBraketDWaveSampler,
			),
		},
		{
			Priority: interceptors.PriorityInject,
			Interceptor: interceptors.NewArgumentInjector(interceptors.InjectorConfig{
				Name:        "InjectDeviceInterceptor",
				ArgumentKey: ArgumentDeviceARN,
				Parameter:   "device_arn",
				Signatures:  map[string]signature.Signature{KindBraketDWaveSampler: SamplerSignature},
				Resolve:     d.resolver,
			}),
		},
	}
}

func (d *Domain) DryRun() framework.Plugin {
	return framework.Plugin{
		Priority:    interceptors.PriorityDryRun,
		Interceptor: interceptors.NewDryRunInterceptor(interceptors.ArgumentSelector(SamplerSignature, "s3_destination_folder")),
	}
}

// ExtractSampler records the device and result location of a sampler
func ExtractSampler(ctx context.Context, record *contracts.CallRecord) (map[string]any, error) {
	extra := make(map[string]any, 2)
	if v, ok := signature.Lookup(SamplerSignature, record.Args, record.Kwargs, "s3_destination_folder"); ok {
		extra[ExtraS3DestinationFolder] = v
	}
	if v, ok := signature.Lookup(SamplerSignature, record.Args, record.Kwargs, "device_arn"); ok && v != nil {
		extra[ExtraDeviceARN] = v
	}
	return extra, nil
}
