package interceptors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/signature"
)

// ExtraData keys written by the built-in interceptors
const (
	ExtraReplacedBackend = "replaced_backend"
	ExtraInjectedBackend = "injected_backend"
)

// LoggingInterceptor logs both phases of every call
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{logger: logger}
}

// BeforeCall implements BeforeCallInterceptor
func (i *LoggingInterceptor) BeforeCall(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
	i.logger.Info("intercepted call",
		"callId", record.ID,
		"targetKind", record.TargetKind,
		"args", len(record.Args),
		"kwargs", len(record.Kwargs),
	)
	return nil, nil
}

// AfterCall implements AfterCallInterceptor
func (i *LoggingInterceptor) AfterCall(ctx context.Context, result any, record *contracts.CallRecord) (*contracts.CallRecord, error) {
	i.logger.Info("call completed",
		"callId", record.ID,
		"targetKind", record.TargetKind,
		"resultType", fmt.Sprintf("%T", result),
	)
	return nil, nil
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// Extractor derives values from a call; each returned entry is stored in ExtraData
type Extractor func(ctx context.Context, record *contracts.CallRecord) (map[string]any, error)

// ExtractInterceptor stores derived call data in ExtraData for later
// interceptors and the final analysis
type ExtractInterceptor struct {
	name    string
	extract Extractor
}

// NewExtractInterceptor creates a new extract interceptor
func NewExtractInterceptor(name string, extract Extractor) *ExtractInterceptor {
	return &ExtractInterceptor{name: name, extract: extract}
}

// BeforeCall implements BeforeCallInterceptor
func (i *ExtractInterceptor) BeforeCall(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
	values, err := i.extract(ctx, record)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		record.SetExtra(k, v)
	}
	return record, nil
}

// Name implements Interceptor
func (i *ExtractInterceptor) Name() string {
	return i.name
}

// Resolver turns the configured name of a backend into the value handed to the original callable
type Resolver func(ctx context.Context, name string) (any, error)

// InjectorConfig configures an ArgumentInjector
type InjectorConfig struct {
	// Name of the interceptor
	Name string
	// ArgumentKey is the pipeline argument holding the backend name
	ArgumentKey string
	// Parameter is the call parameter that receives the resolved value
	Parameter string
	// Signatures maps target kinds to their signatures; other kinds are skipped
	Signatures map[string]signature.Signature
	// Resolve maps the configured name to a value; nil passes the name through
	Resolve Resolver
}

// ArgumentInjector replaces one call argument with a value selected through
// the pipeline arguments. The replaced value is kept in ExtraData.
type ArgumentInjector struct {
	config InjectorConfig
}

// NewArgumentInjector creates a new argument injector
func NewArgumentInjector(config InjectorConfig) *ArgumentInjector {
	if config.Name == "" {
		config.Name = "ArgumentInjector"
	}
	return &ArgumentInjector{config: config}
}

// BeforeCall implements BeforeCallInterceptor
func (i *ArgumentInjector) BeforeCall(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
	sig, ok := i.config.Signatures[record.TargetKind]
	if !ok {
		return record, nil
	}

	var name string
	found, err := DecodeArgument(record.PipelineArguments, i.config.ArgumentKey, &name)
	if err != nil {
		return nil, err
	}
	if !found || name == "" {
		return record, nil
	}

	var injected any = name
	if i.config.Resolve != nil {
		injected, err = i.config.Resolve(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s %q: %w", i.config.ArgumentKey, name, err)
		}
	}

	if record.Kwargs == nil {
		record.Kwargs = make(map[string]any)
	}
	args, old, replaced := signature.Replace(sig, record.Args, record.Kwargs, i.config.Parameter, injected)
	record.Args = args
	if replaced && old != nil {
		record.SetExtra(ExtraReplacedBackend, old)
	}
	record.SetExtra(ExtraInjectedBackend, name)

	return record, nil
}

// Name implements Interceptor
func (i *ArgumentInjector) Name() string {
	return i.config.Name
}

// ResultSelector picks the substitute result of a terminated call
type ResultSelector func(record *contracts.CallRecord) any

// FirstArgument selects the first positional argument, or nil
func FirstArgument(record *contracts.CallRecord) any {
	if len(record.Args) == 0 {
		return nil
	}
	return record.Args[0]
}

// ArgumentSelector selects the named argument, falling back to the first positional one
func ArgumentSelector(sig signature.Signature, name string) ResultSelector {
	return func(record *contracts.CallRecord) any {
		if v, ok := signature.Lookup(sig, record.Args, record.Kwargs, name); ok && v != nil {
			return v
		}
		return FirstArgument(record)
	}
}

// DryRunInterceptor terminates every call without reaching the original
type DryRunInterceptor struct {
	selector ResultSelector
}

// NewDryRunInterceptor creates a dry run interceptor; a nil selector uses FirstArgument
func NewDryRunInterceptor(selector ResultSelector) *DryRunInterceptor {
	if selector == nil {
		selector = FirstArgument
	}
	return &DryRunInterceptor{selector: selector}
}

// BeforeCall implements BeforeCallInterceptor
func (i *DryRunInterceptor) BeforeCall(ctx context.Context, record *contracts.CallRecord) (*contracts.CallRecord, error) {
	record.Terminate(i.selector(record))
	return record, nil
}

// Name implements Interceptor
func (i *DryRunInterceptor) Name() string {
	return "DryRunInterceptor"
}
