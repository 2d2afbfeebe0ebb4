package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/framework"
)

// DefaultResultPath is where the final result is written
const DefaultResultPath = "run_result.json"

// Options configures one run
type Options struct {
	Framework            string
	EntryPoint           string
	EntryPointArguments  contracts.CallArguments
	InterceptorArguments map[string]any
	Intercept            bool
	DryRun               bool
	// Quiet suppresses the runner's own output. Host code output is untouched.
	Quiet      bool
	ResultPath string

	// Originals are the host framework callables, keyed by target kind
	Originals map[string]framework.Original
}

// Runner runs entry points against a framework registry
type Runner struct {
	frameworks  *framework.Registry
	entryPoints *EntryPoints
	out         io.Writer
	logger      *slog.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithOutput sets where the runner prints its report
func WithOutput(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.out = w
	}
}

// WithRunnerLogger sets the logger
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a runner
func New(frameworks *framework.Registry, entryPoints *EntryPoints, opts ...RunnerOption) *Runner {
	r := &Runner{
		frameworks:  frameworks,
		entryPoints: entryPoints,
		out:         os.Stdout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads the framework's interceptors, binds the originals when
// intercepting and runs the entry point. A terminated call ends the run
// without error and is reported as interrupted. The execution history is
// analyzed whether or not the entry point failed.
func (r *Runner) Run(ctx context.Context, opts Options) (result any, err error) {
	out := r.out
	if opts.Quiet {
		out = io.Discard
	}

	ep, err := ParseEntryPoint(opts.EntryPoint)
	if err != nil {
		return nil, err
	}
	fn, err := r.entryPoints.Lookup(ep)
	if err != nil {
		return nil, err
	}

	fw, err := r.frameworks.Resolve(opts.Framework)
	if err != nil {
		if errors.Is(err, contracts.ErrFrameworkNotSupported) {
			fmt.Fprintf(out, "No interceptor for framework %s found. Available frameworks are: [%s]\n",
				strings.ToUpper(opts.Framework), strings.Join(r.frameworks.Supported(), ", "))
		}
		return nil, err
	}

	if opts.InterceptorArguments != nil {
		fw.SetPipelineArguments(opts.InterceptorArguments)
	}

	if opts.Intercept {
		fmt.Fprintln(out, "Intercepting framework function.")
	} else {
		fmt.Fprintln(out, "Running without intercepting framework function.")
	}
	if opts.DryRun {
		fmt.Fprintln(out, "Performing dry run.")
	}

	if err := r.prepare(fw, opts); err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "Running user code %q.\n", ep.String())
	r.logger.Info("running entry point",
		"entryPoint", ep.String(),
		"framework", fw.Name(),
		"intercept", opts.Intercept,
		"dryRun", opts.DryRun)

	resultPath := opts.ResultPath
	if resultPath == "" {
		resultPath = DefaultResultPath
	}
	defer func() {
		if analyzeErr := AnalyzeResults(out, fw.ExecutionHistory(), result, resultPath); analyzeErr != nil {
			r.logger.Error("failed to write result", "path", resultPath, "error", analyzeErr)
			if err == nil {
				err = analyzeErr
			}
		}
	}()

	env := NewEnvironment(fw, opts.Originals, opts.Intercept)
	args, kwargs := opts.EntryPointArguments.Args, opts.EntryPointArguments.Kwargs
	if ep.Method == "" {
		// main-style entry points take no arguments
		args, kwargs = nil, nil
	}
	if kwargs == nil {
		kwargs = make(map[string]any)
	}

	result, err = fn(ctx, env, args, kwargs)
	if record, ok := contracts.GetInterruptedRecord(err); ok {
		AnalyzeInterrupted(out, record)
		r.logger.Info("entry point interrupted", "targetKind", record.TargetKind, "callId", record.ID)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("entry point failed", "entryPoint", ep.String(), "error", err)
		return nil, err
	}
	return result, nil
}

func (r *Runner) prepare(fw *framework.Framework, opts Options) error {
	if err := fw.LoadInterceptors(); err != nil {
		return err
	}
	if opts.Intercept {
		if err := fw.Patch(opts.Originals); err != nil {
			return err
		}
	}
	if opts.DryRun {
		if err := fw.LoadDryRun(); err != nil {
			return err
		}
	}
	return nil
}
