package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	intercept "github.com/glimte/intercept-go"
	"github.com/glimte/intercept-go/config"
	"github.com/glimte/intercept-go/internal/reliability"
	"github.com/glimte/intercept-go/internal/logging"
	"github.com/glimte/intercept-go/monitor"
	"github.com/glimte/intercept-go/runner"
	"github.com/glimte/intercept-go/transports/rabbitmq"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configPath           string
	entryPoint           string
	entryPointArguments  string
	interceptorArguments string
	framework            string
	noIntercept          bool
	dryRun               bool
	quiet                bool
	logLevel             string
	resultFile           string
	validateArguments    bool
	metricsAddr          string
	amqpURL              string
	amqpExchange         string
}

func newRootCommand() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "intercept",
		Short: "Run host code with quantum framework calls intercepted",
		Long: `intercept runs an entry point with the calls into a quantum framework
routed through an interceptor pipeline. Interceptors can inspect calls, swap
the backend or solver, and stop a call before it reaches the framework.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &f, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fl := rootCmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML or JSON configuration file")
	fl.StringVarP(&f.entryPoint, "entry-point", "e", "", "Entry point in the form path/to/package:method")
	fl.StringVar(&f.entryPointArguments, "entry-point-arguments", "", "JSON arguments for the entry point")
	fl.StringVar(&f.interceptorArguments, "interceptor-arguments", "", "JSON object handed to every interceptor")
	fl.StringVarP(&f.framework, "framework", "f", "qiskit", "Framework to intercept")
	fl.BoolVar(&f.noIntercept, "no-intercept", false, "Run the entry point without interception")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Stop every intercepted call before it reaches the framework")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress the run report and logging")
	fl.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fl.StringVar(&f.resultFile, "result-file", runner.DefaultResultPath, "File the final result is written to")
	fl.BoolVar(&f.validateArguments, "validate-arguments", false, "Check call arguments against the bound signature")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fl.StringVar(&f.amqpURL, "amqp-url", "", "Publish completed calls to this RabbitMQ broker")
	fl.StringVar(&f.amqpExchange, "amqp-exchange", rabbitmq.DefaultExchange, "Exchange completed calls are published to")

	return rootCmd
}

// applyFlags overrides the configuration with every flag set on the command line
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("entry-point") {
		cfg.EntryPoint = f.entryPoint
	}
	if changed("entry-point-arguments") {
		cfg.EntryPointArguments = f.entryPointArguments
	}
	if changed("interceptor-arguments") {
		args, err := runner.ParseInterceptorArguments(f.interceptorArguments)
		if err != nil {
			return fmt.Errorf("invalid --interceptor-arguments: %w", err)
		}
		cfg.InterceptorArguments = args
	}
	if changed("framework") {
		cfg.Framework = f.framework
	}
	if changed("no-intercept") {
		cfg.Intercept = !f.noIntercept
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if changed("quiet") {
		cfg.Quiet = f.quiet
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("result-file") {
		cfg.ResultFile = f.resultFile
	}
	if changed("validate-arguments") {
		cfg.ValidateArguments = f.validateArguments
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if changed("amqp-url") {
		cfg.AMQP.URL = f.amqpURL
	}
	if changed("amqp-exchange") {
		cfg.AMQP.Exchange = f.amqpExchange
	}

	if cfg.EntryPoint == "" {
		return fmt.Errorf("an entry point is required")
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewWriter(stderr, level)
	if cfg.Quiet {
		logger = logging.NewNop()
	}

	summary := monitor.NewSimpleMetricsCollector()
	collectors := monitor.Multi{summary}
	if cfg.Metrics.Addr != "" {
		metrics := monitor.NewMetrics()
		collectors = append(collectors, metrics)
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	opts := []intercept.ClientOption{
		intercept.WithLogger(logger),
		intercept.WithOutput(stdout),
		intercept.WithMetricsCollector(collectors),
		intercept.WithArgumentValidation(cfg.ValidateArguments),
	}
	if cfg.AMQP.URL != "" {
		publisher, err := rabbitmq.Dial(cfg.AMQP.URL,
			rabbitmq.WithExchange(cfg.AMQP.Exchange),
			rabbitmq.WithPublisherLogger(logger),
			rabbitmq.WithRetryPolicy(reliability.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2.0, cfg.AMQP.Retries)),
			rabbitmq.WithCircuitBreaker(reliability.NewCircuitBreaker(
				reliability.WithName("amqp"),
				reliability.WithFailureThreshold(3),
				reliability.WithBreakerLogger(logger))))
		if err != nil {
			return err
		}
		opts = append(opts, intercept.WithHistorySink(publisher))
	}

	client, err := intercept.NewClient(opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := registerExamples(client); err != nil {
		return err
	}

	entryArgs, err := runner.ParseEntryPointArguments(cfg.EntryPointArguments)
	if err != nil {
		return fmt.Errorf("invalid entry point arguments: %w", err)
	}

	_, err = client.Run(ctx, runner.Options{
		Framework:            cfg.Framework,
		EntryPoint:           cfg.EntryPoint,
		EntryPointArguments:  entryArgs,
		InterceptorArguments: cfg.InterceptorArguments,
		Intercept:            cfg.Intercept,
		DryRun:               cfg.DryRun,
		Quiet:                cfg.Quiet,
		ResultPath:           cfg.ResultFile,
		Originals:            exampleOriginals(cfg.Framework),
	})

	for kind, stats := range summary.GetMetricsSummary().DispatchStats {
		logger.Debug("dispatch stats", "target", kind, "count", stats.Count, "avg", stats.Avg, "max", stats.Max)
	}
	return err
}
