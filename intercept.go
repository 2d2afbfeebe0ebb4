// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package intercept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/glimte/intercept-go/contracts"
	"github.com/glimte/intercept-go/dispatch"
	"github.com/glimte/intercept-go/framework"
	"github.com/glimte/intercept-go/framework/braket"
	"github.com/glimte/intercept-go/framework/dwave"
	"github.com/glimte/intercept-go/framework/qiskit"
	"github.com/glimte/intercept-go/history"
	"github.com/glimte/intercept-go/runner"
)

// Client provides the main entry point for intercept-go
type Client struct {
	frameworks  *framework.Registry
	entryPoints *runner.EntryPoints
	runner      *runner.Runner
	sinks       []history.Sink
	logger      *slog.Logger
}

type clientConfig struct {
	logger   *slog.Logger
	metrics  dispatch.MetricsCollector
	sinks    []history.Sink
	validate bool
	output   io.Writer
	domains  []framework.Domain
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithLogger sets the logger used by every framework
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetricsCollector sets the collector every dispatcher reports to
func WithMetricsCollector(collector dispatch.MetricsCollector) ClientOption {
	return func(c *clientConfig) {
		c.metrics = collector
	}
}

// WithHistorySink adds a sink that receives every completed call
func WithHistorySink(sink history.Sink) ClientOption {
	return func(c *clientConfig) {
		c.sinks = append(c.sinks, sink)
	}
}

// WithArgumentValidation checks call arguments against the bound signature
func WithArgumentValidation(enabled bool) ClientOption {
	return func(c *clientConfig) {
		c.validate = enabled
	}
}

// WithOutput sets where run reports are printed
func WithOutput(w io.Writer) ClientOption {
	return func(c *clientConfig) {
		c.output = w
	}
}

// WithDomain registers an additional framework domain
func WithDomain(domain framework.Domain) ClientOption {
	return func(c *clientConfig) {
		c.domains = append(c.domains, domain)
	}
}

// NewClient creates a client with the qiskit, dwave and Braket domains registered
func NewClient(options ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		logger: slog.Default(),
		output: os.Stdout,
	}
	for _, opt := range options {
		opt(cfg)
	}

	domains := []framework.Domain{
		qiskit.New(qiskit.WithLogger(cfg.logger)),
		dwave.New(dwave.WithLogger(cfg.logger)),
		braket.New(braket.WithLogger(cfg.logger)),
	}
	domains = append(domains, cfg.domains...)

	frameworks := framework.NewRegistry(framework.WithRegistryLogger(cfg.logger))
	for _, d := range domains {
		if err := frameworks.Register(d.Name(), newFactory(d, cfg)); err != nil {
			return nil, fmt.Errorf("failed to register framework %s: %w", d.Name(), err)
		}
	}

	entryPoints := runner.NewEntryPoints()
	return &Client{
		frameworks:  frameworks,
		entryPoints: entryPoints,
		runner:      runner.New(frameworks, entryPoints, runner.WithOutput(cfg.output), runner.WithRunnerLogger(cfg.logger)),
		sinks:       cfg.sinks,
		logger:      cfg.logger,
	}, nil
}

// newFactory builds each framework with its own history so domains never
// see each other's calls.
func newFactory(d framework.Domain, cfg *clientConfig) framework.Factory {
	return func() (*framework.Framework, error) {
		historyOpts := []history.InMemoryOption{history.WithHistoryLogger(cfg.logger)}
		for _, sink := range cfg.sinks {
			historyOpts = append(historyOpts, history.WithSink(sink))
		}

		dispatchOpts := []dispatch.DispatcherOption{
			dispatch.WithHistory(history.NewInMemory(historyOpts...)),
			dispatch.WithArgumentValidation(cfg.validate),
		}
		if cfg.metrics != nil {
			dispatchOpts = append(dispatchOpts, dispatch.WithMetricsCollector(cfg.metrics))
		}

		return framework.New(d,
			framework.WithFrameworkLogger(cfg.logger),
			framework.WithDispatcherOptions(dispatchOpts...),
		), nil
	}
}

// Frameworks returns the framework registry
func (c *Client) Frameworks() *framework.Registry {
	return c.frameworks
}

// Framework resolves a framework by name
func (c *Client) Framework(name string) (*framework.Framework, error) {
	return c.frameworks.Resolve(name)
}

// Supported returns the registered framework names
func (c *Client) Supported() []string {
	return c.frameworks.Supported()
}

// EntryPoints returns the entry point table
func (c *Client) EntryPoints() *runner.EntryPoints {
	return c.entryPoints
}

// RegisterEntryPoint makes host code runnable under name
func (c *Client) RegisterEntryPoint(name string, fn runner.EntryFunc) error {
	return c.entryPoints.Register(name, fn)
}

// Run runs an entry point with the framework's interception in place
func (c *Client) Run(ctx context.Context, opts runner.Options) (any, error) {
	return c.runner.Run(ctx, opts)
}

// ExecutionHistory returns the completed calls of a framework
func (c *Client) ExecutionHistory(name string) ([]contracts.ExecutionResult, error) {
	return c.frameworks.ExecutionHistory(name)
}

// Close closes every history sink that holds resources
func (c *Client) Close() error {
	var errs []error
	for _, sink := range c.sinks {
		if closer, ok := sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		c.logger.Error("failed to close history sinks", "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}
