// Package config loads run configuration from YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Config is the run configuration. Every field can be overridden by a CLI flag.
type Config struct {
	Framework string `yaml:"framework" json:"framework"`

	EntryPoint          string `yaml:"entryPoint" json:"entryPoint"`
	EntryPointArguments string `yaml:"entryPointArguments" json:"entryPointArguments"`

	// InterceptorArguments are the pipeline arguments handed to every interceptor
	InterceptorArguments map[string]any `yaml:"interceptorArguments" json:"interceptorArguments"`

	Intercept  bool   `yaml:"intercept" json:"intercept"`
	DryRun     bool   `yaml:"dryRun" json:"dryRun"`
	Quiet      bool   `yaml:"quiet" json:"quiet"`
	ResultFile string `yaml:"resultFile" json:"resultFile"`
	LogLevel   string `yaml:"logLevel" json:"logLevel"`

	ValidateArguments bool `yaml:"validateArguments" json:"validateArguments"`

	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	AMQP    AMQPConfig    `yaml:"amqp" json:"amqp"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables the endpoint
	Addr string `yaml:"addr" json:"addr"`
}

// AMQPConfig configures publishing of completed calls
type AMQPConfig struct {
	// URL of the broker; empty disables publishing
	URL      string `yaml:"url" json:"url"`
	Exchange string `yaml:"exchange" json:"exchange"`
	// Retries is how often a failed publish is repeated
	Retries int `yaml:"retries" json:"retries"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Framework:            "qiskit",
		InterceptorArguments: map[string]any{},
		Intercept:            true,
		ResultFile:           "run_result.json",
		LogLevel:             "info",
		AMQP:                 AMQPConfig{Exchange: "intercept.calls", Retries: 3},
	}
}

// Load reads path on top of the defaults. The format follows the file
// extension: .json is JSON, anything else YAML. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := Parse(data, filepath.Ext(path), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg according to ext
func Parse(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".json":
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, cfg); err != nil {
			return err
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return err
		}
	}

	if cfg.InterceptorArguments == nil {
		cfg.InterceptorArguments = map[string]any{}
	}
	return cfg.Validate()
}

// Validate checks values that cannot be corrected later
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Framework) == "" {
		return errors.New("framework must not be empty")
	}
	if c.DryRun && !c.Intercept {
		return errors.New("dryRun requires intercept")
	}
	if c.AMQP.Retries < 0 {
		return errors.New("amqp.retries must not be negative")
	}
	return nil
}
