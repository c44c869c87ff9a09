package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Detection modes accepted by the detect command.
const (
	ModeBisection = "bisection"
	ModePairwise  = "pairwise"
	ModeBoth      = "both"
)

const (
	// DefaultProcsPerNode matches the usual accelerator count per host.
	DefaultProcsPerNode = 8

	// DefaultBenchmarkTimeout bounds a single benchmark invocation.
	DefaultBenchmarkTimeout = 300 * time.Second
)

// BenchmarkConfig describes how the external bandwidth benchmark is invoked.
type BenchmarkConfig struct {
	// Launcher is the MPI launcher binary, mpirun by default.
	Launcher string `yaml:"launcher"`
	// Command is the benchmark binary executed on every rank.
	Command string `yaml:"command"`
	// Args are passed to the benchmark binary verbatim.
	Args []string `yaml:"args"`
	// Env entries are exported to every rank (KEY=VALUE).
	Env []string `yaml:"env"`
}

// Config holds a full detection run configuration. Flags override anything
// loaded from a YAML file.
type Config struct {
	Mode          string          `yaml:"mode"`
	Hostfile      string          `yaml:"hostfile"`
	ProcsPerNode  int             `yaml:"procs_per_node"`
	ThresholdGBps float64         `yaml:"threshold_gb_s"`
	Timeout       time.Duration   `yaml:"timeout"`
	MaxPairs      int             `yaml:"max_pairs"`
	Seed          int64           `yaml:"seed"`
	OutputDir     string          `yaml:"output_dir"`
	SkipPreflight bool            `yaml:"skip_preflight"`
	Benchmark     BenchmarkConfig `yaml:"benchmark"`
}

// DefaultConfig returns a config with the documented defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeBisection,
		ProcsPerNode: DefaultProcsPerNode,
		Timeout:      DefaultBenchmarkTimeout,
		OutputDir:    "results",
		Benchmark: BenchmarkConfig{
			Launcher: "mpirun",
			Command:  "/usr/local/bin/all_reduce_perf",
			Args:     []string{"-b", "1G", "-e", "1G", "-f", "2", "-g", "1", "-c", "1", "-n", "20"},
			Env: []string{
				"NCCL_DEBUG=WARN",
				"NCCL_IB_DISABLE=0",
				"LD_LIBRARY_PATH",
			},
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the detectors cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBisection, ModePairwise, ModeBoth:
	default:
		return fmt.Errorf("unknown mode %q (want bisection, pairwise or both)", c.Mode)
	}

	if c.ProcsPerNode < 1 {
		return fmt.Errorf("procs_per_node must be at least 1, got %d", c.ProcsPerNode)
	}

	if c.ThresholdGBps < 0 {
		return fmt.Errorf("threshold_gb_s must not be negative, got %g", c.ThresholdGBps)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	if c.MaxPairs < 0 {
		return fmt.Errorf("max_pairs must not be negative, got %d", c.MaxPairs)
	}

	return nil
}
