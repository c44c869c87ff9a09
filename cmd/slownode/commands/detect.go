package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jianzi123/slow-node/pkg/archive"
	"github.com/jianzi123/slow-node/pkg/bench"
	"github.com/jianzi123/slow-node/pkg/detect"
	"github.com/jianzi123/slow-node/pkg/hostfile"
	"github.com/jianzi123/slow-node/pkg/k8s"
	"github.com/jianzi123/slow-node/pkg/log"
	"github.com/jianzi123/slow-node/pkg/metrics"
	"github.com/jianzi123/slow-node/pkg/output"
	"github.com/jianzi123/slow-node/pkg/preflight"
	"github.com/jianzi123/slow-node/pkg/report"
	"github.com/jianzi123/slow-node/pkg/types"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find slow nodes by benchmarking node subsets",
	Long: `Run the allreduce bandwidth benchmark over subsets of the roster and
condemn nodes that drag group bandwidth below the threshold. Bisection
isolates bad nodes in O(n log n) tests; pairwise tests every node pair and
flags statistical stragglers. Mode "both" unions their verdicts.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringP("hostfile", "f", "", "MPI hostfile listing the cluster roster")
	detectCmd.Flags().String("config", "", "YAML config file (flags override file values)")
	detectCmd.Flags().StringP("mode", "m", types.ModeBisection, "Detection mode (bisection, pairwise, both)")
	detectCmd.Flags().Int("procs-per-node", types.DefaultProcsPerNode, "Benchmark processes per node")
	detectCmd.Flags().Float64("threshold", 0, "Bandwidth floor in GB/s (0 = calibrate from baseline)")
	detectCmd.Flags().Duration("timeout", types.DefaultBenchmarkTimeout, "Per-benchmark timeout")
	detectCmd.Flags().Int("max-pairs", 0, "Cap on pairwise tests (0 = full matrix)")
	detectCmd.Flags().Int64("seed", 0, "Seed for pair sampling (0 = time-based)")
	detectCmd.Flags().String("output-dir", "results", "Base directory for run artifacts")
	detectCmd.Flags().String("benchmark", "", "Benchmark binary to run instead of the configured one")
	detectCmd.Flags().Bool("skip-preflight", false, "Skip the ICMP reachability sweep")
	detectCmd.Flags().Bool("no-archive", false, "Do not record this run in the local archive")
	detectCmd.Flags().String("metrics-file", "", "Write Prometheus textfile metrics to this path")
	detectCmd.Flags().Bool("from-k8s", false, "Discover the roster from the Kubernetes API instead of a hostfile")
	detectCmd.Flags().String("node-selector", "", "Label selector filtering discovered Kubernetes nodes")
	detectCmd.Flags().Bool("include-control-plane", false, "Include control plane nodes in Kubernetes discovery")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := detectConfig(cmd)
	if err != nil {
		return err
	}

	roster, err := resolveRoster(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	logger := log.WithRunID(runID)

	runDir, err := report.CreateRunDir(cfg.OutputDir)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Starting slow node detection (run %s)\n", runID[:8])
	fmt.Printf("Mode: %s, nodes: %d, procs per node: %d\n", cfg.Mode, len(roster), cfg.ProcsPerNode)
	fmt.Printf("Artifacts: %s\n\n", runDir)

	started := time.Now()

	var preflightResults []types.ReachabilityResult
	if !cfg.SkipPreflight {
		fmt.Println("🔍 Preflight: checking node reachability...")
		preflightResults = preflight.NewPinger(0).Sweep(ctx, roster)
		unreachable := 0
		for _, result := range preflightResults {
			if !result.Reachable {
				unreachable++
				fmt.Printf("  ✗ %s unreachable (%s)\n", result.Node, result.Error)
			}
		}
		if unreachable == 0 {
			fmt.Printf("  ✓ all %d nodes reachable\n", len(roster))
		}
		fmt.Println()
	}

	var threshold *float64
	if cfg.ThresholdGBps > 0 {
		threshold = &cfg.ThresholdGBps
	}

	invoker := bench.NewMPIInvoker(cfg.Benchmark, runDir)

	var findings []*detect.Finding
	for _, method := range detectMethods(cfg.Mode) {
		factory := detect.DefaultRegistry.Get(method)
		if factory == nil {
			return fmt.Errorf("unknown detection method %q (have: %s)",
				method, strings.Join(detect.DefaultRegistry.Names(), ", "))
		}

		runner := bench.NewRunner(invoker, cfg.ProcsPerNode, cfg.Timeout, threshold)
		detector := factory(runner, roster, cfg)

		fmt.Printf("=== %s ===\n", strings.ToUpper(method))
		finding, err := detector.Detect(ctx)
		if err != nil {
			return fmt.Errorf("%s detection failed: %w", method, err)
		}
		findings = append(findings, finding)
		fmt.Println()

		// A threshold calibrated by the first method carries into the next.
		threshold = runner.Threshold()
	}

	rep := report.Build(report.BuildParams{
		RunID:     runID,
		Mode:      cfg.Mode,
		Roster:    roster,
		Threshold: threshold,
		Findings:  findings,
		Preflight: preflightResults,
		StartedAt: started,
	})

	path, err := report.Write(runDir, rep)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("report written")

	if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
		if err := archiveReport(cfg.OutputDir, rep); err != nil {
			logger.Warn().Err(err).Msg("failed to archive run")
		}
	}

	if metricsPath, _ := cmd.Flags().GetString("metrics-file"); metricsPath != "" {
		exporter := metrics.NewExporter()
		exporter.Record(rep)
		if err := exporter.WriteTextfile(metricsPath); err != nil {
			logger.Warn().Err(err).Msg("failed to write metrics")
		}
	}

	format, _ := cmd.Flags().GetString("output")
	if err := output.PrintReport(rep, format); err != nil {
		return err
	}
	fmt.Printf("\n📄 Full report: %s\n", path)

	if len(rep.BadNodes) > 0 {
		return &ExitCodeError{Code: 1}
	}
	return nil
}

// detectConfig layers flag values over the config file (or the defaults when
// no file is given). Only flags the user actually set override the file.
func detectConfig(cmd *cobra.Command) (*types.Config, error) {
	var cfg *types.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := types.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = types.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("hostfile") {
		cfg.Hostfile, _ = flags.GetString("hostfile")
	}
	if flags.Changed("mode") {
		cfg.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("procs-per-node") {
		cfg.ProcsPerNode, _ = flags.GetInt("procs-per-node")
	}
	if flags.Changed("threshold") {
		cfg.ThresholdGBps, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("max-pairs") {
		cfg.MaxPairs, _ = flags.GetInt("max-pairs")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir, _ = flags.GetString("output-dir")
	}
	if flags.Changed("skip-preflight") {
		cfg.SkipPreflight, _ = flags.GetBool("skip-preflight")
	}
	if flags.Changed("benchmark") {
		cfg.Benchmark.Command, _ = flags.GetString("benchmark")
	}

	return cfg, cfg.Validate()
}

func resolveRoster(ctx context.Context, cmd *cobra.Command, cfg *types.Config) ([]string, error) {
	if fromK8s, _ := cmd.Flags().GetBool("from-k8s"); fromK8s {
		selector, _ := cmd.Flags().GetString("node-selector")
		includeControlPlane, _ := cmd.Flags().GetBool("include-control-plane")

		clientset, err := k8s.GetClientset()
		if err != nil {
			return nil, fmt.Errorf("failed to create k8s client: %w", err)
		}

		nodes, err := k8s.DiscoverNodes(ctx, clientset, selector, includeControlPlane)
		if err != nil {
			return nil, err
		}
		if err := hostfile.Validate(nodes); err != nil {
			return nil, fmt.Errorf("kubernetes discovery: %w", err)
		}

		fmt.Printf("📡 Discovered %d nodes from Kubernetes\n", len(nodes))
		return nodes, nil
	}

	if cfg.Hostfile == "" {
		return nil, fmt.Errorf("a roster is required: pass --hostfile or --from-k8s")
	}
	return hostfile.Parse(cfg.Hostfile)
}

func detectMethods(mode string) []string {
	if mode == types.ModeBoth {
		return []string{types.ModeBisection, types.ModePairwise}
	}
	return []string{mode}
}

func archiveReport(outputDir string, rep *types.Report) error {
	arch, err := archive.Open(outputDir)
	if err != nil {
		return err
	}
	defer arch.Close()
	return arch.Put(rep)
}
