package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jianzi123/slow-node/pkg/bench"
	"github.com/jianzi123/slow-node/pkg/output"
	"github.com/jianzi123/slow-node/pkg/report"
	"github.com/jianzi123/slow-node/pkg/stats"
	"github.com/jianzi123/slow-node/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [report.json]",
	Short: "Re-analyze a saved report or raw benchmark log for outliers",
	Long: `Load a saved detection report (per-node average bandwidths) or a raw
benchmark log (per-row bus bandwidth samples, --raw) and look for outliers
with two independent methods: Z-score (samples beyond 2 standard deviations
from the mean) and IQR (samples outside the Tukey fences). A sample flagged
by both methods is a high confidence outlier; one method alone is medium.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("report", "", "Path to a report.json from a past run")
	analyzeCmd.Flags().String("raw", "", "Path to a raw benchmark log instead of a report")
	analyzeCmd.Flags().Float64("zscore-threshold", stats.DefaultZScoreThreshold, "Z-score threshold")
	analyzeCmd.Flags().Float64("iqr-multiplier", stats.DefaultIQRMultiplier, "IQR fence multiplier")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("report")
	if len(args) == 1 {
		path = args[0]
	}
	raw, _ := cmd.Flags().GetString("raw")

	var labels []string
	var samples []float64
	switch {
	case raw != "" && path != "":
		return fmt.Errorf("pass a report or --raw, not both")
	case raw != "":
		data, err := os.ReadFile(raw)
		if err != nil {
			return fmt.Errorf("reading benchmark log: %w", err)
		}
		samples = bench.ParseBandwidthSamples(data)
		if len(samples) == 0 {
			return fmt.Errorf("%s contains no benchmark bandwidth rows", raw)
		}
		labels = sampleLabels(len(samples))
	case path != "":
		rep, err := report.Read(path)
		if err != nil {
			return err
		}
		labels, samples = extractNodeBandwidths(rep)
		if len(samples) == 0 {
			return fmt.Errorf("report %s contains no per-node bandwidth samples", path)
		}
	default:
		return fmt.Errorf("an input is required: pass a report path, --report or --raw")
	}

	zThreshold, _ := cmd.Flags().GetFloat64("zscore-threshold")
	iqrMultiplier, _ := cmd.Flags().GetFloat64("iqr-multiplier")

	zIdx := stats.ZScoreOutliers(samples, zThreshold)
	iqrIdx := stats.IQROutliers(samples, iqrMultiplier)

	analysis := &types.OutlierAnalysis{
		Samples:        len(samples),
		Mean:           stats.Mean(samples),
		Std:            stats.StdDev(samples),
		ZScoreOutliers: nodeNames(labels, zIdx),
		IQROutliers:    nodeNames(labels, iqrIdx),
	}
	for idx, confidence := range stats.Classify(zIdx, iqrIdx) {
		if confidence == stats.ConfidenceHigh {
			analysis.HighConfidence = append(analysis.HighConfidence, labels[idx])
		} else {
			analysis.MediumOnly = append(analysis.MediumOnly, labels[idx])
		}
	}
	sort.Strings(analysis.HighConfidence)
	sort.Strings(analysis.MediumOnly)

	format, _ := cmd.Flags().GetString("output")
	if err := output.PrintOutliers(analysis, format); err != nil {
		return err
	}

	if len(analysis.HighConfidence) > 0 {
		return &ExitCodeError{Code: 1}
	}
	return nil
}

// extractNodeBandwidths pulls one bandwidth sample per node out of a report,
// in sorted node order. Pairwise statistics are the richest source; without
// them, single-node tests from the history serve (latest value wins).
func extractNodeBandwidths(rep *types.Report) ([]string, []float64) {
	byNode := make(map[string]float64)

	if rep.Pairwise != nil && len(rep.Pairwise.NodeStatistics) > 0 {
		for node, nodeStats := range rep.Pairwise.NodeStatistics {
			byNode[node] = nodeStats.AverageBandwidthGBps
		}
	} else {
		for _, result := range rep.TestHistory {
			if result.NodeCount == 1 && result.BandwidthGBps != nil {
				byNode[result.Nodes[0]] = *result.BandwidthGBps
			}
		}
	}

	nodes := make([]string, 0, len(byNode))
	for node := range byNode {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	samples := make([]float64, len(nodes))
	for i, node := range nodes {
		samples[i] = byNode[node]
	}
	return nodes, samples
}

// sampleLabels numbers raw log rows. Zero padding keeps the sorted output
// lists in row order.
func sampleLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("sample-%03d", i+1)
	}
	return labels
}

func nodeNames(nodes []string, indices []int) []string {
	if len(indices) == 0 {
		return nil
	}
	names := make([]string, len(indices))
	for i, idx := range indices {
		names[i] = nodes[idx]
	}
	sort.Strings(names)
	return names
}
