package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jianzi123/slow-node/pkg/archive"
	"github.com/jianzi123/slow-node/pkg/types"
)

func PrintReport(rep *types.Report, format string) error {
	switch format {
	case "json":
		return printJSON(rep)
	case "yaml":
		return printYAML(rep)
	case "table":
		return printReportTable(rep)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func PrintHistory(summaries []archive.Summary, format string) error {
	switch format {
	case "json":
		return printJSON(summaries)
	case "yaml":
		return printYAML(summaries)
	case "table":
		return printHistoryTable(summaries)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func PrintOutliers(analysis *types.OutlierAnalysis, format string) error {
	switch format {
	case "json":
		return printJSON(analysis)
	case "yaml":
		return printYAML(analysis)
	case "table":
		return printOutliersTable(analysis)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printYAML(v interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(v)
}

// nodeColumnWidth returns the width needed to show every name without
// truncation, with a floor so short names don't look cramped.
func nodeColumnWidth(names []string, header string) int {
	const minWidth = 6
	width := minWidth
	if len(header) > width {
		width = len(header)
	}
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	return width
}

func formatBandwidth(bw *float64) string {
	if bw == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f GB/s", *bw)
}

func printReportTable(rep *types.Report) error {
	fmt.Printf("Slow Node Detection Report\n")
	fmt.Printf("==========================\n\n")
	fmt.Printf("Run ID:    %s\n", rep.RunID)
	fmt.Printf("Mode:      %s\n", rep.Mode)
	fmt.Printf("Nodes:     %d\n", rep.TotalNodes)
	fmt.Printf("Tests:     %d\n", rep.TotalTests)
	fmt.Printf("Duration:  %.1fs\n", rep.DurationSeconds)
	if rep.ThresholdGBps != nil {
		fmt.Printf("Threshold: %.1f GB/s\n", *rep.ThresholdGBps)
	}

	if unreachable := unreachableNodes(rep.Preflight); len(unreachable) > 0 {
		fmt.Printf("\nUnreachable during preflight: %s\n", strings.Join(unreachable, ", "))
	}

	if len(rep.TestHistory) > 0 {
		names := make([]string, 0, len(rep.TestHistory))
		for _, result := range rep.TestHistory {
			names = append(names, result.TestName)
		}
		testWidth := nodeColumnWidth(names, "Test")

		fmt.Printf("\nTEST HISTORY\n")
		fmt.Println(strings.Repeat("-", testWidth+3+5+3+14+3+10))
		fmt.Printf("%-*s   %5s   %-14s   %s\n", testWidth, "Test", "Nodes", "Bandwidth", "Status")
		for _, result := range rep.TestHistory {
			status := "✓ GOOD"
			if !result.IsGood {
				status = "✗ BAD"
			}
			fmt.Printf("%-*s   %5d   %-14s   %s\n",
				testWidth, result.TestName, result.NodeCount, formatBandwidth(result.BandwidthGBps), status)
			if result.Error != "" {
				fmt.Printf("%-*s   Error: %s\n", testWidth, "", result.Error)
			}
		}
	}

	if rep.Pairwise != nil {
		printPairwiseSection(rep.Pairwise)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	if len(rep.BadNodes) == 0 {
		fmt.Printf("All %d nodes healthy\n", rep.TotalNodes)
	} else {
		fmt.Printf("Bad nodes (%d): %s\n", len(rep.BadNodes), strings.Join(rep.BadNodes, ", "))
		fmt.Printf("Good nodes: %d\n", len(rep.GoodNodes))
	}

	return nil
}

func printPairwiseSection(pw *types.PairwiseReport) {
	nodes := make([]string, 0, len(pw.NodeStatistics))
	for node := range pw.NodeStatistics {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	if len(nodes) > 0 {
		nodeWidth := nodeColumnWidth(nodes, "Node")

		fmt.Printf("\nNODE STATISTICS (%d/%d pairs tested)\n", pw.TestedPairs, pw.TotalPairs)
		fmt.Println(strings.Repeat("-", nodeWidth+3+12+3+10+3+8+3+8))
		fmt.Printf("%-*s   %-12s   %-10s   %-8s   %s\n", nodeWidth, "Node", "Avg GB/s", "Std", "Tests", "Failures")
		for _, node := range nodes {
			stats := pw.NodeStatistics[node]
			fmt.Printf("%-*s   %-12.2f   %-10.2f   %-8d   %d (%.0f%%)\n",
				nodeWidth, node, stats.AverageBandwidthGBps, stats.StdBandwidthGBps,
				stats.TotalTests, stats.FailureCount, stats.FailureRate*100)
		}
		fmt.Printf("\nCluster mean: %.2f GB/s (std %.2f, low-bandwidth cutoff %.2f)\n",
			pw.OverallMeanBandwidth, pw.OverallStdBandwidth, pw.ThresholdBandwidth)
	}

	if len(pw.ProblematicNodes) > 0 {
		fmt.Printf("\nPROBLEMATIC NODES\n")
		for _, problem := range pw.ProblematicNodes {
			fmt.Printf("✗ %s: %s (avg %.2f GB/s, failure rate %.0f%%)\n",
				problem.Node, problem.Reason, problem.AverageBandwidthGBps, problem.FailureRate*100)
		}
	}
}

func printHistoryTable(summaries []archive.Summary) error {
	if len(summaries) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	ids := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.RunID)
	}
	idWidth := nodeColumnWidth(ids, "Run ID")

	fmt.Printf("%-*s   %-20s   %-9s   %5s   %5s   %s\n", idWidth, "Run ID", "Timestamp", "Mode", "Nodes", "Tests", "Bad Nodes")
	fmt.Println(strings.Repeat("-", idWidth+3+20+3+9+3+5+3+5+3+12))
	for _, summary := range summaries {
		bad := "-"
		if len(summary.BadNodes) > 0 {
			bad = strings.Join(summary.BadNodes, ", ")
		}
		fmt.Printf("%-*s   %-20s   %-9s   %5d   %5d   %s\n",
			idWidth, summary.RunID, summary.Timestamp.Format("2006-01-02 15:04:05"),
			summary.Mode, summary.TotalNodes, summary.TotalTests, bad)
	}

	return nil
}

func printOutliersTable(analysis *types.OutlierAnalysis) error {
	fmt.Printf("Outlier Analysis\n")
	fmt.Printf("================\n\n")
	fmt.Printf("Samples: %d\n", analysis.Samples)
	fmt.Printf("Mean:    %.2f GB/s\n", analysis.Mean)
	fmt.Printf("Std:     %.2f GB/s\n", analysis.Std)

	printNodeList := func(label string, nodes []string) {
		if len(nodes) == 0 {
			fmt.Printf("%s none\n", label)
			return
		}
		fmt.Printf("%s %s\n", label, strings.Join(nodes, ", "))
	}

	fmt.Println()
	printNodeList("Z-score outliers:       ", analysis.ZScoreOutliers)
	printNodeList("IQR outliers:           ", analysis.IQROutliers)

	fmt.Println()
	if len(analysis.HighConfidence) == 0 && len(analysis.MediumOnly) == 0 {
		fmt.Println("No outliers detected.")
		return nil
	}
	for _, node := range analysis.HighConfidence {
		fmt.Printf("✗ %s (high confidence: flagged by both methods)\n", node)
	}
	for _, node := range analysis.MediumOnly {
		fmt.Printf("? %s (medium confidence: flagged by one method)\n", node)
	}

	return nil
}

func unreachableNodes(preflight []types.ReachabilityResult) []string {
	var unreachable []string
	for _, result := range preflight {
		if !result.Reachable {
			unreachable = append(unreachable, result.Node)
		}
	}
	return unreachable
}
