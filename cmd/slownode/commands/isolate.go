package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jianzi123/slow-node/pkg/archive"
	"github.com/jianzi123/slow-node/pkg/detect"
	"github.com/jianzi123/slow-node/pkg/isolate"
	"github.com/jianzi123/slow-node/pkg/k8s"
	"github.com/jianzi123/slow-node/pkg/report"
	"github.com/jianzi123/slow-node/pkg/types"
)

var isolateCmd = &cobra.Command{
	Use:   "isolate",
	Short: "Generate scheduler exclusions for condemned nodes",
	Long: `Take the condemned nodes from a detection report, an archived run or an
explicit list, and keep workloads off them: comment them out of an MPI
hostfile, emit a Slurm exclude directive, emit a Kubernetes node affinity
snippet, or cordon them directly. Without action flags the directives are
printed as suggestions. Any pass that isolates nodes also writes an
isolation summary JSON.`,
	RunE: runIsolate,
}

func init() {
	isolateCmd.Flags().String("report", "", "Path to a report.json (default: <output-dir>/latest/report.json)")
	isolateCmd.Flags().String("run", "", "Archived run ID to take condemned nodes from")
	isolateCmd.Flags().StringSlice("nodes", nil, "Extra nodes to isolate in addition to the reported set")
	isolateCmd.Flags().String("output-dir", "results", "Base directory holding run artifacts")
	isolateCmd.Flags().String("hostfile", "", "Hostfile to rewrite (condemned lines commented out)")
	isolateCmd.Flags().String("out", "", "Write the rewritten hostfile here instead of in place")
	isolateCmd.Flags().Bool("no-backup", false, "Skip the backup copy on in-place hostfile rewrites")
	isolateCmd.Flags().Bool("slurm", false, "Print a Slurm exclude directive")
	isolateCmd.Flags().Bool("k8s-affinity", false, "Print a Kubernetes node affinity snippet")
	isolateCmd.Flags().Bool("cordon", false, "Cordon the condemned nodes via the Kubernetes API")
	isolateCmd.Flags().String("summary", "", "Isolation summary path (default: <output-dir>/isolation-<timestamp>.json)")
}

func runIsolate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	flags := cmd.Flags()

	outputDir, _ := flags.GetString("output-dir")
	reportPath, _ := flags.GetString("report")
	runID, _ := flags.GetString("run")
	extra, _ := flags.GetStringSlice("nodes")

	// Without an explicit source, the latest run's report is it.
	if reportPath == "" && runID == "" && len(extra) == 0 {
		reportPath = filepath.Join(outputDir, "latest", "report.json")
	}

	agg := detect.NewAggregator()
	summary := &isolate.Summary{Timestamp: time.Now()}

	if reportPath != "" {
		bad, err := report.LoadBadNodes(reportPath)
		if err != nil {
			return err
		}
		agg.AddNodes(bad)
		summary.SourceReport = reportPath
	}
	if runID != "" {
		rep, err := archivedReport(outputDir, runID)
		if err != nil {
			return err
		}
		agg.AddNodes(report.BadNodeUnion(rep))
		summary.SourceRun = rep.RunID
	}
	agg.AddNodes(extra)

	bad := agg.Condemned()
	summary.BadNodes = bad
	if len(bad) == 0 {
		fmt.Println("No bad nodes to isolate.")
		return nil
	}

	fmt.Printf("Isolating %d nodes: %s\n\n", len(bad), strings.Join(bad, ", "))

	hostfilePath, _ := flags.GetString("hostfile")
	hostfileOut, _ := flags.GetString("out")
	noBackup, _ := flags.GetBool("no-backup")
	slurm, _ := flags.GetBool("slurm")
	affinity, _ := flags.GetBool("k8s-affinity")
	cordon, _ := flags.GetBool("cordon")

	// No action flags: print the directives without touching anything.
	suggest := hostfilePath == "" && !slurm && !affinity && !cordon

	if hostfilePath != "" {
		backup, isolated, err := isolate.RewriteHostfile(hostfilePath, hostfileOut, bad, !noBackup)
		if err != nil {
			return err
		}
		summary.Hostfile = hostfilePath
		summary.HostfileOutput = hostfileOut
		summary.HostfileBackup = backup
		summary.IsolatedLines = isolated
		switch {
		case hostfileOut != "":
			fmt.Printf("✓ %s: %d lines isolated, written to %s\n", hostfilePath, isolated, hostfileOut)
		case backup != "":
			fmt.Printf("✓ %s: %d lines isolated (backup: %s)\n", hostfilePath, isolated, backup)
		default:
			fmt.Printf("✓ %s: %d lines isolated\n", hostfilePath, isolated)
		}
	}

	if slurm || suggest {
		directive := isolate.SlurmExclude(bad)
		summary.SlurmDirective = directive
		fmt.Printf("Slurm:\n%s\n\n", directive)
	}

	if affinity || suggest {
		snippet, err := isolate.AffinityYAML(bad)
		if err != nil {
			return err
		}
		fmt.Printf("Kubernetes pod spec snippet:\n%s\n", snippet)
	}

	if cordon {
		clientset, err := k8s.GetClientset()
		if err != nil {
			return fmt.Errorf("failed to create k8s client: %w", err)
		}
		cordoned, cordonErr := k8s.CordonNodes(ctx, clientset, bad)
		summary.CordonedNodes = cordoned
		if cordonErr != nil {
			// A partial cordon still gets recorded.
			writeIsolationSummary(cmd, outputDir, summary)
			return cordonErr
		}
		fmt.Printf("✓ cordoned %d nodes\n", len(cordoned))
	}

	return writeIsolationSummary(cmd, outputDir, summary)
}

func writeIsolationSummary(cmd *cobra.Command, outputDir string, summary *isolate.Summary) error {
	path, _ := cmd.Flags().GetString("summary")
	if path == "" {
		stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
		path = filepath.Join(outputDir, fmt.Sprintf("isolation-%s.json", stamp))
	}
	if err := isolate.WriteSummary(path, summary); err != nil {
		return err
	}
	fmt.Printf("Summary written to %s\n", path)
	return nil
}

func archivedReport(outputDir, runID string) (*types.Report, error) {
	arch, err := archive.Open(outputDir)
	if err != nil {
		return nil, err
	}
	defer arch.Close()
	return arch.Get(runID)
}
