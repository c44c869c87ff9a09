// Package report assembles and persists the structured document that a
// detection run produces. Each run gets its own timestamped directory with
// the report, raw benchmark logs and a "latest" convenience symlink.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jianzi123/slow-node/pkg/detect"
	"github.com/jianzi123/slow-node/pkg/types"
)

// CreateRunDir creates <base>/runs/<UTC timestamp> and points <base>/latest
// at it.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}

	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}

	return runDir, nil
}

// BuildParams carries everything Build needs to assemble a report.
type BuildParams struct {
	RunID     string
	Mode      string
	Roster    []string
	Threshold *float64
	Findings  []*detect.Finding
	Preflight []types.ReachabilityResult
	StartedAt time.Time
}

// Build merges the findings of a run into one report: condemned sets are
// unioned, known-good sets are unioned and cleared of condemned nodes, and
// test histories are concatenated in detector order.
func Build(params BuildParams) *types.Report {
	agg := detect.NewAggregator()
	for _, finding := range params.Findings {
		agg.Add(finding)
	}
	condemned := agg.Condemned()

	condemnedSet := make(map[string]bool, len(condemned))
	for _, node := range condemned {
		condemnedSet[node] = true
	}

	goodSet := make(map[string]bool)
	var history []types.BenchmarkResult
	rep := &types.Report{
		RunID:         params.RunID,
		Timestamp:     time.Now(),
		Mode:          params.Mode,
		TotalNodes:    len(params.Roster),
		ThresholdGBps: params.Threshold,
		BadNodes:      condemned,
		Preflight:     params.Preflight,
	}

	for _, finding := range agg.Findings() {
		for _, node := range finding.GoodNodes {
			if !condemnedSet[node] {
				goodSet[node] = true
			}
		}
		history = append(history, finding.History...)
		if finding.Bisection != nil {
			rep.Bisection = finding.Bisection
		}
		if finding.Pairwise != nil {
			rep.Pairwise = finding.Pairwise
		}
	}

	good := make([]string, 0, len(goodSet))
	for node := range goodSet {
		good = append(good, node)
	}
	sort.Strings(good)

	rep.GoodNodes = good
	rep.TestHistory = history
	rep.TotalTests = len(history)
	rep.DurationSeconds = time.Since(params.StartedAt).Seconds()

	return rep
}

// Write persists the report as indented JSON in the run directory and
// returns the file path.
func Write(runDir string, rep *types.Report) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}

	path := filepath.Join(runDir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	return path, nil
}

// Read loads a report written by Write.
func Read(path string) (*types.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	var rep types.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}

	return &rep, nil
}

// BadNodeUnion extracts every condemned node a report names, across the
// top-level list and the method sections. Partial reports are fine: a
// missing section contributes nothing.
func BadNodeUnion(rep *types.Report) []string {
	agg := detect.NewAggregator()
	agg.AddNodes(rep.BadNodes)
	if rep.Bisection != nil {
		agg.AddNodes(rep.Bisection.BadNodes)
	}
	if rep.Pairwise != nil {
		for _, problem := range rep.Pairwise.ProblematicNodes {
			agg.AddNodes([]string{problem.Node})
		}
	}
	return agg.Condemned()
}

// LoadBadNodes reads a report file and returns its BadNodeUnion.
func LoadBadNodes(path string) ([]string, error) {
	rep, err := Read(path)
	if err != nil {
		return nil, err
	}
	return BadNodeUnion(rep), nil
}
