// Package bench invokes the external bandwidth benchmark over node subsets
// and turns raw process outcomes into good/bad verdicts.
package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/jianzi123/slow-node/pkg/log"
	"github.com/jianzi123/slow-node/pkg/types"
	"github.com/rs/zerolog"
)

// CalibrationFactor scales the baseline bandwidth into a threshold when no
// explicit threshold is configured.
const CalibrationFactor = 0.8

// Invoker launches one benchmark over a node subset. Implementations must
// return the captured output and exit code for any process that actually
// ran; err is reserved for failures to run at all (launcher missing,
// context cancelled).
type Invoker interface {
	Invoke(ctx context.Context, nodes []string, procsPerNode int) (output []byte, exitCode int, err error)
}

// Runner owns the bandwidth threshold and the append-only test history for
// one detector. All invocations go through Evaluate, one at a time; the
// benchmark consumes the whole subset's interconnect, so overlapping runs
// would corrupt each other's readings.
type Runner struct {
	invoker      Invoker
	procsPerNode int
	timeout      time.Duration
	threshold    *float64
	history      []types.BenchmarkResult
	logger       zerolog.Logger
}

// NewRunner creates a runner. A nil threshold means no verdict floor is
// known yet: either Calibrate establishes one, or verdicts fall back to the
// raw process outcome.
func NewRunner(invoker Invoker, procsPerNode int, timeout time.Duration, thresholdGBps *float64) *Runner {
	var threshold *float64
	if thresholdGBps != nil {
		t := *thresholdGBps
		threshold = &t
	}

	return &Runner{
		invoker:      invoker,
		procsPerNode: procsPerNode,
		timeout:      timeout,
		threshold:    threshold,
		logger:       log.WithComponent("bench"),
	}
}

// Threshold returns the current verdict floor, or nil if none is set.
func (r *Runner) Threshold() *float64 {
	if r.threshold == nil {
		return nil
	}
	t := *r.threshold
	return &t
}

// History returns a copy of all results recorded so far, in invocation
// order.
func (r *Runner) History() []types.BenchmarkResult {
	history := make([]types.BenchmarkResult, len(r.history))
	copy(history, r.history)
	return history
}

// TestCount returns the number of benchmark invocations recorded so far.
func (r *Runner) TestCount() int {
	return len(r.history)
}

// Evaluate runs one benchmark over the given nodes and records the outcome.
// Failures are data: they come back as a bad result, never as an error.
func (r *Runner) Evaluate(ctx context.Context, nodes []string, label string) types.BenchmarkResult {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, exitCode, err := r.invoker.Invoke(runCtx, nodes, r.procsPerNode)
	elapsed := time.Since(start)

	result := types.BenchmarkResult{
		TestName:   label,
		Nodes:      append([]string(nil), nodes...),
		NodeCount:  len(nodes),
		Timestamp:  start,
		ReturnCode: exitCode,
		Duration:   elapsed,
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Sprintf("benchmark timed out after %s", r.timeout)
		} else {
			result.Error = err.Error()
		}
	} else {
		result.Success = exitCode == 0
		result.BandwidthGBps = ParseBandwidth(output)
		if result.BandwidthGBps == nil {
			r.logger.Warn().Str("test", label).Msg("no bandwidth found in benchmark output")
		}
	}

	result.IsGood = r.verdict(result)
	r.history = append(r.history, result)

	event := r.logger.Debug().
		Str("test", label).
		Int("nodes", result.NodeCount).
		Bool("is_good", result.IsGood).
		Dur("elapsed", elapsed)
	if result.BandwidthGBps != nil {
		event = event.Float64("bandwidth_gb_s", *result.BandwidthGBps)
	}
	event.Msg("benchmark finished")

	return result
}

// verdict classifies a finished result. Execution errors and unparseable
// output are always bad; a parsed bandwidth is compared against the
// threshold when one is set, and otherwise the raw process outcome decides.
func (r *Runner) verdict(result types.BenchmarkResult) bool {
	if result.Error != "" {
		return false
	}
	if result.BandwidthGBps == nil {
		return false
	}
	if r.threshold != nil {
		return *result.BandwidthGBps >= *r.threshold
	}
	return result.Success
}

// Calibrate establishes the threshold from a baseline run over the first
// two roster nodes: the floor is set to 80% of the measured bandwidth. A
// no-op when a threshold is already set. If the baseline yields no
// bandwidth the threshold stays unset and later verdicts fall back to the
// raw process outcome.
func (r *Runner) Calibrate(ctx context.Context, roster []string) {
	if r.threshold != nil {
		return
	}

	sample := roster
	if len(sample) > 2 {
		sample = roster[:2]
	}

	result := r.Evaluate(ctx, sample, "baseline")
	if result.BandwidthGBps == nil {
		r.logger.Warn().Msg("baseline produced no bandwidth, verdicts fall back to process outcome")
		return
	}

	threshold := *result.BandwidthGBps * CalibrationFactor
	r.threshold = &threshold
	r.logger.Info().
		Float64("baseline_gb_s", *result.BandwidthGBps).
		Float64("threshold_gb_s", threshold).
		Msg("threshold calibrated from baseline")
}
