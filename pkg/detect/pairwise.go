package detect

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/jianzi123/slow-node/pkg/bench"
	"github.com/jianzi123/slow-node/pkg/log"
	"github.com/jianzi123/slow-node/pkg/stats"
	"github.com/jianzi123/slow-node/pkg/types"
	"github.com/rs/zerolog"
)

// FailureRateLimit is the per-node failure rate above which a node is
// flagged regardless of its bandwidth numbers.
const FailureRateLimit = 0.2

// Pairwise benchmarks node pairs and flags nodes whose aggregate behavior
// across all their pairs stands out. Unlike bisection it resolves issues
// that only show up between specific nodes.
type Pairwise struct {
	runner   *bench.Runner
	roster   []string
	maxPairs int
	seed     int64
	logger   zerolog.Logger
}

// NewPairwise creates a pairwise detector. maxPairs 0 means the full
// matrix. The seed governs pair sampling when the matrix is capped; 0 means
// derive one from the clock (the derived value is still recorded in the
// report so a capped run can be reproduced).
func NewPairwise(runner *bench.Runner, roster []string, maxPairs int, seed int64) *Pairwise {
	return &Pairwise{
		runner:   runner,
		roster:   roster,
		maxPairs: maxPairs,
		seed:     seed,
		logger:   log.WithComponent("pairwise"),
	}
}

func (p *Pairwise) Name() string {
	return "pairwise"
}

// GeneratePairs returns every unordered node pair, in roster order.
func GeneratePairs(roster []string) [][2]string {
	var pairs [][2]string
	for i := 0; i < len(roster); i++ {
		for j := i + 1; j < len(roster); j++ {
			pairs = append(pairs, [2]string{roster[i], roster[j]})
		}
	}
	return pairs
}

func (p *Pairwise) Detect(ctx context.Context) (*Finding, error) {
	pairs := GeneratePairs(p.roster)
	totalPairs := len(pairs)

	seed := p.seed
	if p.maxPairs > 0 && len(pairs) > p.maxPairs {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(pairs), func(i, j int) {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		})
		pairs = pairs[:p.maxPairs]
		fmt.Printf("Limiting to %d pairs (out of %d total, seed %d)\n", p.maxPairs, totalPairs, seed)
	} else {
		fmt.Printf("Testing %d node pairs\n", totalPairs)
	}

	results := make([]types.PairResult, 0, len(pairs))
	for i, pair := range pairs {
		fmt.Printf("[%d/%d] Testing pair: %s <-> %s\n", i+1, len(pairs), pair[0], pair[1])

		result := p.runner.Evaluate(ctx, pair[:], fmt.Sprintf("pair_%d", i+1))
		results = append(results, types.PairResult{
			Nodes:         append([]string(nil), pair[:]...),
			BandwidthGBps: result.BandwidthGBps,
			Success:       result.Success,
		})
	}

	report := AnalyzePairs(results)
	report.TotalPairs = totalPairs
	report.TestedPairs = len(pairs)
	report.Seed = seed
	report.TestHistory = p.runner.History()

	bad := make(map[string]bool, len(report.ProblematicNodes))
	for _, problem := range report.ProblematicNodes {
		bad[problem.Node] = true
		p.logger.Info().
			Str("node", problem.Node).
			Str("reason", problem.Reason).
			Float64("avg_bandwidth_gb_s", problem.AverageBandwidthGBps).
			Msg("problematic node")
	}

	// Nodes with statistics that were not flagged had unremarkable numbers
	// across every pair they appeared in.
	good := make(map[string]bool)
	for node := range report.NodeStatistics {
		if !bad[node] {
			good[node] = true
		}
	}

	return &Finding{
		Method:    p.Name(),
		BadNodes:  sortedNodes(bad),
		GoodNodes: sortedNodes(good),
		History:   report.TestHistory,
		Pairwise:  report,
	}, nil
}

// AnalyzePairs builds per-node statistics from pair results in one pass and
// flags problematic nodes. A node enters the statistics table only when at
// least one of its pairs produced a bandwidth reading; global mean and
// deviation are second-order statistics over the per-node averages. The two
// triggers (bandwidth below mean minus two deviations, failure rate above
// FailureRateLimit) are independent.
func AnalyzePairs(pairs []types.PairResult) *types.PairwiseReport {
	type accumulator struct {
		bandwidths []float64
		failures   int
		tests      int
	}

	accum := make(map[string]*accumulator)
	for _, pair := range pairs {
		for _, node := range pair.Nodes {
			a := accum[node]
			if a == nil {
				a = &accumulator{}
				accum[node] = a
			}
			a.tests++
			if pair.BandwidthGBps != nil && *pair.BandwidthGBps > 0 {
				a.bandwidths = append(a.bandwidths, *pair.BandwidthGBps)
			}
			if !pair.Success {
				a.failures++
			}
		}
	}

	report := &types.PairwiseReport{
		Pairs:          pairs,
		NodeStatistics: make(map[string]types.NodeStatistics),
	}

	nodes := make([]string, 0, len(accum))
	for node := range accum {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var averages []float64
	for _, node := range nodes {
		a := accum[node]
		if len(a.bandwidths) == 0 {
			continue
		}

		nodeStats := types.NodeStatistics{
			AverageBandwidthGBps: stats.Mean(a.bandwidths),
			StdBandwidthGBps:     stats.StdDev(a.bandwidths),
			FailureCount:         a.failures,
			TotalTests:           a.tests,
			FailureRate:          float64(a.failures) / float64(a.tests),
		}
		report.NodeStatistics[node] = nodeStats
		averages = append(averages, nodeStats.AverageBandwidthGBps)
	}

	if len(averages) == 0 {
		return report
	}

	mean := stats.Mean(averages)
	std := stats.StdDev(averages)
	threshold := mean - 2*std

	report.OverallMeanBandwidth = mean
	report.OverallStdBandwidth = std
	report.ThresholdBandwidth = threshold

	for _, node := range nodes {
		nodeStats, ok := report.NodeStatistics[node]
		if !ok {
			continue
		}
		if nodeStats.AverageBandwidthGBps < threshold || nodeStats.FailureRate > FailureRateLimit {
			reason := types.ReasonHighFailureRate
			if nodeStats.AverageBandwidthGBps < threshold {
				reason = types.ReasonLowBandwidth
			}
			report.ProblematicNodes = append(report.ProblematicNodes, types.ProblematicNode{
				Node:                 node,
				AverageBandwidthGBps: nodeStats.AverageBandwidthGBps,
				FailureRate:          nodeStats.FailureRate,
				Reason:               reason,
			})
		}
	}

	return report
}

func init() {
	DefaultRegistry.Register("pairwise", func(runner *bench.Runner, roster []string, cfg *types.Config) Detector {
		return NewPairwise(runner, roster, cfg.MaxPairs, cfg.Seed)
	})
}
