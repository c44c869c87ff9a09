package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jianzi123/slow-node/pkg/bench"
	"github.com/jianzi123/slow-node/pkg/log"
	"github.com/jianzi123/slow-node/pkg/types"
	"github.com/rs/zerolog"
)

// Bisector locates bad nodes by recursively halving the roster. A healthy
// group costs exactly one benchmark; only unhealthy groups are split. The
// recursion is depth-first with the left half always fully resolved before
// the right, so the test history is reproducible run to run.
type Bisector struct {
	runner    *bench.Runner
	roster    []string
	goodNodes map[string]bool
	logger    zerolog.Logger
}

func NewBisector(runner *bench.Runner, roster []string) *Bisector {
	return &Bisector{
		runner:    runner,
		roster:    roster,
		goodNodes: make(map[string]bool),
		logger:    log.WithComponent("bisection"),
	}
}

func (b *Bisector) Name() string {
	return "bisection"
}

func (b *Bisector) Detect(ctx context.Context) (*Finding, error) {
	// Without a threshold every group verdict degrades to the raw process
	// outcome, so establish one from a baseline first.
	b.runner.Calibrate(ctx, b.roster)

	bad := b.bisect(ctx, b.roster, 0)

	badNodes := sortedNodes(bad)
	goodNodes := sortedNodes(b.goodNodes)
	history := b.runner.History()

	return &Finding{
		Method:    b.Name(),
		BadNodes:  badNodes,
		GoodNodes: goodNodes,
		History:   history,
		Bisection: &types.BisectionReport{
			BadNodes:    badNodes,
			GoodNodes:   goodNodes,
			TestHistory: history,
		},
	}, nil
}

// bisect returns the bad nodes found within the given sublist. Roster order
// is preserved across splits; the left half gets the smaller share when the
// sublist length is odd.
func (b *Bisector) bisect(ctx context.Context, nodes []string, depth int) map[string]bool {
	indent := strings.Repeat("  ", depth)

	if len(nodes) == 0 {
		return nil
	}

	if len(nodes) == 1 {
		result := b.runner.Evaluate(ctx, nodes, fmt.Sprintf("single_node_depth%d", depth))
		if !result.IsGood {
			fmt.Printf("%s→ node %s is BAD\n", indent, nodes[0])
			return map[string]bool{nodes[0]: true}
		}
		fmt.Printf("%s→ node %s is good\n", indent, nodes[0])
		b.goodNodes[nodes[0]] = true
		return nil
	}

	result := b.runner.Evaluate(ctx, nodes, fmt.Sprintf("group_depth%d", depth))
	if result.IsGood {
		// Healthy group: every member is known-good, prune the subtree.
		fmt.Printf("%s→ all %d nodes are good\n", indent, len(nodes))
		for _, node := range nodes {
			b.goodNodes[node] = true
		}
		return nil
	}

	fmt.Printf("%s→ group of %d nodes has issues, splitting...\n", indent, len(nodes))
	b.logger.Debug().Int("depth", depth).Int("nodes", len(nodes)).Msg("splitting group")

	mid := len(nodes) / 2
	bad := b.bisect(ctx, nodes[:mid], depth+1)
	for node := range b.bisect(ctx, nodes[mid:], depth+1) {
		if bad == nil {
			bad = make(map[string]bool)
		}
		bad[node] = true
	}
	return bad
}

func init() {
	DefaultRegistry.Register("bisection", func(runner *bench.Runner, roster []string, _ *types.Config) Detector {
		return NewBisector(runner, roster)
	})
}
