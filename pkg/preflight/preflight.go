// Package preflight checks basic ICMP reachability of the roster before the
// expensive benchmark runs start. Results are informational: an unreachable
// node stays in the roster and gets condemned by the benchmark itself.
package preflight

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"golang.org/x/sync/errgroup"

	"github.com/jianzi123/slow-node/pkg/types"
)

const (
	// DefaultPingCount is the number of ping packets sent per node.
	DefaultPingCount = 3

	// DefaultParallelism bounds how many nodes are probed at once.
	DefaultParallelism = 16
)

type Pinger struct {
	Count       int
	Parallelism int
}

func NewPinger(count int) *Pinger {
	if count == 0 {
		count = DefaultPingCount
	}
	return &Pinger{
		Count:       count,
		Parallelism: DefaultParallelism,
	}
}

// CheckNode pings one node and reports loss and latency.
func (p *Pinger) CheckNode(ctx context.Context, node string) types.ReachabilityResult {
	result := types.ReachabilityResult{Node: node}

	pinger, err := probing.NewPinger(node)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create pinger: %v", err)
		return result
	}

	// Use privileged mode (raw ICMP sockets) - requires CAP_NET_RAW
	pinger.SetPrivileged(true)
	pinger.Count = p.Count
	pinger.Timeout = time.Duration(p.Count) * time.Second
	pinger.Interval = 200 * time.Millisecond

	if err := pinger.RunWithContext(ctx); err != nil {
		result.Error = fmt.Sprintf("ping failed: %v", err)
		return result
	}

	stats := pinger.Statistics()
	result.Reachable = stats.PacketsRecv > 0
	result.PacketLoss = stats.PacketLoss
	result.AvgLatencyMS = float64(stats.AvgRtt.Microseconds()) / 1000.0

	if stats.PacketLoss > 0 {
		result.Error = fmt.Sprintf("%.1f%% packet loss", stats.PacketLoss)
	}

	return result
}

// Sweep probes every node and returns results in roster order.
func (p *Pinger) Sweep(ctx context.Context, nodes []string) []types.ReachabilityResult {
	results := make([]types.ReachabilityResult, len(nodes))

	parallelism := p.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	var group errgroup.Group
	group.SetLimit(parallelism)
	for i, node := range nodes {
		group.Go(func() error {
			results[i] = p.CheckNode(ctx, node)
			return nil
		})
	}
	group.Wait()

	return results
}
