package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jianzi123/slow-node/pkg/types"
)

func TestExtractNodeBandwidthsFromPairwise(t *testing.T) {
	rep := &types.Report{
		Pairwise: &types.PairwiseReport{
			NodeStatistics: map[string]types.NodeStatistics{
				"node-b": {AverageBandwidthGBps: 210},
				"node-a": {AverageBandwidthGBps: 220},
			},
		},
	}

	nodes, samples := extractNodeBandwidths(rep)
	assert.Equal(t, []string{"node-a", "node-b"}, nodes)
	assert.Equal(t, []float64{220, 210}, samples)
}

func TestExtractNodeBandwidthsFromHistory(t *testing.T) {
	first, second := 55.0, 60.0
	group := 200.0
	rep := &types.Report{
		TestHistory: []types.BenchmarkResult{
			{TestName: "group_depth0", Nodes: []string{"node-a", "node-b"}, NodeCount: 2, BandwidthGBps: &group},
			{TestName: "single_node_depth1", Nodes: []string{"node-a"}, NodeCount: 1, BandwidthGBps: &first},
			{TestName: "single_node_depth1", Nodes: []string{"node-a"}, NodeCount: 1, BandwidthGBps: &second},
		},
	}

	nodes, samples := extractNodeBandwidths(rep)
	assert.Equal(t, []string{"node-a"}, nodes)
	// Latest measurement wins.
	assert.Equal(t, []float64{60}, samples)
}

func TestExtractNodeBandwidthsEmptyReport(t *testing.T) {
	nodes, samples := extractNodeBandwidths(&types.Report{})
	assert.Empty(t, nodes)
	assert.Empty(t, samples)
}

func TestSampleLabels(t *testing.T) {
	assert.Equal(t, []string{"sample-001", "sample-002", "sample-003"}, sampleLabels(3))
	assert.Empty(t, sampleLabels(0))
}

func TestNodeNames(t *testing.T) {
	nodes := []string{"node-a", "node-b", "node-c"}
	assert.Equal(t, []string{"node-a", "node-c"}, nodeNames(nodes, []int{2, 0}))
	assert.Nil(t, nodeNames(nodes, nil))
}
