package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jianzi123/slow-node/pkg/types"
)

func TestRecordPairwiseReport(t *testing.T) {
	threshold := 200.0
	rep := &types.Report{
		RunID:           "run-1",
		Mode:            types.ModePairwise,
		TotalTests:      15,
		DurationSeconds: 12.5,
		ThresholdGBps:   &threshold,
		BadNodes:        []string{"node-003"},
		GoodNodes:       []string{"node-001", "node-002"},
		Pairwise: &types.PairwiseReport{
			NodeStatistics: map[string]types.NodeStatistics{
				"node-001": {AverageBandwidthGBps: 220.5},
				"node-002": {AverageBandwidthGBps: 218.0},
				"node-003": {AverageBandwidthGBps: 40.0},
			},
		},
	}

	e := NewExporter()
	e.Record(rep)

	assert.Equal(t, 15.0, testutil.ToFloat64(e.tests))
	assert.Equal(t, 12.5, testutil.ToFloat64(e.duration))
	assert.Equal(t, 200.0, testutil.ToFloat64(e.threshold))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.condemned.WithLabelValues("node-003")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.condemned.WithLabelValues("node-001")))
	assert.Equal(t, 40.0, testutil.ToFloat64(e.bandwidth.WithLabelValues("node-003")))
}

func TestRecordBisectionHistoryBandwidth(t *testing.T) {
	bw := 227.5
	rep := &types.Report{
		RunID: "run-2",
		Mode:  types.ModeBisection,
		TestHistory: []types.BenchmarkResult{
			{TestName: "group_depth0", Nodes: []string{"node-001", "node-002"}, NodeCount: 2, BandwidthGBps: &bw},
			{TestName: "single_node_depth1", Nodes: []string{"node-002"}, NodeCount: 1, BandwidthGBps: &bw},
		},
	}

	e := NewExporter()
	e.Record(rep)

	// Only the single-node result maps to a node gauge.
	assert.Equal(t, 1, testutil.CollectAndCount(e.bandwidth))
	assert.Equal(t, 227.5, testutil.ToFloat64(e.bandwidth.WithLabelValues("node-002")))
}

func TestWriteTextfile(t *testing.T) {
	rep := &types.Report{
		RunID:      "run-3",
		TotalTests: 3,
		BadNodes:   []string{"node-007"},
	}

	e := NewExporter()
	e.Record(rep)

	path := filepath.Join(t.TempDir(), "slownode.prom")
	require.NoError(t, e.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `slownode_node_condemned{node="node-007"} 1`)
	assert.Contains(t, content, "slownode_tests_total 3")
}
