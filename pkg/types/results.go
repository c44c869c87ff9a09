package types

import "time"

// BenchmarkResult records a single invocation of the external bandwidth
// benchmark against a set of nodes. Results are append-only: once a result
// lands in a history it is never mutated.
type BenchmarkResult struct {
	TestName      string        `json:"test_name"`
	Nodes         []string      `json:"nodes"`
	NodeCount     int           `json:"node_count"`
	Timestamp     time.Time     `json:"timestamp"`
	Success       bool          `json:"success"`
	ReturnCode    int           `json:"return_code"`
	BandwidthGBps *float64      `json:"bandwidth_gb_s"`
	IsGood        bool          `json:"is_good"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// PairResult is one cell of the pairwise test matrix.
type PairResult struct {
	Nodes         []string `json:"nodes"`
	BandwidthGBps *float64 `json:"bandwidth_gb_s"`
	Success       bool     `json:"success"`
}

// NodeStatistics aggregates all pairwise measurements that involve one node.
type NodeStatistics struct {
	AverageBandwidthGBps float64 `json:"average_bandwidth_gb_s"`
	StdBandwidthGBps     float64 `json:"std_bandwidth_gb_s"`
	FailureCount         int     `json:"failure_count"`
	TotalTests           int     `json:"total_tests"`
	FailureRate          float64 `json:"failure_rate"`
}

// Reasons attached to ProblematicNode entries.
const (
	ReasonLowBandwidth    = "Low bandwidth"
	ReasonHighFailureRate = "High failure rate"
)

type ProblematicNode struct {
	Node                 string  `json:"node"`
	AverageBandwidthGBps float64 `json:"average_bandwidth_gb_s"`
	FailureRate          float64 `json:"failure_rate"`
	Reason               string  `json:"reason"`
}

// BisectionReport is the method-specific section produced by the bisection
// detector.
type BisectionReport struct {
	BadNodes    []string          `json:"bad_nodes"`
	GoodNodes   []string          `json:"good_nodes"`
	TestHistory []BenchmarkResult `json:"test_history"`
}

// PairwiseReport is the method-specific section produced by the pairwise
// detector. Seed is the value actually used for pair sampling so a capped
// run can be reproduced exactly.
type PairwiseReport struct {
	TotalPairs           int                       `json:"total_pairs"`
	TestedPairs          int                       `json:"tested_pairs"`
	Seed                 int64                     `json:"seed"`
	Pairs                []PairResult              `json:"pair_results"`
	NodeStatistics       map[string]NodeStatistics `json:"node_statistics"`
	ProblematicNodes     []ProblematicNode         `json:"problematic_nodes"`
	OverallMeanBandwidth float64                   `json:"overall_mean_bandwidth"`
	OverallStdBandwidth  float64                   `json:"overall_std_bandwidth"`
	ThresholdBandwidth   float64                   `json:"threshold_bandwidth"`
	TestHistory          []BenchmarkResult         `json:"test_history"`
}

// ReachabilityResult is one node's preflight ping outcome. Preflight is
// informational: unreachable nodes stay in the roster.
type ReachabilityResult struct {
	Node         string  `json:"node"`
	Reachable    bool    `json:"reachable"`
	PacketLoss   float64 `json:"packet_loss_percent"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	Error        string  `json:"error,omitempty"`
}

// Report is the single structured document produced by a detection run.
type Report struct {
	RunID           string               `json:"run_id"`
	Timestamp       time.Time            `json:"timestamp"`
	Mode            string               `json:"mode"`
	TotalNodes      int                  `json:"total_nodes"`
	TotalTests      int                  `json:"total_tests"`
	DurationSeconds float64              `json:"duration_seconds"`
	ThresholdGBps   *float64             `json:"threshold_gb_s"`
	BadNodes        []string             `json:"bad_nodes"`
	GoodNodes       []string             `json:"good_nodes"`
	Preflight       []ReachabilityResult `json:"preflight,omitempty"`
	Bisection       *BisectionReport     `json:"bisection,omitempty"`
	Pairwise        *PairwiseReport      `json:"pairwise,omitempty"`
	TestHistory     []BenchmarkResult    `json:"test_history"`
}

// OutlierAnalysis is the output of the offline analyze command.
type OutlierAnalysis struct {
	Samples        int      `json:"samples"`
	Mean           float64  `json:"mean"`
	Std            float64  `json:"std"`
	ZScoreOutliers []string `json:"zscore_outliers"`
	IQROutliers    []string `json:"iqr_outliers"`
	HighConfidence []string `json:"high_confidence"`
	MediumOnly     []string `json:"medium_confidence"`
}
