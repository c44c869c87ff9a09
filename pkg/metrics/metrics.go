// Package metrics exports the outcome of a detection run in Prometheus
// textfile format so a node_exporter textfile collector can scrape it.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jianzi123/slow-node/pkg/types"
)

const namespace = "slownode"

// Exporter owns a private registry holding the per-run gauges. One Exporter
// per run; Record is not cumulative across reports.
type Exporter struct {
	registry  *prometheus.Registry
	bandwidth *prometheus.GaugeVec
	condemned *prometheus.GaugeVec
	tests     prometheus.Gauge
	duration  prometheus.Gauge
	threshold prometheus.Gauge
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		bandwidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_bandwidth_gbps",
			Help:      "Average measured bus bandwidth per node in GB/s.",
		}, []string{"node"}),
		condemned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "node_condemned",
			Help:      "1 if the node was condemned by the run, 0 if cleared.",
		}, []string{"node"}),
		tests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Number of benchmark invocations the run performed.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the detection run.",
		}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threshold_gbps",
			Help:      "Bandwidth threshold the run used to judge tests.",
		}),
	}

	e.registry.MustRegister(e.bandwidth, e.condemned, e.tests, e.duration, e.threshold)
	return e
}

// Record translates a finished report into gauge values. Per-node bandwidth
// comes from pairwise statistics when present, otherwise from single-node
// tests in the history.
func (e *Exporter) Record(rep *types.Report) {
	e.tests.Set(float64(rep.TotalTests))
	e.duration.Set(rep.DurationSeconds)
	if rep.ThresholdGBps != nil {
		e.threshold.Set(*rep.ThresholdGBps)
	}

	for _, node := range rep.BadNodes {
		e.condemned.WithLabelValues(node).Set(1)
	}
	for _, node := range rep.GoodNodes {
		e.condemned.WithLabelValues(node).Set(0)
	}

	if rep.Pairwise != nil {
		for node, stats := range rep.Pairwise.NodeStatistics {
			e.bandwidth.WithLabelValues(node).Set(stats.AverageBandwidthGBps)
		}
		return
	}

	for _, result := range rep.TestHistory {
		if result.NodeCount == 1 && result.BandwidthGBps != nil {
			e.bandwidth.WithLabelValues(result.Nodes[0]).Set(*result.BandwidthGBps)
		}
	}
}

// WriteTextfile writes the gauges to path in Prometheus text format.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
