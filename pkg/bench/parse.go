package bench

import (
	"regexp"
	"strconv"
	"strings"
)

// NCCL-test performance rows look like:
//
//	size count type redop time algbw busbw
//	1073741824 268435456 float sum 8912.3 120.47 225.88
//
// The third float column is the bus bandwidth in GB/s.
var (
	perfLinePattern = regexp.MustCompile(`^\s*\d+\s+\d+\s+\w+\s+\w+\s+([\d.]+)\s+([\d.]+)\s+([\d.]+)`)
	avgBusPattern   = regexp.MustCompile(`Avg bus bandwidth\s*:\s*([\d.]+)`)
)

// ParseBandwidthSamples extracts every per-row bus bandwidth value from raw
// benchmark output, in order of appearance. Offline analysis treats each row
// as one observation.
func ParseBandwidthSamples(output []byte) []float64 {
	var samples []float64
	for _, line := range strings.Split(string(output), "\n") {
		match := perfLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		busbw, err := strconv.ParseFloat(match[3], 64)
		if err != nil {
			continue
		}
		samples = append(samples, busbw)
	}
	return samples
}

// ParseBandwidth extracts the aggregate bus bandwidth in GB/s from raw
// benchmark output. Performance rows are averaged; if none are present the
// summary line is used instead. Returns nil when the output carries no
// bandwidth at all.
func ParseBandwidth(output []byte) *float64 {
	if samples := ParseBandwidthSamples(output); len(samples) > 0 {
		var sum float64
		for _, s := range samples {
			sum += s
		}
		avg := sum / float64(len(samples))
		return &avg
	}

	if match := avgBusPattern.FindSubmatch(output); match != nil {
		if avg, err := strconv.ParseFloat(string(match[1]), 64); err == nil {
			return &avg
		}
	}

	return nil
}
