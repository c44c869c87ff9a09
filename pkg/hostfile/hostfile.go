// Package hostfile reads and writes MPI-style hostfiles. A hostfile names
// one node per line; anything after the first whitespace (slot counts, per
// host options) is ignored on read.
package hostfile

import (
	"fmt"
	"os"
	"strings"
)

// Parse reads a hostfile and returns the roster in file order. Blank lines
// and comment lines are skipped. A missing file is a configuration error.
func Parse(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hostfile: %w", err)
	}

	nodes := parseLines(string(data))
	if err := Validate(nodes); err != nil {
		return nil, fmt.Errorf("invalid hostfile %s: %w", path, err)
	}

	return nodes, nil
}

func parseLines(content string) []string {
	var nodes []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		nodes = append(nodes, strings.Fields(line)[0])
	}
	return nodes
}

// Validate rejects rosters the detectors cannot work with: empty rosters,
// empty identifiers and duplicate identifiers.
func Validate(nodes []string) error {
	if len(nodes) == 0 {
		return fmt.Errorf("roster is empty")
	}

	seen := make(map[string]bool, len(nodes))
	for i, node := range nodes {
		if node == "" {
			return fmt.Errorf("empty node identifier at position %d", i)
		}
		if seen[node] {
			return fmt.Errorf("duplicate node identifier %q", node)
		}
		seen[node] = true
	}

	return nil
}

// WriteSubset writes a hostfile for an MPI launch over the given nodes,
// with a fixed slot count per node.
func WriteSubset(path string, nodes []string, slots int) error {
	var b strings.Builder
	for _, node := range nodes {
		fmt.Fprintf(&b, "%s slots=%d\n", node, slots)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write hostfile: %w", err)
	}

	return nil
}
