// Package isolate turns a condemned-node list into scheduler exclusions: a
// rewritten MPI hostfile, a Slurm exclude directive and a Kubernetes node
// affinity snippet.
package isolate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

const isolatedPrefix = "# ISOLATED: "

// RewriteHostfile comments out every roster line whose node is condemned.
// An empty out path rewrites the file in place, copying the original to
// <path>.bak.<timestamp> first unless backup is disabled. Returns the backup
// path and the number of lines isolated.
func RewriteHostfile(path, out string, bad []string, backup bool) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading hostfile: %w", err)
	}

	badSet := make(map[string]bool, len(bad))
	for _, node := range bad {
		badSet[node] = true
	}

	if out == "" {
		out = path
	}

	backupPath := ""
	if backup && out == path {
		backupPath = fmt.Sprintf("%s.bak.%s", path, time.Now().Format("20060102-150405"))
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", 0, fmt.Errorf("backing up hostfile: %w", err)
		}
	}

	lines := strings.Split(string(data), "\n")
	isolated := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if badSet[strings.Fields(trimmed)[0]] {
			lines[i] = isolatedPrefix + line
			isolated++
		}
	}

	if err := os.WriteFile(out, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", 0, fmt.Errorf("rewriting hostfile: %w", err)
	}

	return backupPath, isolated, nil
}

// SlurmExclude renders an SBATCH directive that keeps jobs off the
// condemned nodes. Empty input yields an empty string.
func SlurmExclude(bad []string) string {
	if len(bad) == 0 {
		return ""
	}
	nodes := append([]string(nil), bad...)
	sort.Strings(nodes)
	return "#SBATCH --exclude=" + strings.Join(nodes, ",")
}

// Affinity builds a required node affinity that forbids scheduling onto the
// condemned nodes.
func Affinity(bad []string) *corev1.Affinity {
	if len(bad) == 0 {
		return nil
	}
	nodes := append([]string(nil), bad...)
	sort.Strings(nodes)

	return &corev1.Affinity{
		NodeAffinity: &corev1.NodeAffinity{
			RequiredDuringSchedulingIgnoredDuringExecution: &corev1.NodeSelector{
				NodeSelectorTerms: []corev1.NodeSelectorTerm{{
					MatchExpressions: []corev1.NodeSelectorRequirement{{
						Key:      "kubernetes.io/hostname",
						Operator: corev1.NodeSelectorOpNotIn,
						Values:   nodes,
					}},
				}},
			},
		},
	}
}

// AffinityYAML marshals the affinity as a snippet ready to paste into a pod
// spec. Nil for an empty condemned set.
func AffinityYAML(bad []string) ([]byte, error) {
	affinity := Affinity(bad)
	if affinity == nil {
		return nil, nil
	}

	data, err := yaml.Marshal(map[string]*corev1.Affinity{"affinity": affinity})
	if err != nil {
		return nil, fmt.Errorf("marshaling affinity: %w", err)
	}
	return data, nil
}

// Summary records what an isolation pass actually did.
type Summary struct {
	Timestamp      time.Time `json:"timestamp"`
	SourceReport   string    `json:"source_report,omitempty"`
	SourceRun      string    `json:"source_run,omitempty"`
	BadNodes       []string  `json:"bad_nodes"`
	Hostfile       string    `json:"hostfile,omitempty"`
	HostfileOutput string    `json:"hostfile_output,omitempty"`
	HostfileBackup string    `json:"hostfile_backup,omitempty"`
	IsolatedLines  int       `json:"isolated_lines"`
	SlurmDirective string    `json:"slurm_directive,omitempty"`
	CordonedNodes  []string  `json:"cordoned_nodes,omitempty"`
}

// WriteSummary persists the isolation summary as indented JSON, creating the
// parent directory when needed.
func WriteSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling isolation summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating summary dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing isolation summary: %w", err)
	}
	return nil
}
