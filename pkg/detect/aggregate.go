package detect

import "sync"

// Aggregator merges condemned sets from any number of detection methods
// into one deduplicated set. It only reads finished findings; missing or
// empty inputs simply contribute nothing.
type Aggregator struct {
	mu        sync.RWMutex
	condemned map[string]bool
	findings  []*Finding
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		condemned: make(map[string]bool),
	}
}

// Add merges one finding. A nil finding is a zero contribution.
func (a *Aggregator) Add(finding *Finding) {
	if finding == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.findings = append(a.findings, finding)
	for _, node := range finding.BadNodes {
		a.condemned[node] = true
	}
}

// AddNodes merges a bare condemned list, for callers that work from saved
// reports rather than live findings.
func (a *Aggregator) AddNodes(nodes []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, node := range nodes {
		a.condemned[node] = true
	}
}

// Condemned returns the union of all merged condemned sets, sorted.
func (a *Aggregator) Condemned() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedNodes(a.condemned)
}

// Findings returns the merged findings in the order they were added.
func (a *Aggregator) Findings() []*Finding {
	a.mu.RLock()
	defer a.mu.RUnlock()

	findings := make([]*Finding, len(a.findings))
	copy(findings, a.findings)
	return findings
}
