// Package detect implements the slow-node detection methods. Each method
// walks the roster with benchmark invocations through a bench.Runner and
// produces a Finding; the Aggregator merges findings into one condemned set.
package detect

import (
	"context"
	"sort"
	"sync"

	"github.com/jianzi123/slow-node/pkg/bench"
	"github.com/jianzi123/slow-node/pkg/types"
)

// Detector is one detection method over a fixed roster.
type Detector interface {
	Name() string
	Detect(ctx context.Context) (*Finding, error)
}

// Finding is what a detection method concludes about a roster. BadNodes and
// GoodNodes are sorted; a node in neither list was never individually
// resolved (pruned away inside a healthy group or untested).
type Finding struct {
	Method    string
	BadNodes  []string
	GoodNodes []string
	History   []types.BenchmarkResult

	// Method-specific report sections, at most one non-nil.
	Bisection *types.BisectionReport
	Pairwise  *types.PairwiseReport
}

// Factory builds a detector instance bound to a runner and roster.
type Factory func(runner *bench.Runner, roster []string, cfg *types.Config) Detector

// DefaultRegistry is the global detector registry. Detection methods
// register themselves with this registry.
var DefaultRegistry = NewRegistry()

// Registry maintains a mapping of method names to detector factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a detector factory to the registry. A factory registered
// under an existing name replaces the previous one.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get retrieves a factory by method name. Returns nil if the method is not
// registered.
func (r *Registry) Get(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[name]
}

// Names returns a sorted list of all registered method names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedNodes(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	nodes := make([]string, 0, len(set))
	for node := range set {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}
