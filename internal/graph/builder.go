package graph

import (
	"fmt"
	"log/slog"
)

// Factory instantiates a Node from its declarative spec. Node
// packages register factories for the kinds they implement via
// RegisterFactory, following the same dispatch-by-type idiom as a
// media pipeline's node builder — a flat switch keyed on node.Type
// replaced here by a registry so new node kinds don't require
// modifying the Builder itself.
type Factory func(spec NodeSpec, shared *SharedData) (Node, error)

// Builder compiles a GraphSpec into an executable Graph, following the
// same validate-then-build-then-wire shape as a pipeline compiler:
// check well-formedness first, instantiate every node, then resolve
// the execution order from the declared connections.
type Builder struct {
	logger    *slog.Logger
	factories map[string]Factory
}

// NewBuilder creates a Builder with no factories registered; callers
// (or the nodes subpackage's init-time registration helper) must call
// RegisterFactory for every node kind the graph configuration may use.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, factories: make(map[string]Factory)}
}

// RegisterFactory associates a node kind string (e.g. "filter",
// "peak_finder") with the function that builds it.
func (b *Builder) RegisterFactory(kind string, f Factory) {
	b.factories[kind] = f
}

// Build validates spec, instantiates every node via its registered
// factory, and computes the fixed topological execution order.
func (b *Builder) Build(spec GraphSpec, shared *SharedData) (*Graph, error) {
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("graph: spec has no nodes")
	}

	if err := b.validateSpec(spec); err != nil {
		return nil, fmt.Errorf("graph: invalid spec: %w", err)
	}

	nodes := make(map[string]Node, len(spec.Nodes))
	nodeType := make(map[string]string, len(spec.Nodes))
	order := make([]string, 0, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		order = append(order, ns.ID)
		f, ok := b.factories[ns.Type]
		if !ok {
			return nil, fmt.Errorf("graph: no factory registered for node type %q (node %q)", ns.Type, ns.ID)
		}
		n, err := f(ns, shared)
		if err != nil {
			return nil, fmt.Errorf("graph: building node %q: %w", ns.ID, err)
		}
		nodes[ns.ID] = n
		nodeType[ns.ID] = ns.Type
	}

	predecessors := make(map[string][]string)
	for _, c := range spec.Connections {
		predecessors[c.To] = append(predecessors[c.To], c.From)
	}

	topo, err := topologicalOrder(order, spec.Connections)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	b.logger.Info("processing graph built", "graph_id", spec.ID, "nodes", len(nodes), "connections", len(spec.Connections))

	return &Graph{
		id:           spec.ID,
		nodes:        nodes,
		nodeType:     nodeType,
		predecessors: predecessors,
		order:        topo,
		shared:       shared,
		logger:       b.logger,
	}, nil
}

// validateSpec enforces the ProcessingGraph invariants from §3 that
// can be checked statically: unique IDs, exactly one input node, every
// connection referencing declared nodes, and acyclicity (checked via
// topologicalOrder during Build, not here, since it needs the same
// traversal this function would otherwise duplicate).
func (b *Builder) validateSpec(spec GraphSpec) error {
	seen := make(map[string]bool, len(spec.Nodes))
	inputCount := 0
	for _, n := range spec.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
		if n.Type == "input" {
			inputCount++
		}
	}
	if inputCount != 1 {
		return fmt.Errorf("graph must have exactly one input node, found %d", inputCount)
	}
	for _, c := range spec.Connections {
		if !seen[c.From] {
			return fmt.Errorf("connection references unknown node: %s", c.From)
		}
		if !seen[c.To] {
			return fmt.Errorf("connection references unknown node: %s", c.To)
		}
	}
	return nil
}

// topologicalOrder computes Kahn's-algorithm topological sort over
// nodeIDs (in their declared insertion order) and conns, breaking ties
// among simultaneously-ready nodes by insertion order as required by
// §4.4. Returns an error if a cycle is present.
func topologicalOrder(nodeIDs []string, conns []Connection) ([]string, error) {
	indegree := make(map[string]int, len(nodeIDs))
	adj := make(map[string][]string, len(nodeIDs))
	index := make(map[string]int, len(nodeIDs))
	for i, id := range nodeIDs {
		indegree[id] = 0
		index[id] = i
	}
	for _, c := range conns {
		adj[c.From] = append(adj[c.From], c.To)
		indegree[c.To]++
	}

	var ready []string
	for _, id := range nodeIDs {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var result []string
	for len(ready) > 0 {
		// Pick the lowest-insertion-index ready node for a
		// deterministic, insertion-order tie-break.
		best := 0
		for i := 1; i < len(ready); i++ {
			if index[ready[i]] < index[ready[best]] {
				best = i
			}
		}
		cur := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		result = append(result, cur)

		for _, next := range adj[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(result) != len(nodeIDs) {
		return nil, fmt.Errorf("graph contains a cycle")
	}
	return result, nil
}
