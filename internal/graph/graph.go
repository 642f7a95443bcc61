package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/metrics"
)

// Graph is a compiled, executable ProcessingGraph: nodes keyed by ID,
// a fixed topological order, and the predecessor map used to route
// each node's input from its declared producer(s).
type Graph struct {
	mu sync.RWMutex

	id           string
	nodes        map[string]Node
	nodeType     map[string]string
	predecessors map[string][]string
	order        []string

	shared *SharedData
	logger *slog.Logger
}

// ID returns the graph's identifier.
func (g *Graph) ID() string { return g.id }

// GraphID satisfies metrics.GraphNodeTimingProvider.
func (g *Graph) GraphID() string { return g.id }

// NodeTimings adapts NodeTelemetry into metrics.GraphNodeTiming, satisfying
// metrics.GraphNodeTimingProvider.
func (g *Graph) NodeTimings() []metrics.GraphNodeTiming {
	snapshot := g.NodeTelemetry()
	out := make([]metrics.GraphNodeTiming, 0, len(snapshot))
	for _, t := range snapshot {
		out = append(out, metrics.GraphNodeTiming{
			NodeID:       t.NodeID,
			NodeType:     t.NodeType,
			Executions:   t.Executions,
			Errors:       t.Errors,
			LastDuration: t.LastDuration,
		})
	}
	return out
}

// Execute runs one tick: the input is delivered to the input node,
// and every other node receives the output(s) of its declared
// predecessor(s) in topological order. A node that errors has its
// error recorded in telemetry; every node downstream of it (any node
// with a skipped or failed predecessor) is skipped for this tick (not executed, not counted), matching the
// "best-effort, not transactional" execution policy of §4.4. Execute
// never returns an error itself — node failures are per-node, not
// graph-fatal.
func (g *Graph) Execute(input ProcessingData) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	outputs := make(map[string]ProcessingData, len(g.order))
	skipped := make(map[string]bool, len(g.order))

	for _, id := range g.order {
		node := g.nodes[id]
		preds := g.predecessors[id]

		var in ProcessingData
		var upstreamSkipped bool

		switch {
		case len(preds) == 0:
			in = input
		case len(preds) == 1:
			if skipped[preds[0]] {
				upstreamSkipped = true
			} else {
				in = outputs[preds[0]]
			}
		default:
			ins := make([]ProcessingData, 0, len(preds))
			for _, p := range preds {
				if skipped[p] {
					upstreamSkipped = true
					break
				}
				ins = append(ins, outputs[p])
			}
			if !upstreamSkipped {
				if mi, ok := node.(MultiInputNode); ok {
					start := time.Now()
					out, err := mi.ProcessMany(ins)
					g.recordAndStore(id, node, start, out, err, outputs, skipped)
					continue
				}
				// A node with multiple declared predecessors but no
				// MultiInputNode implementation only ever consumes the
				// first; this mirrors a misconfigured graph rather
				// than a runtime condition, so fall through using
				// ins[0].
				in = ins[0]
			}
		}

		if upstreamSkipped {
			skipped[id] = true
			continue
		}

		start := time.Now()
		out, err := node.Process(in)
		g.recordAndStore(id, node, start, out, err, outputs, skipped)
	}
}

func (g *Graph) recordAndStore(id string, node Node, start time.Time, out ProcessingData, err error, outputs map[string]ProcessingData, skipped map[string]bool) {
	d := time.Since(start)
	g.shared.RecordExecution(id, g.nodeType[id], d, out.Kind, err)
	if err != nil {
		g.logger.Warn("graph node error", "node_id", id, "node_type", g.nodeType[id], "error", err)
		skipped[id] = true
		return
	}
	outputs[id] = out
}

// NodeTelemetry returns a snapshot of every node's telemetry.
func (g *Graph) NodeTelemetry() map[string]NodeTelemetry {
	return g.shared.Telemetry()
}

// Order returns the graph's fixed topological execution order.
func (g *Graph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Node returns the live node instance for id, if present.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Reload applies a hot-reload diff, atomically: for IDs present in
// both the current graph and newSpec, UpdateConfig is called on the
// live node; for new IDs, a node is instantiated via factories and
// spliced in; for removed IDs, the node is detached and its state
// discarded. Validation (unique IDs, exactly one input node, known
// connection endpoints, acyclic result) runs against a trial copy
// before anything is mutated, so a failed reload leaves the running
// graph untouched. Whether a producer's output kind matches its
// consumer's input kind is not checked.
func (g *Graph) Reload(newSpec GraphSpec, b *Builder) error {
	trial, err := b.Build(newSpec, g.shared)
	if err != nil {
		return fmt.Errorf("graph: reload validation failed: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Nodes whose ID survives into newSpec keep their internal state
	// (delay lines, peak history, and similar) and are reconfigured
	// rather than replaced; only genuinely new IDs use the freshly
	// instantiated node from the trial build. A surviving node that
	// implements Cloneable is reconfigured on a copy first — only once
	// every survivor's UpdateConfig has been validated against its
	// copy does the loop below swap the copies in, so a rejected
	// update on node N never leaves nodes processed before N mutated
	// while N itself is rejected. A survivor with no Clone (none of
	// the current node kinds lack one where it matters) falls back to
	// reconfiguring in place, same as before.
	merged := make(map[string]Node, len(trial.nodes))
	for _, spec := range newSpec.Nodes {
		existing, ok := g.nodes[spec.ID]
		if !ok {
			merged[spec.ID] = trial.nodes[spec.ID]
			continue
		}
		if !existing.SupportsHotReload() {
			merged[spec.ID] = existing
			continue
		}
		cloneable, ok := existing.(Cloneable)
		if !ok {
			if _, err := existing.UpdateConfig(spec.Params); err != nil {
				return fmt.Errorf("graph: reload rejected by node %q: %w", spec.ID, err)
			}
			merged[spec.ID] = existing
			continue
		}
		cloned := cloneable.Clone()
		if _, err := cloned.UpdateConfig(spec.Params); err != nil {
			return fmt.Errorf("graph: reload rejected by node %q: %w", spec.ID, err)
		}
		merged[spec.ID] = cloned
	}

	g.nodes = merged
	g.nodeType = trial.nodeType
	g.predecessors = trial.predecessors
	g.order = trial.order
	g.id = trial.id

	g.logger.Info("processing graph reloaded", "graph_id", g.id, "nodes", len(g.nodes))
	return nil
}
