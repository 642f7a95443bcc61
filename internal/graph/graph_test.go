package graph

import (
	"errors"
	"testing"

	"github.com/sctg-development/photoacoustic-core/internal/metrics"
)

type recordingNode struct {
	id      string
	typ     string
	fail    bool
	calls   int
}

func (n *recordingNode) Process(input ProcessingData) (ProcessingData, error) {
	n.calls++
	if n.fail {
		return Empty, errors.New("boom")
	}
	return input, nil
}
func (n *recordingNode) ID() string                                 { return n.id }
func (n *recordingNode) Type() string                               { return n.typ }
func (n *recordingNode) AcceptsInput(ProcessingData) bool           { return true }
func (n *recordingNode) OutputType(input ProcessingData) Kind       { return input.Kind }
func (n *recordingNode) Reset()                                     {}
func (n *recordingNode) SupportsHotReload() bool                    { return false }
func (n *recordingNode) UpdateConfig(map[string]any) (bool, error)  { return false, nil }

func buildLinearGraph(t *testing.T, failMiddle bool) (*Graph, *recordingNode, *recordingNode, *recordingNode) {
	t.Helper()
	in := &recordingNode{id: "input", typ: "input"}
	mid := &recordingNode{id: "mid", typ: "passthrough", fail: failMiddle}
	out := &recordingNode{id: "out", typ: "passthrough"}

	b := NewBuilder(nil)
	b.RegisterFactory("input", func(spec NodeSpec, shared *SharedData) (Node, error) { return in, nil })
	b.RegisterFactory("passthrough", func(spec NodeSpec, shared *SharedData) (Node, error) {
		if spec.ID == "mid" {
			return mid, nil
		}
		return out, nil
	})

	spec := GraphSpec{
		Nodes: []NodeSpec{
			{ID: "input", Type: "input"},
			{ID: "mid", Type: "passthrough"},
			{ID: "out", Type: "passthrough"},
		},
		Connections: []Connection{
			{From: "input", To: "mid"},
			{From: "mid", To: "out"},
		},
	}
	g, err := b.Build(spec, NewSharedData())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return g, in, mid, out
}

func TestExecuteRunsAllNodesOnSuccess(t *testing.T) {
	g, in, mid, out := buildLinearGraph(t, false)
	g.Execute(Empty)

	if in.calls != 1 || mid.calls != 1 || out.calls != 1 {
		t.Fatalf("expected every node to execute once, got in=%d mid=%d out=%d", in.calls, mid.calls, out.calls)
	}

	telemetry := g.NodeTelemetry()
	for _, id := range []string{"input", "mid", "out"} {
		if telemetry[id].Executions != 1 {
			t.Fatalf("expected %s executions == 1, got %d", id, telemetry[id].Executions)
		}
	}
}

func TestExecuteSkipsDownstreamOnError(t *testing.T) {
	g, in, mid, out := buildLinearGraph(t, true)
	g.Execute(Empty)

	if in.calls != 1 || mid.calls != 1 {
		t.Fatalf("expected input and mid to execute")
	}
	if out.calls != 0 {
		t.Fatalf("expected out to be skipped after mid's error, but it ran %d times", out.calls)
	}

	telemetry := g.NodeTelemetry()
	if telemetry["mid"].Errors != 1 {
		t.Fatalf("expected mid to record 1 error, got %d", telemetry["mid"].Errors)
	}
	if _, ran := telemetry["out"]; ran {
		t.Fatalf("expected out to have no telemetry recorded since it never executed")
	}
}

func TestExecuteCountersAreMonotonic(t *testing.T) {
	g, _, _, _ := buildLinearGraph(t, false)
	for i := 0; i < 5; i++ {
		g.Execute(Empty)
	}
	telemetry := g.NodeTelemetry()
	if telemetry["input"].Executions != 5 {
		t.Fatalf("expected 5 executions, got %d", telemetry["input"].Executions)
	}
}

// configurableNode is a minimal Cloneable, hot-reloadable node: value
// rejects any update setting it negative, leaving value untouched.
type configurableNode struct {
	id    string
	typ   string
	value int
}

func (n *configurableNode) Process(input ProcessingData) (ProcessingData, error) { return input, nil }
func (n *configurableNode) ID() string                                           { return n.id }
func (n *configurableNode) Type() string                                         { return n.typ }
func (n *configurableNode) AcceptsInput(ProcessingData) bool                     { return true }
func (n *configurableNode) OutputType(input ProcessingData) Kind                 { return input.Kind }
func (n *configurableNode) Reset()                                               {}
func (n *configurableNode) SupportsHotReload() bool                              { return true }

func (n *configurableNode) UpdateConfig(parameters map[string]any) (bool, error) {
	raw, ok := parameters["value"]
	if !ok {
		return false, nil
	}
	v, ok := raw.(int)
	if !ok || v < 0 {
		return false, errors.New("value must be a non-negative int")
	}
	n.value = v
	return true, nil
}

func (n *configurableNode) Clone() Node {
	return &configurableNode{id: n.id, typ: n.typ, value: n.value}
}

func buildConfigurableGraph(t *testing.T) (*Graph, *Builder, *configurableNode, *configurableNode) {
	t.Helper()
	a := &configurableNode{id: "a", typ: "configurable", value: 1}
	c := &configurableNode{id: "c", typ: "configurable", value: 2}

	b := NewBuilder(nil)
	b.RegisterFactory("configurable", func(spec NodeSpec, shared *SharedData) (Node, error) {
		switch spec.ID {
		case "a":
			return a, nil
		case "c":
			return c, nil
		default:
			return &configurableNode{id: spec.ID, typ: "configurable"}, nil
		}
	})

	spec := GraphSpec{
		Nodes: []NodeSpec{
			{ID: "a", Type: "configurable"},
			{ID: "c", Type: "configurable"},
		},
	}
	g, err := b.Build(spec, NewSharedData())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return g, b, a, c
}

func TestReloadRejectsInvalidUpdateWithoutMutatingSurvivors(t *testing.T) {
	g, b, a, c := buildConfigurableGraph(t)

	newSpec := GraphSpec{
		Nodes: []NodeSpec{
			{ID: "a", Type: "configurable", Params: map[string]any{"value": 99}},
			{ID: "c", Type: "configurable", Params: map[string]any{"value": -1}},
		},
	}

	if err := g.Reload(newSpec, b); err == nil {
		t.Fatalf("expected Reload to fail when node c rejects its update")
	}

	if a.value != 1 {
		t.Fatalf("node a was mutated despite a later node rejecting the reload: value = %d, want 1", a.value)
	}
	if c.value != 2 {
		t.Fatalf("node c was mutated despite rejecting its own update: value = %d, want 2", c.value)
	}

	live, ok := g.Node("a")
	if !ok {
		t.Fatalf("node a missing from graph after failed reload")
	}
	if live.(*configurableNode) != a {
		t.Fatalf("graph's live node a was swapped despite the reload failing")
	}
}

func TestReloadCommitsAllUpdatesOnSuccess(t *testing.T) {
	g, b, a, c := buildConfigurableGraph(t)

	newSpec := GraphSpec{
		Nodes: []NodeSpec{
			{ID: "a", Type: "configurable", Params: map[string]any{"value": 10}},
			{ID: "c", Type: "configurable", Params: map[string]any{"value": 20}},
		},
	}

	if err := g.Reload(newSpec, b); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	liveA, _ := g.Node("a")
	liveC, _ := g.Node("c")
	if liveA.(*configurableNode).value != 10 {
		t.Fatalf("node a value = %d, want 10", liveA.(*configurableNode).value)
	}
	if liveC.(*configurableNode).value != 20 {
		t.Fatalf("node c value = %d, want 20", liveC.(*configurableNode).value)
	}

	// The original instances are left behind: Reload installed clones.
	if a.value != 1 || c.value != 2 {
		t.Fatalf("original node instances were mutated in place: a=%d c=%d", a.value, c.value)
	}
}

func TestNodeTimingsMirrorsTelemetry(t *testing.T) {
	g, _, mid, _ := buildLinearGraph(t, true)
	g.Execute(Empty)

	timings := g.NodeTimings()
	if g.GraphID() != g.ID() {
		t.Fatalf("GraphID() = %q, want ID() = %q", g.GraphID(), g.ID())
	}

	byID := make(map[string]metrics.GraphNodeTiming, len(timings))
	for _, tm := range timings {
		byID[tm.NodeID] = tm
	}

	inStats, ok := byID["input"]
	if !ok || inStats.Executions != 1 || inStats.Errors != 0 {
		t.Fatalf("unexpected input timing: %+v (ok=%v)", inStats, ok)
	}
	midStats, ok := byID[mid.ID()]
	if !ok || midStats.Executions != 1 || midStats.Errors != 1 {
		t.Fatalf("unexpected mid timing: %+v (ok=%v)", midStats, ok)
	}
}
