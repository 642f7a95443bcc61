package graph

// Node is the interface every graph node implements, a direct Go
// rendering of the process/node_id/node_type/accepts_input/output_type
// /reset/clone_node/supports_hot_reload/update_config contract.
type Node interface {
	// Process transforms input into this node's output. Errors are
	// recorded against the node by the graph and do not stop
	// execution of sibling branches.
	Process(input ProcessingData) (ProcessingData, error)

	ID() string
	Type() string

	// AcceptsInput reports whether this node can consume the given
	// variant.
	AcceptsInput(input ProcessingData) bool

	// OutputType reports the variant this node would produce for the
	// given input, without executing Process. Returns KindEmpty when
	// no output applies.
	OutputType(input ProcessingData) Kind

	// Reset zeroes any internal state (filter delay lines, peak
	// history, pink-noise stages, and similar).
	Reset()

	// SupportsHotReload reports whether UpdateConfig is meaningful for
	// this node; nodes with no configurable parameters (e.g. input)
	// return false.
	SupportsHotReload() bool

	// UpdateConfig applies a parameter diff in place. Returns true if
	// anything changed, and a diagnostic error for unknown or
	// out-of-range parameters; on error the node's prior configuration
	// is left untouched.
	UpdateConfig(parameters map[string]any) (bool, error)
}

// Cloneable is implemented by hot-reloadable nodes that can produce an
// independent copy of themselves. Reload uses it to validate a
// parameter diff against the copy before touching the live node, so a
// rejected update never partially mutates the running graph.
type Cloneable interface {
	Node
	Clone() Node
}

// MultiInputNode is implemented by nodes that need more than one input
// (currently only DifferentialNode, which combines two SingleChannel
// producers as A−B). Nodes that don't implement it are assumed to
// have exactly one predecessor, resolved from the graph's connection
// map.
type MultiInputNode interface {
	Node
	// ProcessMany combines multiple predecessor outputs, in the
	// declared input order, into this node's output.
	ProcessMany(inputs []ProcessingData) (ProcessingData, error)
}
