package graph

// NodeSpec is the declarative description of one node, as parsed from
// a configuration fragment (hierarchical YAML/JSON per §6) before
// being instantiated by Builder.
type NodeSpec struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// Connection is a directed edge from one node's output to another
// node's input, keyed by node ID.
type Connection struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// GraphSpec is the full declarative graph: nodes plus connections.
// Builder.Build compiles this into an executable Graph.
type GraphSpec struct {
	ID          string       `yaml:"id"`
	Nodes       []NodeSpec   `yaml:"nodes"`
	Connections []Connection `yaml:"connections"`
}
