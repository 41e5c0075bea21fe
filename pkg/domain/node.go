package domain

// DefaultOutputHandle is the source handle used when an edge does not name one.
const DefaultOutputHandle = "out"

// Position places a node on the canvas. The engine never reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents one external-call template instance placed on the canvas.
type Node struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`

	// Params holds the static configuration entered in the node itself.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Data holds the values published into this node by its upstream neighbors.
	// Keys are upstream node IDs; each consumer owns an isolated copy.
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Output is the last value this node published.
	Output any `json:"output,omitempty" yaml:"output,omitempty"`

	Position Position `json:"position" yaml:"position"`
}

// Edge is a directed connection from Source to the TargetHandle input slot of Target.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	SourceHandle string `json:"source_handle,omitempty" yaml:"source_handle,omitempty"`
	Target       string `json:"target" yaml:"target"`
	TargetHandle string `json:"target_handle" yaml:"target_handle"`

	// Animated signals that the source has just fired. Liveness only.
	Animated bool `json:"animated,omitempty" yaml:"animated,omitempty"`
}

// Graph is a snapshot of the canvas.
// Node and edge order carries no meaning.
type Graph struct {
	Version uint64 `json:"version" yaml:"version"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge `json:"edges" yaml:"edges"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Params = CloneMap(n.Params)
	out.Data = CloneMap(n.Data)
	out.Output = CloneValue(n.Output)
	return out
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{Version: g.Version}
	out.Nodes = CloneNodes(g.Nodes)
	out.Edges = CloneEdges(g.Edges)
	return out
}

// Node finds a node by ID.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// CloneNodes deep copies a node list.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// CloneEdges copies an edge list. Edges hold no references.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// CloneMap deep copies a JSON-like map.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep copies JSON-like values (maps, slices and scalars).
// Other types are returned as is and must be treated as immutable.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
