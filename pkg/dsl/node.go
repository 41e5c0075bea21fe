package dsl

import "github.com/aretw0/playground/pkg/domain"

// NodeBuilder configures a single node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
	placed  bool
}

// Param sets a single param.
func (nb *NodeBuilder) Param(key string, value any) *NodeBuilder {
	if nb.node.Params == nil {
		nb.node.Params = make(map[string]any)
	}
	nb.node.Params[key] = value
	return nb
}

// Params merges params into the node.
func (nb *NodeBuilder) Params(params map[string]any) *NodeBuilder {
	for k, v := range params {
		nb.Param(k, v)
	}
	return nb
}

// At pins the node to a canvas position.
func (nb *NodeBuilder) At(x, y float64) *NodeBuilder {
	nb.node.Position = domain.Position{X: x, Y: y}
	nb.placed = true
	return nb
}

// From feeds the output of source into the given input slot of this node.
func (nb *NodeBuilder) From(source, slot string) *NodeBuilder {
	nb.builder.Connect(source, nb.node.ID, slot)
	return nb
}

// To feeds this node's output into the slot of target.
func (nb *NodeBuilder) To(target, slot string) *NodeBuilder {
	nb.builder.Connect(nb.node.ID, target, slot)
	return nb
}

// Node returns a copy of the node as configured so far.
func (nb *NodeBuilder) Node() domain.Node {
	return nb.node.Clone()
}
