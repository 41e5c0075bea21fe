package dsl

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/playground/internal/runtime"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/registry"
)

// Layout spacing used when a node has no explicit position.
const (
	ColumnWidth = 280
	RowHeight   = 140
)

// Builder manages the graph construction.
type Builder struct {
	order []string
	nodes map[string]*NodeBuilder
	edges []domain.Edge
	errs  []error
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node of the given kind.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id, kind string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		if nb.node.Kind != kind {
			b.errs = append(b.errs, &domain.WiringError{Op: "add_node", NodeID: id, Err: domain.ErrDuplicateID})
		}
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Kind: kind},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Connect feeds the output of source into the slot of target.
func (b *Builder) Connect(source, target, slot string) *Builder {
	b.edges = append(b.edges, domain.Edge{
		ID:           fmt.Sprintf("%s-%s-%s", source, target, slot),
		Source:       source,
		SourceHandle: domain.DefaultOutputHandle,
		Target:       target,
		TargetHandle: slot,
	})
	return b
}

// Build returns the graph after checking its structure: unknown endpoints,
// self loops, fan-in, duplicate edges and cycles.
// Kinds and params are not checked; use BuildFor for that.
func (b *Builder) Build() (domain.Graph, error) {
	g := domain.Graph{}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].node.Clone())
	}

	errs := append([]error(nil), b.errs...)
	seen := make(map[string]bool, len(b.edges))
	fed := make(map[string]bool, len(b.edges))
	for _, e := range b.edges {
		switch {
		case b.nodes[e.Source] == nil:
			errs = append(errs, &domain.WiringError{Op: "connect", NodeID: e.Source, Err: domain.ErrNodeNotFound})
		case b.nodes[e.Target] == nil:
			errs = append(errs, &domain.WiringError{Op: "connect", NodeID: e.Target, Err: domain.ErrNodeNotFound})
		case e.Source == e.Target:
			errs = append(errs, &domain.WiringError{Op: "connect", NodeID: e.Target, Slot: e.TargetHandle, Err: domain.ErrSelfLoop})
		case seen[e.ID]:
			errs = append(errs, &domain.WiringError{Op: "connect", NodeID: e.Target, Slot: e.TargetHandle, Err: domain.ErrDuplicateID})
		case fed[e.Target+"\x00"+e.TargetHandle]:
			errs = append(errs, &domain.WiringError{Op: "connect", NodeID: e.Target, Slot: e.TargetHandle, Err: domain.ErrSlotOccupied})
		default:
			seen[e.ID] = true
			fed[e.Target+"\x00"+e.TargetHandle] = true
			g.Edges = append(g.Edges, e)
		}
	}
	if len(errs) > 0 {
		return domain.Graph{}, errors.Join(errs...)
	}

	depth, ok := depths(g)
	if !ok {
		return domain.Graph{}, &domain.WiringError{Op: "build", Err: domain.ErrCycle}
	}
	layout(g, depth, b)
	return g, nil
}

// BuildFor builds the graph and checks it against the kinds in reg.
func (b *Builder) BuildFor(reg *registry.Registry) (domain.Graph, error) {
	g, err := b.Build()
	if err != nil {
		return g, err
	}
	if err := runtime.ValidateGraph(g, reg); err != nil {
		return domain.Graph{}, err
	}
	return g, nil
}

// depths returns the longest distance of every node from a source node.
// It reports false when the graph has a cycle.
func depths(g domain.Graph) (map[string]int, bool) {
	indegree := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		indegree[e.Target]++
	}

	var queue []string
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	depth := make(map[string]int, len(g.Nodes))
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, e := range g.Edges {
			if e.Source != id {
				continue
			}
			if d := depth[id] + 1; d > depth[e.Target] {
				depth[e.Target] = d
			}
			indegree[e.Target]--
			if indegree[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}
	return depth, visited == len(g.Nodes)
}

// layout places nodes without an explicit position in columns by depth.
func layout(g domain.Graph, depth map[string]int, b *Builder) {
	rows := make(map[int]int)
	idx := make([]int, len(g.Nodes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return depth[g.Nodes[idx[i]].ID] < depth[g.Nodes[idx[j]].ID] })

	for _, i := range idx {
		n := &g.Nodes[i]
		if b.nodes[n.ID].placed {
			continue
		}
		d := depth[n.ID]
		n.Position = domain.Position{X: float64(d * ColumnWidth), Y: float64(rows[d] * RowHeight)}
		rows[d]++
	}
}
