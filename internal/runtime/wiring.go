package runtime

import (
	"fmt"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/registry"
)

// checkNode rejects nodes of unknown kinds or with invalid params.
func checkNode(reg *registry.Registry, n domain.Node) error {
	if n.ID == "" {
		return &domain.WiringError{Op: "add_node", Err: fmt.Errorf("node id is required")}
	}
	if err := reg.ValidateNode(n); err != nil {
		return &domain.WiringError{Op: "add_node", NodeID: n.ID, Err: err}
	}
	return nil
}

// checkEdge rejects an edge that cannot be added to g.
func checkEdge(g domain.Graph, reg *registry.Registry, e domain.Edge) error {
	wrap := func(err error) error {
		return &domain.WiringError{Op: "connect", NodeID: e.Target, Slot: e.TargetHandle, Err: err}
	}

	if e.Source == e.Target {
		return wrap(domain.ErrSelfLoop)
	}
	if _, ok := g.Node(e.Source); !ok {
		return wrap(fmt.Errorf("%w: %s", domain.ErrNodeNotFound, e.Source))
	}
	target, ok := g.Node(e.Target)
	if !ok {
		return wrap(fmt.Errorf("%w: %s", domain.ErrNodeNotFound, e.Target))
	}

	tpl, err := reg.Lookup(target.Kind)
	if err != nil {
		return wrap(err)
	}
	if _, ok := tpl.Slot(e.TargetHandle); !ok {
		return wrap(fmt.Errorf("%w: %s has no input %q", domain.ErrUnknownSlot, target.Kind, e.TargetHandle))
	}

	for _, existing := range g.Edges {
		if existing.ID == e.ID {
			return wrap(fmt.Errorf("%w: edge %s", domain.ErrDuplicateID, e.ID))
		}
		if existing.Target == e.Target && existing.TargetHandle == e.TargetHandle {
			return wrap(fmt.Errorf("%w: fed by %s", domain.ErrSlotOccupied, existing.Source))
		}
	}

	if reaches(g.Edges, e.Target, e.Source) {
		return wrap(domain.ErrCycle)
	}
	return nil
}

// reaches reports whether to is reachable from from by following edges.
func reaches(edges []domain.Edge, from, to string) bool {
	next := make(map[string][]string)
	for _, e := range edges {
		next[e.Source] = append(next[e.Source], e.Target)
	}

	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == to {
			return true
		}
		for _, n := range next[id] {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false
}

// ValidateGraph checks a whole graph as if it had been built edit by edit.
func ValidateGraph(g domain.Graph, reg *registry.Registry) error {
	built := domain.Graph{}
	for _, n := range g.Nodes {
		if _, dup := built.Node(n.ID); dup {
			return &domain.WiringError{Op: "add_node", NodeID: n.ID, Err: domain.ErrDuplicateID}
		}
		if err := checkNode(reg, n); err != nil {
			return err
		}
		built.Nodes = append(built.Nodes, n)
	}
	for _, e := range g.Edges {
		if err := checkEdge(built, reg, e); err != nil {
			return err
		}
		built.Edges = append(built.Edges, e)
	}
	return nil
}

func nodeIndex(nodes []domain.Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}
