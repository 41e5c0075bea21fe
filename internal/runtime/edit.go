package runtime

import (
	"fmt"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/google/uuid"
)

// AddNode validates n and adds it to the graph. An empty ID is replaced by a new UUID.
func (e *Engine) AddNode(n domain.Node) (domain.Node, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Data = nil
	n.Output = nil
	if err := checkNode(e.registry, n); err != nil {
		return domain.Node{}, err
	}

	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		if nodeIndex(g.Nodes, n.ID) >= 0 {
			return g, &domain.WiringError{Op: "add_node", NodeID: n.ID, Err: domain.ErrDuplicateID}
		}
		g.Nodes = append(g.Nodes, n.Clone())
		return g, nil
	})
	if err != nil {
		return domain.Node{}, err
	}
	e.logger.Debug("node added", "node", n.ID, "kind", n.Kind)
	return n, nil
}

// RemoveNode deletes a node, its edges and every value it published downstream.
func (e *Engine) RemoveNode(id string) error {
	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		i := nodeIndex(g.Nodes, id)
		if i < 0 {
			return g, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)

		edges := g.Edges[:0]
		for _, edge := range g.Edges {
			if edge.Source != id && edge.Target != id {
				edges = append(edges, edge)
			}
		}
		g.Edges = edges

		for j := range g.Nodes {
			delete(g.Nodes[j].Data, id)
		}
		return g, nil
	})
	if err == nil {
		e.logger.Debug("node removed", "node", id)
	}
	return err
}

// UpdateParams replaces the params of a node. Changed params make the node run again.
func (e *Engine) UpdateParams(id string, params map[string]any) (domain.Node, error) {
	var updated domain.Node
	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		i := nodeIndex(g.Nodes, id)
		if i < 0 {
			return g, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		candidate := g.Nodes[i]
		candidate.Params = domain.CloneMap(params)
		if err := checkNode(e.registry, candidate); err != nil {
			return g, err
		}
		g.Nodes[i] = candidate
		updated = candidate.Clone()
		return g, nil
	})
	return updated, err
}

// MoveNode changes the canvas position of a node.
func (e *Engine) MoveNode(id string, pos domain.Position) error {
	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		i := nodeIndex(g.Nodes, id)
		if i < 0 {
			return g, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
		}
		g.Nodes[i].Position = pos
		return g, nil
	})
	return err
}

// Connect feeds the slot input of target from source.
// If source already published a value, target receives it right away.
func (e *Engine) Connect(source, target, slot string) (domain.Edge, error) {
	edge := domain.Edge{
		ID:           uuid.NewString(),
		Source:       source,
		SourceHandle: domain.DefaultOutputHandle,
		Target:       target,
		TargetHandle: slot,
	}

	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		if err := checkEdge(g, e.registry, edge); err != nil {
			return g, err
		}
		g.Edges = append(g.Edges, edge)

		src, _ := g.Node(source)
		if src.Output != nil {
			t := nodeIndex(g.Nodes, target)
			if g.Nodes[t].Data == nil {
				g.Nodes[t].Data = make(map[string]any)
			}
			g.Nodes[t].Data[source] = domain.CloneValue(src.Output)
		}
		return g, nil
	})
	if err != nil {
		return domain.Edge{}, err
	}
	e.logger.Debug("nodes connected", "source", source, "target", target, "slot", slot)
	return edge, nil
}

// Disconnect removes an edge. The target forgets the source's value unless
// another edge from the same source still feeds it.
func (e *Engine) Disconnect(edgeID string) error {
	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		var removed domain.Edge
		found := false
		edges := g.Edges[:0]
		for _, edge := range g.Edges {
			if edge.ID == edgeID {
				removed, found = edge, true
				continue
			}
			edges = append(edges, edge)
		}
		if !found {
			return g, fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, edgeID)
		}
		g.Edges = edges

		for _, edge := range g.Edges {
			if edge.Source == removed.Source && edge.Target == removed.Target {
				return g, nil
			}
		}
		if t := nodeIndex(g.Nodes, removed.Target); t >= 0 {
			delete(g.Nodes[t].Data, removed.Source)
		}
		return g, nil
	})
	return err
}

// Load validates g and replaces the whole graph with it. Run state is reset.
func (e *Engine) Load(g domain.Graph) error {
	if err := ValidateGraph(g, e.registry); err != nil {
		return err
	}
	e.store.Update(func(current domain.Graph) domain.Graph {
		e.reset(current.Version + 1)
		next := g.Clone()
		next.Version = current.Version
		return next
	})
	return nil
}

// Snapshot returns a copy of the current graph.
func (e *Engine) Snapshot() domain.Graph {
	return e.store.Snapshot()
}
