package domain

import (
	"reflect"
	"sort"
)

// GraphDiff represents the changes between two graph snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type GraphDiff struct {
	Version uint64 `json:"version"`

	// Nodes contains added or modified nodes in full.
	Nodes []Node `json:"nodes,omitempty"`

	// RemovedNodes lists the IDs of deleted nodes.
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	// Edges contains added or modified edges (including animation flips).
	Edges []Edge `json:"edges,omitempty"`

	// RemovedEdges lists the IDs of deleted edges.
	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// Diff calculates the difference between oldGraph and newGraph.
// If oldGraph is nil, it returns a diff representing the entire newGraph (initial load).
// It returns nil when nothing changed.
func Diff(oldGraph, newGraph *Graph) *GraphDiff {
	if newGraph == nil {
		return nil
	}

	diff := &GraphDiff{Version: newGraph.Version}

	oldNodes := map[string]Node{}
	oldEdges := map[string]Edge{}
	if oldGraph != nil {
		for _, n := range oldGraph.Nodes {
			oldNodes[n.ID] = n
		}
		for _, e := range oldGraph.Edges {
			oldEdges[e.ID] = e
		}
	}

	for _, n := range newGraph.Nodes {
		prev, exists := oldNodes[n.ID]
		if !exists || !reflect.DeepEqual(prev, n) {
			diff.Nodes = append(diff.Nodes, n)
		}
		delete(oldNodes, n.ID)
	}
	for id := range oldNodes {
		diff.RemovedNodes = append(diff.RemovedNodes, id)
	}

	for _, e := range newGraph.Edges {
		prev, exists := oldEdges[e.ID]
		if !exists || prev != e {
			diff.Edges = append(diff.Edges, e)
		}
		delete(oldEdges, e.ID)
	}
	for id := range oldEdges {
		diff.RemovedEdges = append(diff.RemovedEdges, id)
	}

	if diff.IsEmpty() {
		return nil
	}

	sort.Strings(diff.RemovedNodes)
	sort.Strings(diff.RemovedEdges)
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *GraphDiff) IsEmpty() bool {
	return len(d.Nodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.Edges) == 0 &&
		len(d.RemovedEdges) == 0
}
