package ports

import "github.com/aretw0/playground/pkg/domain"

// NodesUpdater derives a new node collection from the latest committed one.
// It receives a private copy and must not retain it after returning.
type NodesUpdater func(nodes []domain.Node) []domain.Node

// EdgesUpdater derives a new edge collection from the latest committed one.
type EdgesUpdater func(edges []domain.Edge) []domain.Edge

// GraphUpdater derives a new graph from the latest committed one, touching nodes and edges atomically.
type GraphUpdater func(g domain.Graph) domain.Graph

// GraphTx is a GraphUpdater that may abort. A non-nil error discards the change.
type GraphTx func(g domain.Graph) (domain.Graph, error)

// GraphStore owns the canonical set of nodes and edges of a canvas.
// Implementations must apply updaters one at a time against the latest snapshot,
// so that concurrent writers never lose each other's changes.
type GraphStore interface {
	// GetNode returns a copy of the node, or false if it does not exist.
	GetNode(id string) (domain.Node, bool)

	// GetEdges returns a copy of the current edges.
	GetEdges() []domain.Edge

	// SetNodes commits the result of fn and returns the new version.
	SetNodes(fn NodesUpdater) uint64

	// SetEdges commits the result of fn and returns the new version.
	SetEdges(fn EdgesUpdater) uint64

	// Update commits a change to nodes and edges as one version.
	Update(fn GraphUpdater) uint64

	// TryUpdate commits the result of fn unless it returns an error.
	// An aborted transaction does not bump the version.
	TryUpdate(fn GraphTx) (uint64, error)

	// Version returns the latest committed version.
	Version() uint64

	// Snapshot returns a deep copy of the current graph.
	Snapshot() domain.Graph
}

// ObservableGraphStore notifies subscribers after every commit.
type ObservableGraphStore interface {
	GraphStore

	// Subscribe returns a channel receiving the latest committed version.
	// Notifications coalesce: a slow reader only sees the newest version.
	// The returned function cancels the subscription and closes the channel.
	Subscribe() (<-chan uint64, func())
}
