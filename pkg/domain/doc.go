/*
Package domain contains the core domain models of the playground engine.

It defines the graph that users build on the canvas (Nodes wired together by Edges),
the transient execution Result of each node and the events emitted while the engine
resolves and executes the graph. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Node: One SDK call placed on the canvas. Its Data holds the values published to it
    by upstream nodes, keyed by the upstream node ID.
  - Edge: A directed connection from a source node to a named input slot of a target node.
  - Graph: A versioned snapshot of nodes and edges.
  - Result: The transient execution state of a node (idle, pending, success, error).
  - Playground: A named, persisted Graph.
*/
package domain
