/*
Package ports defines the driven ports (interfaces) for the playground engine.

These interfaces decouple the dataflow engine from concrete implementations, allowing
it to work with various graph stores, persistence backends and lock providers.

# Key Interfaces

  - GraphStore: Holds the canonical nodes and edges of a live canvas. All writes are
    pure updaters applied to the latest snapshot.
  - PlaygroundStore: Persists named playgrounds (memory, file, Redis).
  - DistributedLocker: Provides distributed locking for concurrent playground access.
*/
package ports
