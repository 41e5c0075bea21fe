// Package registry holds the node kinds available on the canvas.
//
// Nodes are a tagged union keyed by kind: every kind is described by a Template that
// declares its typed input slots and parameters, so wiring mistakes are rejected when
// the graph is edited rather than when a value is read.
package registry
