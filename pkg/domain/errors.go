package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a node ID is not present in the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrEdgeNotFound is returned when an edge ID is not present in the graph.
var ErrEdgeNotFound = errors.New("edge not found")

// ErrUnknownKind is returned when a node references a kind with no registered template.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrUnknownSlot is returned when an edge targets an input slot the template does not declare.
var ErrUnknownSlot = errors.New("unknown input slot")

// ErrSlotOccupied is returned when a target slot is already fed by another edge.
var ErrSlotOccupied = errors.New("input slot already connected")

// ErrCycle is returned when a connection would close a cycle.
var ErrCycle = errors.New("connection would create a cycle")

// ErrSelfLoop is returned when a node is connected to itself.
var ErrSelfLoop = errors.New("node cannot be connected to itself")

// ErrDuplicateID is returned when a node or edge ID is reused.
var ErrDuplicateID = errors.New("duplicate id")

// ErrPlaygroundNotFound is returned when a playground ID cannot be found in the store.
var ErrPlaygroundNotFound = errors.New("playground not found")

// WiringError describes a rejected graph edit.
type WiringError struct {
	Op     string // e.g. "connect", "add_node"
	NodeID string
	Slot   string
	Err    error
}

func (e *WiringError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("%s %s.%s: %v", e.Op, e.NodeID, e.Slot, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *WiringError) Unwrap() error { return e.Err }

// ExternalCallError wraps a failure of a node's external call.
// It is shown on the node and never forwarded downstream.
type ExternalCallError struct {
	NodeID string
	Kind   string
	Err    error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Kind, e.NodeID, e.Err)
}

func (e *ExternalCallError) Unwrap() error { return e.Err }
