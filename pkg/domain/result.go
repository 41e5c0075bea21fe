package domain

import "time"

// RunStatus is the execution state of a single node.
type RunStatus string

const (
	StatusIdle    RunStatus = "idle"    // No run yet, or waiting for inputs
	StatusPending RunStatus = "pending" // External call in flight
	StatusSuccess RunStatus = "success" // Last call returned a value
	StatusError   RunStatus = "error"   // Last call failed
)

// Result is the transient execution state of a node, owned by that node only.
// Downstream nodes never read it; they only see published values.
type Result struct {
	NodeID string    `json:"node_id"`
	Status RunStatus `json:"status"`
	Value  any       `json:"value,omitempty"`
	Error  string    `json:"error,omitempty"`

	// Missing lists required slots that did not resolve on the last evaluation.
	Missing []string `json:"missing,omitempty"`

	// Runs counts dispatched external calls.
	Runs      uint64    `json:"runs"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
