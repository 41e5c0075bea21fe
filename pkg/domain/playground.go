package domain

import "time"

// Playground is a named, persisted canvas.
// Execution results are never part of it; they are recomputed after load.
type Playground struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	OwnerID    string    `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Network    string    `json:"network,omitempty" yaml:"network,omitempty"`
	PreviewURI string    `json:"preview_uri,omitempty" yaml:"preview_uri,omitempty"`
	Graph      Graph     `json:"graph" yaml:"graph"`

	// Sealed carries an encrypted copy of the playground when a sealing
	// middleware is in use. Graph is empty in that case.
	Sealed []byte `json:"sealed,omitempty" yaml:"sealed,omitempty"`

	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// DefaultPlaygroundName is used when a playground is saved without a name.
const DefaultPlaygroundName = "Untitled"

// Clone returns a deep copy of the playground.
func (p Playground) Clone() Playground {
	out := p
	out.Graph = p.Graph.Clone()
	if p.Sealed != nil {
		out.Sealed = append([]byte(nil), p.Sealed...)
	}
	return out
}
