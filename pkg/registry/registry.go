package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/schema"
)

// Call carries everything an external call may read.
type Call struct {
	NodeID string
	Params map[string]any
	Inputs map[string]any
}

// ExecuteFunc performs the external call of a node kind.
// It must honor ctx cancellation and may be slow or fail.
type ExecuteFunc func(ctx context.Context, call Call) (any, error)

// Slot is a named, typed input handle.
type Slot struct {
	Name string      `json:"name"`
	Type schema.Type `json:"-"`
}

// MarshalJSON renders the slot with its type name.
func (s Slot) MarshalJSON() ([]byte, error) {
	typ := "any"
	if s.Type != nil {
		typ = s.Type.Name()
	}
	return json.Marshal(struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}{s.Name, typ})
}

// Template describes one node kind: its inputs, parameters and external call.
type Template struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`

	// Code is the snippet shown on the node to explain what it calls.
	Code string `json:"code,omitempty"`

	Inputs []Slot        `json:"inputs"`
	Params schema.Schema `json:"params,omitempty"`

	Execute ExecuteFunc `json:"-"`
}

// RequiredSlots returns the input slot names in declaration order.
func (t Template) RequiredSlots() []string {
	names := make([]string, len(t.Inputs))
	for i, s := range t.Inputs {
		names[i] = s.Name
	}
	return names
}

// Slot looks up an input slot by name.
func (t Template) Slot(name string) (Slot, bool) {
	for _, s := range t.Inputs {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// ValidateInputs checks resolved inputs against the declared slot types.
func (t Template) ValidateInputs(inputs map[string]any) error {
	s := make(schema.Schema, len(t.Inputs))
	for _, slot := range t.Inputs {
		typ := slot.Type
		if typ == nil {
			typ = schema.Any()
		}
		s[slot.Name] = typ
	}
	return schema.Validate(s, inputs)
}

// Registry manages the available node kinds.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]Template),
	}
}

// Register adds a template to the registry.
// If a template with the same kind exists, it is overwritten.
func (r *Registry) Register(t Template) error {
	if t.Kind == "" {
		return fmt.Errorf("template kind is required")
	}
	if t.Execute == nil {
		return fmt.Errorf("template %s: execute function is required", t.Kind)
	}
	seen := make(map[string]bool, len(t.Inputs))
	for _, s := range t.Inputs {
		if s.Name == "" || seen[s.Name] {
			return fmt.Errorf("template %s: invalid or duplicate slot %q", t.Kind, s.Name)
		}
		seen[s.Name] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Kind] = t
	return nil
}

// MustRegister is like Register but panics on invalid templates.
func (r *Registry) MustRegister(t Template) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the template for a kind.
func (r *Registry) Lookup(kind string) (Template, error) {
	r.mu.RLock()
	t, ok := r.templates[kind]
	r.mu.RUnlock()

	if !ok {
		return Template{}, fmt.Errorf("%w: %s", domain.ErrUnknownKind, kind)
	}
	return t, nil
}

// Kinds returns every registered template sorted by kind.
func (r *Registry) Kinds() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// ValidateNode checks that a node references a known kind and carries valid params.
func (r *Registry) ValidateNode(n domain.Node) error {
	t, err := r.Lookup(n.Kind)
	if err != nil {
		return err
	}
	return schema.Validate(t.Params, n.Params)
}
