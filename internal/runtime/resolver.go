package runtime

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/playground/pkg/domain"
)

// Inputs holds the resolved values of a node's input slots.
type Inputs struct {
	values  map[string]any
	missing []string
}

// ResolveInputs reads the value of every required slot of node.
//
// A slot resolves through the single edge targeting it: its value is whatever the
// edge's source last published into node.Data. Slots with no edge, or whose source
// never published, are reported by Missing. ResolveInputs does no I/O.
func ResolveInputs(node domain.Node, edges []domain.Edge, slots []string) Inputs {
	in := Inputs{values: make(map[string]any, len(slots))}

	for _, slot := range slots {
		source, ok := feeding(node.ID, slot, edges)
		if !ok {
			in.missing = append(in.missing, slot)
			continue
		}
		v, ok := node.Data[source]
		if !ok {
			in.missing = append(in.missing, slot)
			continue
		}
		in.values[slot] = v
	}
	return in
}

// feeding returns the source of the edge targeting node's slot.
func feeding(nodeID, slot string, edges []domain.Edge) (string, bool) {
	for _, e := range edges {
		if e.Target == nodeID && e.TargetHandle == slot {
			return e.Source, true
		}
	}
	return "", false
}

// Get returns the value of one slot.
func (in Inputs) Get(slot string) (any, bool) {
	v, ok := in.values[slot]
	return v, ok
}

// Values returns a deep copy of the resolved values.
func (in Inputs) Values() map[string]any {
	return domain.CloneMap(in.values)
}

// Missing lists the slots that did not resolve, in declaration order.
func (in Inputs) Missing() []string {
	return append([]string(nil), in.missing...)
}

// Complete reports whether every required slot resolved.
func (in Inputs) Complete() bool {
	return len(in.missing) == 0
}

// fingerprint identifies the inputs of one dispatch.
// Two dispatches with equal fingerprints would make the same external call.
func fingerprint(params map[string]any, in Inputs) string {
	payload := struct {
		Params map[string]any `json:"p"`
		Inputs map[string]any `json:"i"`
	}{params, in.values}

	b, err := json.Marshal(payload)
	if err == nil {
		return string(b)
	}

	// Unencodable values fall back to their printed form.
	keys := make([]string, 0, len(in.values))
	for k := range in.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := fmt.Sprintf("%v|", params)
	for _, k := range keys {
		out += fmt.Sprintf("%s=%#v;", k, in.values[k])
	}
	return out
}
