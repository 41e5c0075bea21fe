// Package schema provides the type system used to describe node templates.
//
// Each node kind declares the types of its input slots and of its static parameters.
// Inputs are checked right before an external call is dispatched, parameters are
// checked when a node is added to the canvas.
//
//	params := schema.Schema{
//	    "address": schema.Address(),
//	    "limit":   schema.Int(),
//	}
//
//	if err := schema.Validate(params, node.Params); err != nil {
//	    // reject the node
//	}
//
// Schemas can also be parsed from type strings, as found in YAML graph files:
//
//	s, err := schema.ParseTypeMap(map[string]string{"address": "address", "tags": "[string]"})
package schema
