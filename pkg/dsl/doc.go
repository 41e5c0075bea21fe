/*
Package dsl provides a fluent builder for playground graphs.

It lets Go code define graphs without YAML or JSON files, which is useful for
examples, tests and generated playgrounds. Nodes without an explicit position
are laid out in columns by their distance from a source node.

Example usage:

	b := dsl.New()

	b.Add("wallet", kinds.PublicKey).
		Param("address", "11111111111111111111111111111111")

	b.Add("balance", kinds.GetBalance).
		From("wallet", "address")

	b.Add("report", kinds.FormatJSON).
		From("balance", "value")

	g, err := b.BuildFor(reg)
	// ... pass g to playground.New(playground.WithGraph(g))
*/
package dsl
