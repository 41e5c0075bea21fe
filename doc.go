/*
Package playground is a dataflow engine for visual blockchain SDK playgrounds.

A playground is a canvas of nodes. Each node wraps one external call (fetch a
balance, read a candy machine account, format a value) and declares typed input
slots. Edges connect the output of one node to an input slot of another.

# Concept

The engine keeps the canvas in a copy-on-write graph store. Whenever the store
commits, every node re-resolves its inputs from the values its upstream neighbors
published into it. A node whose inputs are complete and different from its last
run dispatches its external call; when the call succeeds the result is written,
one hop, into every direct consumer, which makes them re-evaluate in turn.

  - Nodes with missing inputs stay idle and never call out.
  - Identical inputs never trigger a second call.
  - Results of superseded runs are dropped.
  - Errors stay on the failing node and are never propagated.

# Usage

	eng, err := playground.New(playground.WithNetwork("devnet"))
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	key, _ := eng.AddNode("public_key", map[string]any{"address": "So11111111111111111111111111111111111111112"})
	bal, _ := eng.AddNode("get_balance", nil)
	if _, err := eng.Connect(key.ID, bal.ID, "address"); err != nil {
		log.Fatal(err)
	}

	_ = eng.Settle(ctx)
	res, _ := eng.Result(bal.ID)
	fmt.Println(res.Status, res.Value)

Saved playgrounds, sessions, the HTTP API and the MCP server live in the pkg/
subpackages; the playground command wires them together.
*/
package playground
