package playground_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/playground"
)

// ExampleNew shows a value flowing from a constant node into a formatter.
// Neither kind talks to the network.
func ExampleNew() {
	eng, err := playground.New()
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	src, err := eng.AddNode("constant", map[string]any{"value": map[string]any{"mint": "X1"}})
	if err != nil {
		log.Fatal(err)
	}
	fmtNode, err := eng.AddNode("format_json", nil)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := eng.Connect(src.ID, fmtNode.ID, "value"); err != nil {
		log.Fatal(err)
	}

	if err := eng.Settle(context.Background()); err != nil {
		log.Fatal(err)
	}

	res, _ := eng.Result(fmtNode.ID)
	fmt.Println(res.Status)
	fmt.Println(res.Value)
	// Output:
	// success
	// {
	//   "mint": "X1"
	// }
}
