package tests

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
)

// GraphStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.GraphStore.
func GraphStoreContractTest(t *testing.T, newStore func(domain.Graph) ports.GraphStore) {
	t.Helper()

	seed := domain.Graph{
		Nodes: []domain.Node{{ID: "a", Kind: "constant"}, {ID: "b", Kind: "get_balance"}},
		Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "b", TargetHandle: "address"}},
	}

	t.Run("GetNode", func(t *testing.T) {
		store := newStore(seed)
		n, ok := store.GetNode("a")
		if !ok || n.Kind != "constant" {
			t.Fatalf("GetNode(a) = %+v, %v", n, ok)
		}
		if _, ok := store.GetNode("missing"); ok {
			t.Error("GetNode(missing) should report absence")
		}
	})

	t.Run("Versions Increase", func(t *testing.T) {
		store := newStore(seed)
		v0 := store.Snapshot().Version
		v1 := store.SetNodes(func(n []domain.Node) []domain.Node { return n })
		v2 := store.SetEdges(func(e []domain.Edge) []domain.Edge { return e })
		v3 := store.Update(func(g domain.Graph) domain.Graph { return g })
		if !(v0 < v1 && v1 < v2 && v2 < v3) {
			t.Errorf("versions not increasing: %d %d %d %d", v0, v1, v2, v3)
		}
	})

	t.Run("Aborted Transaction Commits Nothing", func(t *testing.T) {
		store := newStore(seed)
		before := store.Version()
		boom := errors.New("boom")

		_, err := store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
			g.Nodes = nil
			return g, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("TryUpdate error = %v, want %v", err, boom)
		}
		if store.Version() != before {
			t.Errorf("version moved from %d to %d on abort", before, store.Version())
		}
		if _, ok := store.GetNode("a"); !ok {
			t.Error("aborted transaction was applied")
		}

		v, err := store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
			g.Edges = nil
			return g, nil
		})
		if err != nil || v != before+1 {
			t.Errorf("TryUpdate = %d, %v; want %d, nil", v, err, before+1)
		}
		if len(store.GetEdges()) != 0 {
			t.Error("committed transaction is not visible")
		}
	})

	t.Run("Reads Are Copies", func(t *testing.T) {
		store := newStore(seed)
		n, _ := store.GetNode("b")
		n.Data = map[string]any{"a": "leak"}
		edges := store.GetEdges()
		edges[0].Animated = true

		again, _ := store.GetNode("b")
		if again.Data["a"] != nil {
			t.Error("mutating a read node leaked into the store")
		}
		if store.GetEdges()[0].Animated {
			t.Error("mutating read edges leaked into the store")
		}
	})

	t.Run("Updater Mutation Is Not Visible Until Commit", func(t *testing.T) {
		store := newStore(seed)
		store.SetNodes(func(nodes []domain.Node) []domain.Node {
			nodes[0].Params = map[string]any{"value": "draft"}
			if n, _ := store.GetNode("a"); n.Params["value"] == "draft" {
				t.Error("reader observed an uncommitted update")
			}
			return nodes
		})
		if n, _ := store.GetNode("a"); n.Params["value"] != "draft" {
			t.Error("committed update is not visible")
		}
	})

	t.Run("Concurrent Writers Lose Nothing", func(t *testing.T) {
		store := newStore(domain.Graph{Nodes: []domain.Node{{ID: "sink", Data: map[string]any{}}}})
		const writers = 64
		var wg sync.WaitGroup
		wg.Add(writers)
		for i := 0; i < writers; i++ {
			go func(i int) {
				defer wg.Done()
				store.SetNodes(func(nodes []domain.Node) []domain.Node {
					for j := range nodes {
						if nodes[j].ID == "sink" {
							nodes[j].Data[fmt.Sprintf("w%d", i)] = i
						}
					}
					return nodes
				})
			}(i)
		}
		wg.Wait()

		sink, _ := store.GetNode("sink")
		if len(sink.Data) != writers {
			t.Errorf("got %d entries, want %d: updates were lost", len(sink.Data), writers)
		}
	})
}
