package memory_test

import (
	"testing"
	"time"

	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
	"github.com/aretw0/playground/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStore_Contract(t *testing.T) {
	tests.GraphStoreContractTest(t, func(g domain.Graph) ports.GraphStore {
		return memory.NewGraphStore(g)
	})
}

func TestGraphStore_SeedIsCopied(t *testing.T) {
	seed := domain.Graph{Nodes: []domain.Node{{ID: "a", Params: map[string]any{"value": "X1"}}}}
	store := memory.NewGraphStore(seed)

	seed.Nodes[0].Params["value"] = "changed"

	n, ok := store.GetNode("a")
	require.True(t, ok)
	assert.Equal(t, "X1", n.Params["value"])
}

func TestGraphStore_UpdaterReferencesDoNotLeak(t *testing.T) {
	store := memory.NewGraphStore(domain.Graph{Nodes: []domain.Node{{ID: "a", Data: map[string]any{}}}})

	var kept []domain.Node
	store.SetNodes(func(nodes []domain.Node) []domain.Node {
		kept = nodes
		return nodes
	})
	kept[0].Data["late"] = true

	n, _ := store.GetNode("a")
	assert.NotContains(t, n.Data, "late")
}

func TestGraphStore_Subscribe(t *testing.T) {
	store := memory.NewGraphStore(domain.Graph{})
	ch, cancel := store.Subscribe()

	store.SetNodes(func(n []domain.Node) []domain.Node { return append(n, domain.Node{ID: "a"}) })
	store.SetNodes(func(n []domain.Node) []domain.Node { return append(n, domain.Node{ID: "b"}) })
	v := store.SetNodes(func(n []domain.Node) []domain.Node { return append(n, domain.Node{ID: "c"}) })

	select {
	case got := <-ch:
		assert.Equal(t, v, got, "pending notifications coalesce to the newest version")
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}

	cancel()
	cancel() // idempotent
	_, open := <-ch
	assert.False(t, open, "channel must be closed after cancel")

	// Commits after cancel must not panic.
	store.SetEdges(func(e []domain.Edge) []domain.Edge { return e })
}
