package ports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPlaygroundStoreContract runs a suite of tests to verify that a PlaygroundStore implementation
// adheres to the defined interface contract.
func RunPlaygroundStoreContract(t *testing.T, store PlaygroundStore) {
	ctx := context.Background()
	id := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		p := samplePlayground(id)

		require.NoError(t, store.Save(ctx, p), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, p.Name, loaded.Name)
		assert.Equal(t, p.Graph.Version, loaded.Graph.Version)
		require.Len(t, loaded.Graph.Nodes, 2)
		require.Len(t, loaded.Graph.Edges, 1)

		edge := loaded.Graph.Edges[0]
		assert.Equal(t, "e1", edge.ID)
		assert.Equal(t, "a", edge.Source)
		assert.Equal(t, "b", edge.Target)
		assert.Equal(t, "address", edge.TargetHandle)

		b, ok := loaded.Graph.Node("b")
		require.True(t, ok)
		assert.Equal(t, "X1", b.Data["a"], "published data must survive persistence")

		// Numbers may come back as json.Number or float64 depending on the backend.
		a, _ := loaded.Graph.Node("a")
		assert.Equal(t, "42", numberString(a.Params["limit"]))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrPlaygroundNotFound)
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, samplePlayground(id)))
		first, err := store.Load(ctx, id)
		require.NoError(t, err)
		first.Graph.Nodes[0].Params["value"] = "mutated"

		second, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "X1", second.Graph.Nodes[0].Params["value"])
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, samplePlayground(id)))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrPlaygroundNotFound, "Load after Delete should return ErrPlaygroundNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, samplePlayground(id1)))
		require.NoError(t, store.Save(ctx, samplePlayground(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

func samplePlayground(id string) *domain.Playground {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Playground{
		ID:        id,
		Name:      "Candy machine lookup",
		OwnerID:   "owner-1",
		Network:   "devnet",
		CreatedAt: now,
		UpdatedAt: now,
		Graph: domain.Graph{
			Version: 7,
			Nodes: []domain.Node{
				{ID: "a", Kind: "constant", Params: map[string]any{"value": "X1", "limit": 42}, Output: "X1"},
				{ID: "b", Kind: "get_balance", Data: map[string]any{"a": "X1"}},
			},
			Edges: []domain.Edge{
				{ID: "e1", Source: "a", Target: "b", TargetHandle: "address", Animated: true},
			},
		},
	}
}

func numberString(v any) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case float64:
		return json.Number(formatFloat(n)).String()
	case int:
		return json.Number(formatFloat(float64(n))).String()
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
