package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewRedactMiddleware(middleware.DefaultSecretPatterns)(underlying)
	ctx := context.Background()

	p := &domain.Playground{
		ID: "redact",
		Graph: domain.Graph{Nodes: []domain.Node{
			{
				ID:   "signer",
				Kind: "constant",
				Params: map[string]any{
					"address":     "11111111111111111111111111111111",
					"private_key": "5Kd3...",
					"wallet":      map[string]any{"seed_phrase": "abandon abandon"},
				},
				Output: map[string]any{"apiKey": "k-123", "slot": 10},
			},
			{
				ID:   "sink",
				Kind: "format_json",
				Data: map[string]any{"signer": []any{map[string]any{"secret": "x"}}},
			},
		}},
	}

	require.NoError(t, secure.Save(ctx, p))
	assert.Equal(t, "5Kd3...", p.Graph.Nodes[0].Params["private_key"], "caller's playground must not change")

	stored, err := underlying.Load(ctx, "redact")
	require.NoError(t, err)

	signer, _ := stored.Graph.Node("signer")
	assert.Equal(t, "11111111111111111111111111111111", signer.Params["address"])
	assert.Equal(t, middleware.Mask, signer.Params["private_key"])
	assert.Equal(t, middleware.Mask, signer.Params["wallet"].(map[string]any)["seed_phrase"])
	assert.Equal(t, middleware.Mask, signer.Output.(map[string]any)["apiKey"])
	assert.Equal(t, 10, signer.Output.(map[string]any)["slot"])

	sink, _ := stored.Graph.Node("sink")
	item := sink.Data["signer"].([]any)[0].(map[string]any)
	assert.Equal(t, middleware.Mask, item["secret"])
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	underlying := memory.NewStore()
	key := generateKey(t)
	store := middleware.Chain(underlying,
		middleware.NewRedactMiddleware([]string{"secret"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, secretPlayground("chain", "kept")))

	p := secretPlayground("chain2", "kept")
	p.Graph.Nodes[0].Params["secret"] = "hidden"
	require.NoError(t, store.Save(ctx, p))

	loaded, err := store.Load(ctx, "chain2")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Graph.Nodes[0].Params["secret"], "redaction runs before sealing")
	assert.Equal(t, "kept", loaded.Graph.Nodes[0].Params["value"])
}
