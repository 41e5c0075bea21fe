package runtime_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/playground/internal/runtime"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_SupersededResultIsDropped(t *testing.T) {
	var mu sync.Mutex
	var dropped []uint64
	hooks := domain.LifecycleHooks{
		OnRunDropped: func(_ context.Context, e *domain.RunEvent) {
			mu.Lock()
			dropped = append(dropped, e.Token)
			mu.Unlock()
		},
	}

	f := newFixture(t, runtime.WithLifecycleHooks(hooks))
	f.add(t, "a", "source", map[string]any{"value": "X1"})
	f.add(t, "b", "gated", nil)
	f.connect(t, "a", "b", "address")
	f.waitStarted(t, "X1")

	_, err := f.engine.UpdateParams("a", map[string]any{"value": "X2"})
	require.NoError(t, err)
	f.waitStarted(t, "X2")

	// The newer run finishes first, then the stale one.
	f.release("X2")
	require.Eventually(t, func() bool {
		r, _ := f.engine.Result("b")
		return r.Status == domain.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)
	f.release("X1")
	f.settle(t)

	r := f.result(t, "b")
	assert.Equal(t, "balance:X2", r.Value)
	assert.Equal(t, uint64(2), r.Runs)
	assert.Equal(t, "balance:X2", f.node(t, "b").Output)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, dropped, 1)
}

func TestEngine_IndependentNodesRunConcurrently(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a1", "source", map[string]any{"value": "A"})
	f.add(t, "a2", "source", map[string]any{"value": "B"})
	f.add(t, "b1", "gated", nil)
	f.add(t, "b2", "gated", nil)
	f.connect(t, "a1", "b1", "address")
	f.connect(t, "a2", "b2", "address")

	// Both calls are in flight at the same time.
	started := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case addr := <-f.seen:
			started[addr] = true
		case <-time.After(2 * time.Second):
			t.Fatal("runs did not start concurrently")
		}
	}
	assert.Equal(t, map[string]bool{"A": true, "B": true}, started)

	f.release("B")
	f.release("A")
	f.settle(t)
	assert.Equal(t, "balance:A", f.result(t, "b1").Value)
	assert.Equal(t, "balance:B", f.result(t, "b2").Value)
}

func TestEngine_ConcurrentEditsLoseNothing(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "source", map[string]any{"value": "X1"})

	const consumers = 32
	var wg sync.WaitGroup
	wg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer wg.Done()
			n, err := f.engine.AddNode(domain.Node{Kind: "lookup"})
			if assert.NoError(t, err) {
				_, err = f.engine.Connect("a", n.ID, "address")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	f.settle(t)

	g := f.store.Snapshot()
	assert.Len(t, g.Nodes, consumers+1)
	assert.Len(t, g.Edges, consumers)
	for _, n := range g.Nodes {
		if n.ID == "a" {
			continue
		}
		assert.Equal(t, "X1", n.Data["a"])
		assert.Equal(t, "balance:X1", n.Output)
	}
	assert.Equal(t, int64(consumers), f.callsFor("X1"))
}

func TestEngine_SettleHonorsContext(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "source", map[string]any{"value": "X1"})
	f.add(t, "b", "gated", nil)
	f.connect(t, "a", "b", "address")
	f.waitStarted(t, "X1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.engine.Settle(ctx), context.DeadlineExceeded)

	f.release("X1")
	f.settle(t)
}

func TestEngine_CloseCancelsInFlightCalls(t *testing.T) {
	f := newFixture(t)
	f.add(t, "a", "source", map[string]any{"value": "X1"})
	f.add(t, "b", "gated", nil)
	f.connect(t, "a", "b", "address")
	f.waitStarted(t, "X1")

	done := make(chan struct{})
	go func() {
		_ = f.engine.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while a call was blocked")
	}

	assert.ErrorIs(t, f.engine.Settle(context.Background()), runtime.ErrClosed)
}

// droppedCounter counts superseded settlements.
func droppedCounter() (*atomic.Int64, runtime.EngineOption) {
	n := new(atomic.Int64)
	return n, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnRunDropped: func(context.Context, *domain.RunEvent) { n.Add(1) },
	})
}

func TestEngine_RecreatedNodeIgnoresPredecessorRun(t *testing.T) {
	dropped, opt := droppedCounter()
	f := newFixture(t, opt)
	f.add(t, "s1", "source", map[string]any{"value": "A1"})
	f.add(t, "s2", "source", map[string]any{"value": "A2"})
	f.add(t, "g", "gated", nil)
	f.connect(t, "s1", "g", "address")
	f.waitStarted(t, "A1")

	require.NoError(t, f.engine.RemoveNode("g"))
	f.add(t, "g", "gated", nil)
	f.connect(t, "s2", "g", "address")
	f.waitStarted(t, "A2")

	f.release("A1")
	require.Eventually(t, func() bool { return dropped.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StatusPending, f.result(t, "g").Status)

	f.release("A2")
	f.settle(t)

	r := f.result(t, "g")
	assert.Equal(t, domain.StatusSuccess, r.Status)
	assert.Equal(t, "balance:A2", r.Value)
	assert.Equal(t, "balance:A2", f.node(t, "g").Output)
}

func TestEngine_LoadIgnoresRunsOfReplacedGraph(t *testing.T) {
	dropped, opt := droppedCounter()
	f := newFixture(t, opt)
	f.add(t, "s", "source", map[string]any{"value": "A1"})
	f.add(t, "g", "gated", nil)
	f.connect(t, "s", "g", "address")
	f.waitStarted(t, "A1")

	require.NoError(t, f.engine.Load(domain.Graph{
		Nodes: []domain.Node{
			{ID: "s", Kind: "source", Params: map[string]any{"value": "A2"}},
			{ID: "g", Kind: "gated"},
		},
		Edges: []domain.Edge{{ID: "e1", Source: "s", Target: "g", TargetHandle: "address"}},
	}))
	f.waitStarted(t, "A2")

	f.release("A1")
	require.Eventually(t, func() bool { return dropped.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	f.release("A2")
	f.settle(t)

	r := f.result(t, "g")
	assert.Equal(t, domain.StatusSuccess, r.Status)
	assert.Equal(t, "balance:A2", r.Value)
	assert.Equal(t, uint64(1), r.Runs)
	assert.Equal(t, "balance:A2", f.node(t, "g").Output)
}
