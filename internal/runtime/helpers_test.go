package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/playground/internal/runtime"
	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/registry"
	"github.com/aretw0/playground/pkg/schema"
	"github.com/stretchr/testify/require"
)

// fixture wires an engine to test kinds:
//
//	source  publishes params.value
//	lookup  reads input "address", records each call and returns "balance:<address>"
//	fail    always errors
//	gated   like lookup, but blocks until released
type fixture struct {
	engine *runtime.Engine
	store  *memory.GraphStore

	lookups atomic.Int64
	calls   sync.Map // address -> *atomic.Int64

	gateMu sync.Mutex
	gates  map[string]chan struct{}
	seen   chan string
}

func newFixture(t *testing.T, opts ...runtime.EngineOption) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.NewGraphStore(domain.Graph{}),
		gates: make(map[string]chan struct{}),
		seen:  make(chan string, 16),
	}

	reg := registry.NewRegistry()
	reg.MustRegister(registry.Template{
		Kind:   "source",
		Params: schema.Schema{"value": schema.Any()},
		Execute: func(_ context.Context, c registry.Call) (any, error) {
			return c.Params["value"], nil
		},
	})
	reg.MustRegister(registry.Template{
		Kind:   "lookup",
		Inputs: []registry.Slot{{Name: "address", Type: schema.String()}},
		Execute: func(_ context.Context, c registry.Call) (any, error) {
			f.lookups.Add(1)
			addr := c.Inputs["address"].(string)
			n, _ := f.calls.LoadOrStore(addr, new(atomic.Int64))
			n.(*atomic.Int64).Add(1)
			return "balance:" + addr, nil
		},
	})
	reg.MustRegister(registry.Template{
		Kind:   "fail",
		Inputs: []registry.Slot{{Name: "address"}},
		Execute: func(context.Context, registry.Call) (any, error) {
			return nil, errors.New("rpc unavailable")
		},
	})
	reg.MustRegister(registry.Template{
		Kind:   "gated",
		Inputs: []registry.Slot{{Name: "address", Type: schema.String()}},
		Execute: func(ctx context.Context, c registry.Call) (any, error) {
			addr := c.Inputs["address"].(string)
			gate := f.gate(addr)
			f.seen <- addr
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return "balance:" + addr, nil
		},
	})

	f.engine = runtime.NewEngine(f.store, reg, opts...)
	t.Cleanup(func() { _ = f.engine.Close() })
	return f
}

func (f *fixture) gate(addr string) chan struct{} {
	f.gateMu.Lock()
	defer f.gateMu.Unlock()
	ch, ok := f.gates[addr]
	if !ok {
		ch = make(chan struct{})
		f.gates[addr] = ch
	}
	return ch
}

func (f *fixture) release(addr string) { close(f.gate(addr)) }

func (f *fixture) callsFor(addr string) int64 {
	n, ok := f.calls.Load(addr)
	if !ok {
		return 0
	}
	return n.(*atomic.Int64).Load()
}

// waitStarted blocks until a gated run for addr has started.
func (f *fixture) waitStarted(t *testing.T, addr string) {
	t.Helper()
	select {
	case got := <-f.seen:
		require.Equal(t, addr, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("gated run for %s never started", addr)
	}
}

func (f *fixture) add(t *testing.T, id, kind string, params map[string]any) domain.Node {
	t.Helper()
	n, err := f.engine.AddNode(domain.Node{ID: id, Kind: kind, Params: params})
	require.NoError(t, err)
	return n
}

func (f *fixture) connect(t *testing.T, source, target, slot string) domain.Edge {
	t.Helper()
	e, err := f.engine.Connect(source, target, slot)
	require.NoError(t, err)
	return e
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.engine.Settle(ctx))
}

func (f *fixture) node(t *testing.T, id string) domain.Node {
	t.Helper()
	n, ok := f.store.GetNode(id)
	require.True(t, ok, fmt.Sprintf("node %s not in store", id))
	return n
}

func (f *fixture) result(t *testing.T, id string) domain.Result {
	t.Helper()
	r, ok := f.engine.Result(id)
	require.True(t, ok, fmt.Sprintf("no result for %s", id))
	return r
}
