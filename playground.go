package playground

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/playground/internal/logging"
	"github.com/aretw0/playground/internal/runtime"
	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/adapters/rpc"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/kinds"
	"github.com/aretw0/playground/pkg/observability"
	"github.com/aretw0/playground/pkg/ports"
	"github.com/aretw0/playground/pkg/registry"
)

// Engine is the high-level entry point of the playground library.
// It owns one canvas: its graph store, the registered node kinds and the
// runtime that executes nodes as their inputs change.
type Engine struct {
	runtime  *runtime.Engine
	store    ports.ObservableGraphStore
	registry *registry.Registry
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	network  string
	seed     *domain.Graph
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
// Calling it more than once chains the hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMetrics records engine activity into m.
func WithMetrics(m *observability.Metrics) Option {
	return WithLifecycleHooks(m.Hooks())
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRegistry replaces the built-in node kinds.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithStore injects the graph store, e.g. one shared with another process component.
func WithStore(store ports.ObservableGraphStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithNetwork selects the Solana cluster (or custom RPC URL) used by the built-in kinds.
func WithNetwork(network string) Option {
	return func(e *Engine) {
		e.network = network
	}
}

// WithGraph seeds the canvas. The graph is validated by New.
func WithGraph(g domain.Graph) Option {
	return func(e *Engine) {
		seed := g.Clone()
		e.seed = &seed
	}
}

// WithName labels the engine in logs.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// DefaultRegistry returns the built-in node kinds bound to an RPC client for network.
// An empty network selects the default cluster; an http(s) URL is used as is.
func DefaultRegistry(network string, logger *slog.Logger) (*registry.Registry, error) {
	endpoint, err := rpc.Endpoint(network)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return kinds.NewRegistry(rpc.NewClient(endpoint, rpc.WithLogger(logger))), nil
}

// Validate checks a graph against reg without running it: known kinds, valid
// params, unique IDs, existing slots, no fan-in and no cycles.
func Validate(g domain.Graph, reg *registry.Registry) error {
	return runtime.ValidateGraph(g, reg)
}

// New initializes a new playground Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("playground", eng.Name)
	}

	if eng.registry == nil {
		reg, err := DefaultRegistry(eng.network, eng.logger)
		if err != nil {
			return nil, err
		}
		eng.registry = reg
	}

	if eng.store == nil {
		eng.store = memory.NewGraphStore(domain.Graph{})
	}

	if eng.seed != nil {
		if err := runtime.ValidateGraph(*eng.seed, eng.registry); err != nil {
			return nil, fmt.Errorf("invalid graph: %w", err)
		}
		seed := *eng.seed
		eng.store.Update(func(current domain.Graph) domain.Graph {
			seed.Version = current.Version
			return seed
		})
	}

	eng.runtime = runtime.NewEngine(eng.store, eng.registry,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	)
	return eng, nil
}

// AddNode places a new node of the given kind on the canvas.
func (e *Engine) AddNode(kind string, params map[string]any) (domain.Node, error) {
	return e.runtime.AddNode(domain.Node{Kind: kind, Params: domain.CloneMap(params)})
}

// Add places a fully described node on the canvas. An empty ID is generated.
func (e *Engine) Add(n domain.Node) (domain.Node, error) {
	return e.runtime.AddNode(n.Clone())
}

// RemoveNode deletes a node, its edges and every value it published.
func (e *Engine) RemoveNode(id string) error {
	return e.runtime.RemoveNode(id)
}

// UpdateParams replaces the static params of a node.
func (e *Engine) UpdateParams(id string, params map[string]any) (domain.Node, error) {
	return e.runtime.UpdateParams(id, params)
}

// MoveNode changes where a node sits on the canvas.
func (e *Engine) MoveNode(id string, pos domain.Position) error {
	return e.runtime.MoveNode(id, pos)
}

// Connect wires the output of source into the slot input of target.
func (e *Engine) Connect(source, target, slot string) (domain.Edge, error) {
	return e.runtime.Connect(source, target, slot)
}

// Disconnect removes an edge.
func (e *Engine) Disconnect(edgeID string) error {
	return e.runtime.Disconnect(edgeID)
}

// Snapshot returns a copy of the current graph.
func (e *Engine) Snapshot() domain.Graph {
	return e.runtime.Snapshot()
}

// Load replaces the canvas with g after validating it.
func (e *Engine) Load(g domain.Graph) error {
	return e.runtime.Load(g)
}

// Result returns the run state of a node.
func (e *Engine) Result(id string) (domain.Result, bool) {
	return e.runtime.Result(id)
}

// Results returns the run state of every node.
func (e *Engine) Results() []domain.Result {
	return e.runtime.Results()
}

// Settle blocks until every triggered run finished and its effects were evaluated.
func (e *Engine) Settle(ctx context.Context) error {
	return e.runtime.Settle(ctx)
}

// Registry returns the node kinds available to this engine.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Network returns the cluster name or RPC URL the engine was built for.
func (e *Engine) Network() string {
	if e.network == "" {
		return string(rpc.DefaultNetwork)
	}
	return e.network
}

// Store returns the underlying graph store.
func (e *Engine) Store() ports.ObservableGraphStore {
	return e.store
}

// Watch streams the changes of every commit until ctx is done.
// Slow readers see coalesced diffs.
func (e *Engine) Watch(ctx context.Context) <-chan *domain.GraphDiff {
	changes, cancel := e.store.Subscribe()
	out := make(chan *domain.GraphDiff, 16)
	prev := e.store.Snapshot()

	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				cur := e.store.Snapshot()
				diff := domain.Diff(&prev, &cur)
				prev = cur
				if diff == nil {
					continue
				}
				select {
				case out <- diff:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close stops the engine and cancels in-flight calls.
func (e *Engine) Close() error {
	return e.runtime.Close()
}
