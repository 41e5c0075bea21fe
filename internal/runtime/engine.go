package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/playground/internal/logging"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
	"github.com/aretw0/playground/pkg/registry"
)

// ErrClosed is returned by Settle once the engine is closed.
var ErrClosed = errors.New("engine closed")

// Engine evaluates nodes whenever the graph store commits, dispatches external calls
// for nodes whose inputs changed and publishes their results one hop downstream.
type Engine struct {
	store    ports.ObservableGraphStore
	registry *registry.Registry
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
	kick   chan struct{}
	done   chan struct{}
	runs   sync.WaitGroup

	// publishMu orders settlements of the same engine against the store.
	publishMu sync.Mutex

	mu        sync.Mutex
	units     map[string]*Unit
	seq       uint64
	inflight  int
	kicked    bool
	evaluated uint64
	floor     uint64
	progress  chan struct{}
	closed    bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine starts an engine bound to store. Call Close to stop it.
func NewEngine(store ports.ObservableGraphStore, reg *registry.Registry, opts ...EngineOption) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    store,
		registry: reg,
		logger:   logging.NewNop(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		units:    make(map[string]*Unit),
		progress: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	changes, unsub := store.Subscribe()
	e.unsub = unsub
	e.Kick()
	go e.loop(changes)
	return e
}

func (e *Engine) loop(changes <-chan uint64) {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			e.evaluate()
		case <-e.kick:
			e.evaluate()
		}
	}
}

// Kick schedules an evaluation without a store change.
func (e *Engine) Kick() {
	e.mu.Lock()
	e.kicked = true
	e.mu.Unlock()

	select {
	case e.kick <- struct{}{}:
	default:
	}
}

type job struct {
	node   domain.Node
	tpl    registry.Template
	inputs map[string]any
	token  uint64
}

// evaluate walks the latest snapshot and dispatches every unit whose inputs changed.
func (e *Engine) evaluate() {
	g := e.store.Snapshot()
	now := e.now()

	var jobs []job
	var rejected []*domain.RunEvent

	e.mu.Lock()
	e.kicked = false
	if g.Version < e.floor {
		e.mu.Unlock()
		return
	}

	present := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		present[n.ID] = true
	}
	for id := range e.units {
		if !present[id] {
			delete(e.units, id)
		}
	}

	for _, n := range g.Nodes {
		u, ok := e.units[n.ID]
		if !ok || u.kind != n.Kind {
			u = newUnit(n, &e.seq)
			e.units[n.ID] = u
		}

		tpl, err := e.registry.Lookup(n.Kind)
		if err != nil {
			if u.status != domain.StatusError {
				u.fail("", err, now)
			}
			continue
		}

		in := ResolveInputs(n, g.Edges, tpl.RequiredSlots())
		if !in.Complete() {
			u.gate(in.Missing(), now)
			continue
		}

		fp := fingerprint(n.Params, in)
		if fp == u.fingerprint {
			continue
		}

		values := in.Values()
		if err := tpl.ValidateInputs(values); err != nil {
			callErr := &domain.ExternalCallError{NodeID: n.ID, Kind: n.Kind, Err: err}
			u.fail(fp, callErr, now)
			rejected = append(rejected, &domain.RunEvent{
				EventBase: domain.EventBase{Timestamp: now, Type: domain.EventRunError},
				NodeID:    n.ID,
				Kind:      n.Kind,
				Token:     u.token,
				Inputs:    values,
				Err:       callErr,
			})
			continue
		}

		token := u.dispatch(fp, now)
		e.inflight++
		jobs = append(jobs, job{node: n, tpl: tpl, inputs: values, token: token})
	}

	if g.Version > e.evaluated {
		e.evaluated = g.Version
	}
	closed := e.closed
	if closed {
		e.inflight -= len(jobs)
	}
	e.signalLocked()
	e.mu.Unlock()

	for _, ev := range rejected {
		e.logger.Warn("node inputs rejected", "node", ev.NodeID, "kind", ev.Kind, "err", ev.Err)
		if e.hooks.OnRunError != nil {
			e.hooks.OnRunError(e.ctx, ev)
		}
	}
	if closed {
		return
	}
	for _, j := range jobs {
		e.runs.Add(1)
		go e.run(j)
	}
}

// run performs one external call and settles it.
func (e *Engine) run(j job) {
	defer e.runs.Done()

	start := e.now()
	ev := &domain.RunEvent{
		EventBase: domain.EventBase{Timestamp: start, Type: domain.EventRunStart},
		NodeID:    j.node.ID,
		Kind:      j.node.Kind,
		Token:     j.token,
		Inputs:    j.inputs,

		Dispatched: true,
	}
	e.logger.Debug("node run started", "node", j.node.ID, "kind", j.node.Kind, "token", j.token)
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(e.ctx, ev)
	}

	out, err := e.call(j)
	ev.Duration = e.now().Sub(start)
	if err != nil {
		err = &domain.ExternalCallError{NodeID: j.node.ID, Kind: j.node.Kind, Err: err}
	}

	e.settle(j, out, err, ev)
}

func (e *Engine) call(j job) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("node panicked")
			e.logger.Error("node panicked", "node", j.node.ID, "kind", j.node.Kind, "panic", r)
		}
	}()
	return j.tpl.Execute(e.ctx, registry.Call{
		NodeID: j.node.ID,
		Params: domain.CloneMap(j.node.Params),
		Inputs: j.inputs,
	})
}

// settle applies a finished run if its token is still current and publishes a success.
func (e *Engine) settle(j job, out any, runErr error, ev *domain.RunEvent) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inflight--
		e.signalLocked()
		e.mu.Unlock()
	}()

	_, exists := e.store.GetNode(j.node.ID)

	e.mu.Lock()
	u, ok := e.units[j.node.ID]
	applied := exists && ok && u.settle(j.token, out, runErr, e.now())
	e.mu.Unlock()

	ev.Timestamp = e.now()
	ev.Output = out
	ev.Err = runErr

	if !applied {
		ev.Type = domain.EventRunDropped
		e.logger.Debug("stale result dropped", "node", j.node.ID, "token", j.token)
		if e.hooks.OnRunDropped != nil {
			e.hooks.OnRunDropped(e.ctx, ev)
		}
		return
	}

	if runErr != nil {
		ev.Type = domain.EventRunError
		e.logger.Warn("node run failed", "node", j.node.ID, "kind", j.node.Kind, "err", runErr)
		if e.hooks.OnRunError != nil {
			e.hooks.OnRunError(e.ctx, ev)
		}
		return
	}

	ev.Type = domain.EventRunSuccess
	e.logger.Debug("node run succeeded", "node", j.node.ID, "kind", j.node.Kind, "duration", ev.Duration)
	if e.hooks.OnRunSuccess != nil {
		e.hooks.OnRunSuccess(e.ctx, ev)
	}

	targets := e.publish(j.node.ID, out)
	if e.hooks.OnPropagate != nil {
		e.hooks.OnPropagate(e.ctx, &domain.PropagateEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventPropagate},
			NodeID:    j.node.ID,
			Targets:   targets,
		})
	}
}

// publish writes value into every direct consumer of source in one commit.
// A source that no longer exists publishes nothing.
func (e *Engine) publish(source string, value any) []string {
	var targets []string
	_, err := e.store.TryUpdate(func(g domain.Graph) (domain.Graph, error) {
		targets = targets[:0]
		src := nodeIndex(g.Nodes, source)
		if src < 0 {
			return g, domain.ErrNodeNotFound
		}
		g.Nodes[src].Output = domain.CloneValue(value)

		for i, edge := range g.Edges {
			if edge.Source != source {
				continue
			}
			g.Edges[i].Animated = true

			t := nodeIndex(g.Nodes, edge.Target)
			if t < 0 {
				continue
			}
			if g.Nodes[t].Data == nil {
				g.Nodes[t].Data = make(map[string]any)
			}
			g.Nodes[t].Data[source] = domain.CloneValue(value)
			targets = append(targets, edge.Target)
		}
		return g, nil
	})
	if err != nil {
		e.logger.Debug("publish skipped", "node", source, "err", err)
		return nil
	}
	return targets
}

func (e *Engine) signalLocked() {
	close(e.progress)
	e.progress = make(chan struct{})
}

// Settle blocks until no run is in flight and the latest commit was evaluated.
func (e *Engine) Settle(ctx context.Context) error {
	for {
		e.mu.Lock()
		quiet := e.inflight == 0 && !e.kicked && e.evaluated >= e.store.Version()
		wait := e.progress
		closed := e.closed
		e.mu.Unlock()

		if closed {
			return ErrClosed
		}
		if quiet {
			return nil
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Result returns the run state of one node.
func (e *Engine) Result(id string) (domain.Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.units[id]
	if !ok {
		return domain.Result{}, false
	}
	return u.Result(), true
}

// Results returns the run state of every evaluated node, sorted by node ID.
func (e *Engine) Results() []domain.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Result, 0, len(e.units))
	for _, u := range e.units {
		out = append(out, u.Result())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// reset forgets every unit. The token sequence survives, so runs in flight settle as dropped and
// snapshots older than floor are no longer evaluated.
func (e *Engine) reset(floor uint64) {
	e.mu.Lock()
	e.units = make(map[string]*Unit)
	e.floor = floor
	e.mu.Unlock()
}

// Close stops the evaluation loop, cancels in-flight calls and waits for them to settle.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.signalLocked()
	e.mu.Unlock()

	e.cancel()
	e.unsub()
	<-e.done
	e.runs.Wait()
	return nil
}
