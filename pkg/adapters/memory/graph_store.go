package memory

import (
	"sync"
	"sync/atomic"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
)

// GraphStore implements ports.ObservableGraphStore in memory.
//
// Committed graphs are immutable: readers load the current pointer without locking,
// writers are serialized and each one derives its result from the latest commit.
type GraphStore struct {
	current atomic.Pointer[domain.Graph]
	writeMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]chan uint64
	nextID int
}

var _ ports.ObservableGraphStore = (*GraphStore)(nil)

// NewGraphStore creates a store seeded with a copy of g.
func NewGraphStore(g domain.Graph) *GraphStore {
	s := &GraphStore{subs: make(map[int]chan uint64)}
	seed := g.Clone()
	s.current.Store(&seed)
	return s
}

// GetNode returns a copy of the node with the given ID.
func (s *GraphStore) GetNode(id string) (domain.Node, bool) {
	n, ok := s.current.Load().Node(id)
	if !ok {
		return domain.Node{}, false
	}
	return n.Clone(), true
}

// GetEdges returns a copy of the current edges.
func (s *GraphStore) GetEdges() []domain.Edge {
	return domain.CloneEdges(s.current.Load().Edges)
}

// Snapshot returns a deep copy of the current graph.
func (s *GraphStore) Snapshot() domain.Graph {
	return s.current.Load().Clone()
}

// Version returns the current version without copying the graph.
func (s *GraphStore) Version() uint64 {
	return s.current.Load().Version
}

// SetNodes commits a new node collection derived from the latest one.
func (s *GraphStore) SetNodes(fn ports.NodesUpdater) uint64 {
	return s.Update(func(g domain.Graph) domain.Graph {
		g.Nodes = fn(g.Nodes)
		return g
	})
}

// SetEdges commits a new edge collection derived from the latest one.
func (s *GraphStore) SetEdges(fn ports.EdgesUpdater) uint64 {
	return s.Update(func(g domain.Graph) domain.Graph {
		g.Edges = fn(g.Edges)
		return g
	})
}

// Update commits a new graph derived from the latest one.
func (s *GraphStore) Update(fn ports.GraphUpdater) uint64 {
	s.writeMu.Lock()
	prev := s.current.Load()
	next := fn(prev.Clone())
	next.Version = prev.Version + 1
	// The updater may keep references to what it returned.
	committed := next.Clone()
	s.current.Store(&committed)
	s.notify(committed.Version)
	s.writeMu.Unlock()

	return committed.Version
}

// TryUpdate commits a new graph derived from the latest one unless fn fails.
func (s *GraphStore) TryUpdate(fn ports.GraphTx) (uint64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current.Load()
	next, err := fn(prev.Clone())
	if err != nil {
		return prev.Version, err
	}
	next.Version = prev.Version + 1
	committed := next.Clone()
	s.current.Store(&committed)
	s.notify(committed.Version)
	return committed.Version, nil
}

// Subscribe returns a coalescing channel of committed versions.
func (s *GraphStore) Subscribe() (<-chan uint64, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan uint64, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *GraphStore) notify(version uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- version:
		default:
			// Replace the stale pending version with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- version:
			default:
			}
		}
	}
}
