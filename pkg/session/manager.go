package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/logging"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// ErrSessionClosed is returned when a session is used after Close.
var ErrSessionClosed = errors.New("session is not open")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Session is a live playground: persisted metadata plus the engine running its canvas.
type Session struct {
	ID     string
	Engine *playground.Engine

	mu   sync.Mutex
	meta domain.Playground
}

// Playground returns the session metadata with the current canvas.
func (s *Session) Playground() *domain.Playground {
	s.mu.Lock()
	p := s.meta
	s.mu.Unlock()
	p.Graph = s.Engine.Snapshot()
	return &p
}

// Rename changes the display name used on the next save.
func (s *Session) Rename(name string) {
	s.mu.Lock()
	s.meta.Name = name
	s.mu.Unlock()
}

// Manager keeps one live engine per playground and serializes access per playground ID.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.PlaygroundStore

	mu       sync.Mutex            // Global lock for the maps
	locks    map[string]*lockEntry // Map of active locks
	sessions map[string]*Session

	locker     ports.DistributedLocker // Optional distributed locker
	lockTTL    time.Duration
	logger     *slog.Logger
	engineOpts []playground.Option
	network    string
	now        func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and the engines it opens.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEngineOptions adds options applied to every engine the Manager opens.
func WithEngineOptions(opts ...playground.Option) Option {
	return func(m *Manager) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// WithDefaultNetwork sets the network of newly created playgrounds.
func WithDefaultNetwork(network string) Option {
	return func(m *Manager) {
		m.network = network
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.PlaygroundStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Get returns an already open session.
func (m *Manager) Get(id string) (*Session, bool) {
	return m.lookup(id)
}

// Open returns the live session for id, loading it from the store or
// creating an empty playground when none is stored.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.lookup(id); ok {
		return s, nil
	}

	var sess *Session
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if s, ok := m.lookup(id); ok {
			sess = s
			return nil
		}

		p, err := m.store.Load(ctx, id)
		switch {
		case errors.Is(err, domain.ErrPlaygroundNotFound):
			now := m.now().UTC()
			p = &domain.Playground{
				ID:        id,
				Name:      domain.DefaultPlaygroundName,
				Network:   m.network,
				CreatedAt: now,
				UpdatedAt: now,
			}
			m.logger.Info("Creating playground", "playground_id", id)
		case err != nil:
			return fmt.Errorf("failed to load playground: %w", err)
		}

		opts := []playground.Option{
			playground.WithLogger(m.logger),
			playground.WithName(id),
			playground.WithNetwork(p.Network),
			playground.WithGraph(p.Graph),
		}
		eng, err := playground.New(append(opts, m.engineOpts...)...)
		if err != nil {
			return fmt.Errorf("failed to start playground %s: %w", id, err)
		}

		meta := *p
		meta.Graph = domain.Graph{}
		meta.Sealed = nil
		sess = &Session{ID: id, Engine: eng, meta: meta}

		m.mu.Lock()
		m.sessions[id] = sess
		m.mu.Unlock()
		return nil
	})
	return sess, err
}

// Save persists the current canvas of an open session.
// Run results are not persisted; they are recomputed when the playground is opened again.
func (m *Manager) Save(ctx context.Context, id string) (*domain.Playground, error) {
	sess, ok := m.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionClosed)
	}

	var saved *domain.Playground
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		sess.mu.Lock()
		sess.meta.UpdatedAt = m.now().UTC()
		if sess.meta.Name == "" {
			sess.meta.Name = domain.DefaultPlaygroundName
		}
		sess.mu.Unlock()

		saved = sess.Playground()
		return m.store.Save(ctx, saved)
	})
	return saved, err
}

// Close stops the session engine without saving.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return sess.Engine.Close()
}

// CloseAll stops every open session.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Delete closes the session and removes the playground from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.Close(id); err != nil {
		m.logger.Warn("Closing deleted playground failed", "playground_id", id, "err", err)
	}
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List returns the stored playground IDs plus any open session not saved yet.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	m.mu.Lock()
	for id := range m.sessions {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	sort.Strings(ids)
	return ids, nil
}

// Store returns the underlying playground store.
func (m *Manager) Store() ports.PlaygroundStore {
	return m.store
}

// WithLock executes a function while holding the lock for the playground.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"playground_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
