package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/playground/pkg/codec"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by Store and Locker.
const DefaultPrefix = "playground:"

// noExpiry is the index score of playgrounds saved without TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.PlaygroundStore using Redis.
// Playgrounds are JSON strings; a sorted set indexes them by expiry.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.PlaygroundStore = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration for saved playgrounds.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) key(id string) string {
	return s.prefix + "pg:" + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the playground and indexes it.
func (s *Store) Save(ctx context.Context, p *domain.Playground) error {
	if p.ID == "" {
		return fmt.Errorf("playground id cannot be empty")
	}
	data, err := codec.Marshal(codec.JSON, p)
	if err != nil {
		return fmt.Errorf("failed to marshal playground: %w", err)
	}

	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(p.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: p.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a playground.
func (s *Store) Load(ctx context.Context, id string) (*domain.Playground, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPlaygroundNotFound, id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var p domain.Playground
	if err := codec.Unmarshal(codec.JSON, val, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playground: %w", err)
	}
	return &p, nil
}

// Delete removes the playground and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns saved playground IDs, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired playgrounds: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list playgrounds: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
