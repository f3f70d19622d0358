package sso

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrStateNotFound is returned when a state was never issued, has expired,
// or was already consumed.
var ErrStateNotFound = errors.New("oauth state not found")

// StateStore remembers the PKCE verifier issued with each login state until
// the provider calls back. Consume is single-use.
type StateStore interface {
	Save(ctx context.Context, state, verifier string) error
	Consume(ctx context.Context, state string) (string, error)
}

// RedisStateStore keeps login states in Redis so any API replica can finish
// a flow another replica started.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStateStore creates a Redis-backed state store
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{client: client, ttl: ttl, prefix: "oauth:state:"}
}

// Save stores verifier under state for the configured ttl
func (s *RedisStateStore) Save(ctx context.Context, state, verifier string) error {
	if err := s.client.Set(ctx, s.prefix+state, verifier, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume reads and deletes state atomically
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	key := s.prefix + state
	pipe := s.client.TxPipeline()
	get := pipe.Get(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}

	verifier, err := get.Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return verifier, nil
}

// MemoryStateStore keeps login states in process. Used when Redis is not
// configured; flows must then start and finish on the same instance.
type MemoryStateStore struct {
	mu    sync.Mutex
	cache *lru.LRU[string, string]
}

// NewMemoryStateStore creates a bounded in-memory state store
func NewMemoryStateStore(size int, ttl time.Duration) *MemoryStateStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStateStore{cache: lru.NewLRU[string, string](size, nil, ttl)}
}

// Save stores verifier under state
func (s *MemoryStateStore) Save(ctx context.Context, state, verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(state, verifier)
	return nil
}

// Consume reads and deletes state
func (s *MemoryStateStore) Consume(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	verifier, ok := s.cache.Get(state)
	if !ok {
		return "", ErrStateNotFound
	}
	s.cache.Remove(state)
	return verifier, nil
}
