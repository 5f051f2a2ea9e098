package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoState is returned by Storage.Load when nothing is stored under key.
var ErrNoState = errors.New("cart: no stored state")

// Storage is the durable string-keyed blob store used by Store for its own
// state.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
}

// RedisStorage keeps cart blobs in Redis. Every save refreshes the TTL so
// abandoned carts expire.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStorage constructs a RedisStorage. A non-positive ttl keeps blobs
// forever.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStorage{client: client, ttl: ttl}
}

// Load implements Storage.
func (s *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// Save implements Storage.
func (s *RedisStorage) Save(ctx context.Context, key string, blob []byte) error {
	return s.client.Set(ctx, key, blob, s.ttl).Err()
}

// MemoryStorage is an in-process Storage, used for tests and single-node
// development.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	fail  bool
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

// Load implements Storage.
func (s *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, ErrNoState
	}
	return append([]byte(nil), blob...), nil
}

// Save implements Storage.
func (s *MemoryStorage) Save(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("cart: memory storage unavailable")
	}
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}

// FailSaves makes subsequent saves fail, simulating an unavailable store.
func (s *MemoryStorage) FailSaves(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// Put stores a raw blob, bypassing the store. Useful to seed corrupt state.
func (s *MemoryStorage) Put(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
}
