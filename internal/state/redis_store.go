package state

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the state document under one key. When Redis is down it
// falls back to an in-memory copy so cycles keep running.
type RedisStore struct {
	client    *redis.Client
	key       string
	logger    *logger.Logger
	available atomic.Bool

	mu     sync.RWMutex
	memory []byte
}

// NewRedisStore creates the store; a nil client means memory-only mode
func NewRedisStore(client *redis.Client, key string, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	s := &RedisStore{client: client, key: key, logger: log.With("redis-state")}

	if client == nil {
		s.logger.Info("no Redis client provided, using in-memory state only")
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		s.logger.LogWarning("Redis", "unavailable at startup: %v, using in-memory state", err)
		return s
	}
	s.available.Store(true)
	s.logger.Info("Redis connected, state key %s", key)
	return s
}

// NewRedisClient builds a client for addr
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Name identifies the store in logs
func (r *RedisStore) Name() string { return "redis" }

// Available reports whether Redis is currently used
func (r *RedisStore) Available() bool { return r.available.Load() }

// Save always updates the in-memory copy, then Redis when available
func (r *RedisStore) Save(ctx context.Context, s *PersistedState) error {
	if s == nil {
		return fmt.Errorf("cannot save nil state")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	r.mu.Lock()
	r.memory = data
	r.mu.Unlock()

	if r.client == nil || !r.available.Load() {
		return nil
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		r.logger.LogWarning("Redis", "failed to save state: %v, using in-memory copy", err)
		r.available.Store(false)
	}
	return nil
}

// Load prefers Redis and falls back to the in-memory copy
func (r *RedisStore) Load(ctx context.Context) (*PersistedState, error) {
	if r.client != nil && r.available.Load() {
		data, err := r.client.Get(ctx, r.key).Bytes()
		switch {
		case err == nil:
			return r.decode(data, true)
		case stderrors.Is(err, redis.Nil):
			// nothing in Redis, try memory
		default:
			r.logger.LogWarning("Redis", "read error: %v, using in-memory copy", err)
			r.available.Store(false)
		}
	}

	r.mu.RLock()
	data := r.memory
	r.mu.RUnlock()
	if data == nil {
		return nil, ErrStateNotFound
	}
	return r.decode(data, false)
}

func (r *RedisStore) decode(data []byte, cache bool) (*PersistedState, error) {
	var s PersistedState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if cache {
		r.mu.Lock()
		r.memory = data
		r.mu.Unlock()
	}
	return &s, nil
}

// Close releases the Redis client
func (r *RedisStore) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
