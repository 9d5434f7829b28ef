package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps conversation states between events. A missing session
// is not an error: the engine rebuilds it from the entity store.
type SessionStore interface {
	Load(ctx context.Context, chatID int64) (State, bool, error)
	Save(ctx context.Context, chatID int64, s State) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]State
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]State)}
}

func (m *MemorySessionStore) Load(_ context.Context, chatID int64) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return s, ok, nil
}

func (m *MemorySessionStore) Save(_ context.Context, chatID int64, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = s
	return nil
}

// redisCmdable is the subset of redis.UniversalClient used for sessions.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisSessionStore keeps JSON session snapshots in Redis so that sessions
// survive restarts and are shared between replicas.
type RedisSessionStore struct {
	client redisCmdable
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "hr:session:", ttl: ttl}
}

func (r *RedisSessionStore) key(chatID int64) string {
	return r.prefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisSessionStore) Load(ctx context.Context, chatID int64) (State, bool, error) {
	data, err := r.client.Get(ctx, r.key(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get session from redis: %w", err)
	}
	s, err := decodeState(data)
	if err != nil {
		// a snapshot from an older release is dropped and rebuilt
		return nil, false, nil
	}
	return s, true, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, chatID int64, s State) error {
	data, err := encodeState(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(chatID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}
