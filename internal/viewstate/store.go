package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists one State per user and screen.
type Store interface {
	// Load reports found=false when nothing is stored.
	Load(ctx context.Context, userID, screen string) (st State, found bool, err error)
	Save(ctx context.Context, userID, screen string, st State) error
	Clear(ctx context.Context, userID, screen string) error
}

const keyPrefix = "salestrack:viewstate:"

func key(userID, screen string) string {
	return keyPrefix + userID + ":" + screen
}

// RedisStore keeps states as JSON strings that expire after ttl without use.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, userID, screen string) (State, bool, error) {
	// GETEX slides the expiry on every read.
	data, err := s.client.GetEx(ctx, key(userID, screen), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("could not load view state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// A payload from an older layout is as good as none.
		return State{}, false, nil
	}
	return st, true, nil
}

func (s *RedisStore) Save(ctx context.Context, userID, screen string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key(userID, screen), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("could not save view state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID, screen string) error {
	if err := s.client.Del(ctx, key(userID, screen)).Err(); err != nil {
		return fmt.Errorf("could not clear view state: %w", err)
	}
	return nil
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is the single-instance fallback when Redis is not configured.
// States are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, userID, screen string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(userID, screen)
	e, ok := s.entries[k]
	if !ok {
		return State{}, false, nil
	}
	now := s.now()
	if s.ttl > 0 && now.After(e.expires) {
		delete(s.entries, k)
		return State{}, false, nil
	}
	e.expires = now.Add(s.ttl)
	s.entries[k] = e
	return e.state, true, nil
}

// Save also drops every expired entry, so states that are never read again
// do not pile up.
func (s *MemoryStore) Save(_ context.Context, userID, screen string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.ttl > 0 {
		for k, e := range s.entries {
			if now.After(e.expires) {
				delete(s.entries, k)
			}
		}
	}
	s.entries[key(userID, screen)] = memoryEntry{state: st, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID, screen string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key(userID, screen))
	return nil
}
