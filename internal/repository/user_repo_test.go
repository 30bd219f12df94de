package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-llm/internal/domain"
)

type mockRedisKV struct {
	data    map[string]string
	lastTTL time.Duration
	err     error
}

func newMockRedisKV() *mockRedisKV {
	return &mockRedisKV{data: make(map[string]string)}
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	m.lastTTL = expiration
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestUserStores_LoadSaveClear(t *testing.T) {
	stores := map[string]UserStore{
		"memory": NewMemoryUserStore(),
		"redis":  &redisUserStore{client: newMockRedisKV(), ttl: time.Hour},
	}
	user := domain.User{ID: "sub-1", Email: "a@example.com", Name: "Ana", Picture: "https://example.com/a.png"}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Load(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound before save, got %v", err)
			}
			if err := store.Save(ctx, user); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.Load(ctx, " sub-1 ")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got != user {
				t.Fatalf("expected %+v, got %+v", user, got)
			}
			if err := store.Clear(ctx, user.ID); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, err := store.Load(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
				t.Fatalf("expected ErrUserNotFound after clear, got %v", err)
			}
			if err := store.Save(ctx, domain.User{}); err == nil {
				t.Fatalf("expected error for empty id")
			}
		})
	}
}

func TestRedisUserStore_UsesFixedKeyAndTTL(t *testing.T) {
	kv := newMockRedisKV()
	store := &redisUserStore{client: kv, ttl: 30 * time.Minute}

	if err := store.Save(context.Background(), domain.User{ID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := kv.data["user:u1"]; !ok {
		t.Fatalf("expected key user:u1, got %v", kv.data)
	}
	if kv.lastTTL != 30*time.Minute {
		t.Fatalf("expected ttl propagated, got %v", kv.lastTTL)
	}
}

func TestRedisUserStore_PropagatesErrors(t *testing.T) {
	kv := newMockRedisKV()
	kv.err = errors.New("redis down")
	store := &redisUserStore{client: kv}

	if _, err := store.Load(context.Background(), "u1"); err == nil || errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected raw redis error, got %v", err)
	}
	if err := store.Save(context.Background(), domain.User{ID: "u1"}); err == nil {
		t.Fatalf("expected save error")
	}
}

func TestNewRedisUserStore_NilClient(t *testing.T) {
	if store := NewRedisUserStore(nil, 0); store != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
