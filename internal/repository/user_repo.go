package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-llm/internal/domain"
)

// UserKeyPrefix es la clave fija bajo la que se guarda el usuario actual.
const UserKeyPrefix = "user:"

// ErrUserNotFound se devuelve cuando no hay usuario guardado para el id.
var ErrUserNotFound = errors.New("user not found")

// UserStore guarda el registro del usuario autenticado para restaurar su sesion.
type UserStore interface {
	Load(ctx context.Context, id string) (domain.User, error)
	Save(ctx context.Context, user domain.User) error
	Clear(ctx context.Context, id string) error
}

type memoryUserStore struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewMemoryUserStore crea un UserStore en memoria.
func NewMemoryUserStore() UserStore {
	return &memoryUserStore{items: make(map[string]domain.User)}
}

func (s *memoryUserStore) Load(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.items[UserKeyPrefix+strings.TrimSpace(id)]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *memoryUserStore) Save(_ context.Context, user domain.User) error {
	id := strings.TrimSpace(user.ID)
	if id == "" {
		return errors.New("user id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[UserKeyPrefix+id] = user
	return nil
}

func (s *memoryUserStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, UserKeyPrefix+strings.TrimSpace(id))
	return nil
}

// redisKV es el subconjunto de *redis.Client que usan los stores.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisUserStore struct {
	client redisKV
	ttl    time.Duration
}

// NewRedisUserStore crea un UserStore respaldado por Redis. ttl 0 no expira.
func NewRedisUserStore(client *redis.Client, ttl time.Duration) UserStore {
	if client == nil {
		return nil
	}
	return &redisUserStore{client: client, ttl: ttl}
}

func (s *redisUserStore) Load(ctx context.Context, id string) (domain.User, error) {
	raw, err := s.client.Get(ctx, UserKeyPrefix+strings.TrimSpace(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("decode stored user: %w", err)
	}
	return user, nil
}

func (s *redisUserStore) Save(ctx context.Context, user domain.User) error {
	id := strings.TrimSpace(user.ID)
	if id == "" {
		return errors.New("user id required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.client.Set(ctx, UserKeyPrefix+id, raw, s.ttl).Err()
}

func (s *redisUserStore) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, UserKeyPrefix+strings.TrimSpace(id)).Err()
}
