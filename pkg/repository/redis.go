package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/cleanshop/pkg/cart"
	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/profile"
	"github.com/go-redis/redis/v8"
)

var (
	ErrCacheMiss       = errors.New("cache miss")
	ErrSessionNotFound = errors.New("session not found")
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes the value stored at key into dest. A missing key yields
// ErrCacheMiss.
func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// SessionSnapshot is what survives between requests for one browsing
// session.
type SessionSnapshot struct {
	ID        string           `json:"id"`
	Items     []cart.LineItem  `json:"items"`
	Profile   *profile.Profile `json:"profile,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (r *RedisRepository) SaveSession(ctx context.Context, snap *SessionSnapshot, ttl time.Duration) error {
	if err := r.SetJSON(ctx, sessionKey(snap.ID), snap, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisRepository) LoadSession(ctx context.Context, id string) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	err := r.GetJSON(ctx, sessionKey(id), &snap)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &snap, nil
}

func (r *RedisRepository) DeleteSession(ctx context.Context, id string) error {
	return r.Del(ctx, sessionKey(id))
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
