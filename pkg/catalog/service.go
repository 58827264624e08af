package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/cleanshop/pkg/repository"
	"go.uber.org/zap"
)

const activeProductsKey = "products:active"

var ErrProductNotFound = errors.New("product not found")

// Cache stores JSON values with a TTL. RedisRepository satisfies it.
type Cache interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Del(ctx context.Context, keys ...string) error
}

type Service struct {
	store  repository.RecordStore
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewService builds a catalog service. cache may be nil.
func NewService(store repository.RecordStore, cache Cache, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		ttl:    5 * time.Minute,
		logger: logger,
	}
}

// List returns the active products, newest first.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		var cached []Product
		err := s.cache.GetJSON(ctx, activeProductsKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Product cache read failed", zap.Error(err))
		}
	}

	rows, err := s.store.Select(ctx, repository.TableProducts,
		repository.Filter{"is_active": true},
		&repository.Sort{Column: "created_at", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]Product, 0, len(rows))
	for _, r := range rows {
		p, err := FromRecord(r)
		if err != nil {
			s.logger.Warn("Skipping malformed product", zap.String("product_id", r.ID()), zap.Error(err))
			continue
		}
		products = append(products, p)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, activeProductsKey, products, s.ttl); err != nil {
			s.logger.Warn("Product cache write failed", zap.Error(err))
		}
	}
	return products, nil
}

// Get returns one active product.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	rows, err := s.store.Select(ctx, repository.TableProducts,
		repository.Filter{"id": id, "is_active": true}, nil)
	if err != nil {
		return Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	if len(rows) == 0 {
		return Product{}, ErrProductNotFound
	}
	return FromRecord(rows[0])
}

// Invalidate drops the cached product list.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, activeProductsKey)
}
