package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
)

// CatalogSource serves the product catalogue from cache and passes every
// other collection straight through. Cache failures are logged and fall
// back to the underlying source.
type CatalogSource struct {
	report.Source
	cache CatalogCache
	ttl   time.Duration
}

func NewCatalogSource(src report.Source, cache CatalogCache, ttl time.Duration) *CatalogSource {
	if cache == nil {
		cache = NoopCatalogCache{}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CatalogSource{Source: src, cache: cache, ttl: ttl}
}

func (c *CatalogSource) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	logger := zerolog.Ctx(ctx)

	products, ok, err := c.cache.Get(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("catalog cache read failed")
	}
	if ok {
		return products, nil
	}

	products, err = c.Source.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, products, c.ttl); err != nil {
		logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return products, nil
}

func (c *CatalogSource) Invalidate(ctx context.Context) error {
	return c.cache.Invalidate(ctx)
}
