package query

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openmcp-project/graph-explorer-db/pkg/resource"
)

// Invalidator is implemented by gateways that keep results which a sync pass makes stale.
type Invalidator interface {
	Invalidate()
}

var (
	_ Gateway     = &CachingGateway{}
	_ Invalidator = &CachingGateway{}
)

// CachingGateway remembers successful results per script. Failures are not cached.
type CachingGateway struct {
	downstream Gateway
	cache      *cache.Cache
}

func NewCachingGateway(downstream Gateway, defaultExpiration, cleanupInterval time.Duration) *CachingGateway {
	return &CachingGateway{
		downstream: downstream,
		cache:      cache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *CachingGateway) Resources(ctx context.Context, script string) ([]resource.Resource, error) {
	return cached(c, EntityResources, script, func() ([]resource.Resource, error) {
		return c.downstream.Resources(ctx, script)
	})
}

func (c *CachingGateway) Edges(ctx context.Context, script string) ([]resource.Edge, error) {
	return cached(c, EntityEdges, script, func() ([]resource.Edge, error) {
		return c.downstream.Edges(ctx, script)
	})
}

func (c *CachingGateway) Invalidate() {
	c.cache.Flush()
}

func cached[T any](c *CachingGateway, entity, script string, load func() ([]T, error)) ([]T, error) {
	key := cacheKey(entity, script)
	if res, found := c.cache.Get(key); found {
		slog.Debug("return cached result", "entity", entity)
		return res.([]T), nil
	}

	res, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, res, cache.DefaultExpiration)
	return res, nil
}

func cacheKey(entity, script string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(entity + " " + script))
	return fmt.Sprintf("%s/%x", entity, h.Sum64())
}
