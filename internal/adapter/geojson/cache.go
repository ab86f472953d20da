package geojson

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/observability"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// CachedFetcher wraps a Fetcher with a TTL cache. Concurrent misses for the
// same URL share one upstream request.
type CachedFetcher struct {
	inner   Fetcher
	cache   *ttlcache.Cache[string, []byte]
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *CachedFetcher {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []byte](ttl),
	)
	return &CachedFetcher{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns the cached document for url, fetching it on a miss.
// Failed fetches are not cached so the next request retries.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if item := c.cache.Get(url); item != nil {
		c.metrics.GeoJSONCache.WithLabelValues("hit").Inc()
		return item.Value(), nil
	}
	c.metrics.GeoJSONCache.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(url, func() (any, error) {
		if item := c.cache.Get(url); item != nil {
			return item.Value(), nil
		}

		// Shared by every waiter, so one caller going away must not cancel it.
		// The inner client's timeout still bounds the fetch.
		body, err := c.inner.Fetch(context.WithoutCancel(ctx), url)
		if err != nil {
			c.metrics.GeoJSONFetches.WithLabelValues("error").Inc()
			c.logger.Warn("geometry fetch failed", "url", url, "error", err)
			return nil, err
		}
		c.metrics.GeoJSONFetches.WithLabelValues("success").Inc()

		c.cache.Set(url, body, ttlcache.DefaultTTL)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
