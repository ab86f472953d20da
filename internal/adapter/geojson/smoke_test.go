//go:build geojson

package geojson

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/config"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests download the real county geometry.
// Run with: go test -tags=geojson ./internal/adapter/geojson/ -v -count=1

func TestSmoke_FetchCounties(t *testing.T) {
	c := NewClient(30*time.Second, discardLogger())

	body, err := c.Fetch(context.Background(), config.DefaultCountyGeoJSONURL)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			ID string `json:"id"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Greater(t, len(doc.Features), 3000)
	for _, f := range doc.Features[:10] {
		assert.Len(t, f.ID, 5, "feature ids are 5-digit county codes")
	}
}

func TestSmoke_CachedFetcher(t *testing.T) {
	c := NewClient(30*time.Second, discardLogger())
	cached := NewCachedFetcher(c, time.Hour, observability.NewMetricsForTesting(), discardLogger())

	// First call: cache miss, real download.
	b1, err := cached.Fetch(context.Background(), config.DefaultCountyGeoJSONURL)
	require.NoError(t, err)

	// Second call: served from cache.
	start := time.Now()
	b2, err := cached.Fetch(context.Background(), config.DefaultCountyGeoJSONURL)
	require.NoError(t, err)
	assert.Equal(t, len(b1), len(b2))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
