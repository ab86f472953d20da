// Package geojson fetches and caches the county boundary geometry the
// county figure draws against.
package geojson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxDocumentBytes bounds a fetched geometry document. The plotly county
// file is about 2.3 MB.
const maxDocumentBytes = 64 << 20

// ErrNotGeoJSON is returned when the fetched body is not a GeoJSON object.
var ErrNotGeoJSON = errors.New("response is not a GeoJSON document")

// Fetcher retrieves a geometry document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client fetches geometry documents over HTTP.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a geometry client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads url and checks that it holds a GeoJSON object with a
// "type" member.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geometry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geometry source error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("geometry document exceeds %d bytes", maxDocumentBytes)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil || head.Type == "" {
		return nil, ErrNotGeoJSON
	}

	c.logger.Debug("geometry fetched", "url", url, "bytes", len(body), "duration", time.Since(start))
	return body, nil
}
