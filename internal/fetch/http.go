// Package fetch downloads remote spectral library files over HTTP and keeps
// recently used bodies in memory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps a single download.
const maxBodyBytes = 64 << 20

// HTTPFetcher implements readers.Fetcher with a bounded LRU cache keyed by URL.
type HTTPFetcher struct {
	client *http.Client
	cache  *lru.Cache[string, []byte]
}

// Config holds fetcher settings
type Config struct {
	Timeout   time.Duration
	CacheSize int
}

// NewHTTPFetcher creates a fetcher. A CacheSize of zero disables caching.
func NewHTTPFetcher(cfg Config) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetch cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Fetch returns the body served at url. Only 200 responses succeed.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			log.Debug().Str("url", url).Msg("Fetch cache hit")
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("failed to fetch %s: body exceeds %d bytes", url, maxBodyBytes)
	}

	log.Info().
		Str("url", url).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Fetched remote spectrum")

	if f.cache != nil {
		f.cache.Add(url, body)
	}
	return body, nil
}

// Purge drops every cached body.
func (f *HTTPFetcher) Purge() {
	if f.cache != nil {
		f.cache.Purge()
	}
}
