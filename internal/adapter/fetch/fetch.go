// Package fetch provides the byte-retrieval boundary used to download
// coverage and tile documents.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/coocood/freecache"
)

// Fetcher retrieves the raw bytes at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches over HTTP(S). It performs no retries and configures
// no timeout of its own; transport errors and non-2xx statuses are returned
// to the caller unchanged.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher backed by the given client, or
// http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch performs a GET request and returns the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s returned status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}
	return body, nil
}

// CachedFetcher memoizes fetched bytes by URL in an in-memory freecache.
// Lazy arrays re-invoke their tasks on every access, so without this layer
// repeated reads of the same region re-download the same tiles. Errors are
// never cached.
type CachedFetcher struct {
	inner Fetcher
	cache *freecache.Cache
}

// NewCachedFetcher wraps inner with a cache of roughly sizeBytes bytes.
func NewCachedFetcher(inner Fetcher, sizeBytes int) *CachedFetcher {
	return &CachedFetcher{
		inner: inner,
		cache: freecache.NewCache(sizeBytes),
	}
}

// Fetch returns cached bytes when present, otherwise delegates to the
// underlying fetcher and stores the result without expiry.
func (f *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	key := []byte(url)
	if cached, err := f.cache.Get(key); err == nil {
		return cached, nil
	}
	body, err := f.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	// Entries larger than the cache allows are simply served uncached.
	_ = f.cache.Set(key, body, 0)
	return body, nil
}

// HitRate reports the cache hit rate, for logging.
func (f *CachedFetcher) HitRate() float64 {
	return f.cache.HitRate()
}
