// Package geo loads the static cannon map layer and merges live consumption
// into it.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"
)

// Source yields the static feature collection.
type Source interface {
	Load(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Decode parses a GeoJSON FeatureCollection.
func Decode(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode feature collection: unexpected type %q", fc.Type)
	}
	return fc, nil
}

// FileSource reads the collection from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (*geojson.FeatureCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read geojson %s: %w", s.Path, err)
	}
	return Decode(data)
}

// URLSource fetches the collection over HTTP, e.g. from blob storage.
type URLSource struct {
	URL    string
	Client *http.Client
}

func (s URLSource) Load(ctx context.Context) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request geojson: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request geojson: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read geojson body: %w", err)
	}
	return Decode(data)
}

// Cache memoizes the first successful load of a Source for the lifetime of
// the process. Failed loads are not cached. Callers must treat the returned
// collection as read-only.
type Cache struct {
	source Source
	clock  clockwork.Clock
	onLoad func(features int, took time.Duration)

	mu       sync.Mutex
	fc       *geojson.FeatureCollection
	loadedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock sets the time source used for load timestamps.
func WithClock(clock clockwork.Clock) CacheOption {
	return func(c *Cache) { c.clock = clock }
}

// OnLoad registers a hook invoked after each successful load from the
// underlying source.
func OnLoad(fn func(features int, took time.Duration)) CacheOption {
	return func(c *Cache) { c.onLoad = fn }
}

// NewCache wraps source with an in-process cache.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{source: source, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Load(ctx context.Context) (*geojson.FeatureCollection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fc != nil {
		return c.fc, nil
	}
	if c.source == nil {
		return nil, errors.New("geojson source is not configured")
	}

	start := c.clock.Now()
	fc, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.fc = fc
	c.loadedAt = c.clock.Now()

	if c.onLoad != nil {
		c.onLoad(len(fc.Features), c.loadedAt.Sub(start))
	}
	return fc, nil
}

// LoadedAt reports when the collection was loaded, if it has been.
func (c *Cache) LoadedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt, c.fc != nil
}
