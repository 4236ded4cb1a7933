// Package meshcache memoizes decimation results of one fixed base mesh.
package meshcache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/philipparndt/meshdash/internal/metrics"
	"github.com/philipparndt/meshdash/pkg/decimate"
	"github.com/philipparndt/meshdash/pkg/mesh"
)

// DecimateFunc reduces base by the given fraction of its faces
type DecimateFunc func(base *mesh.Mesh, reduction float64) (*mesh.Mesh, error)

// Cache maps a resolution to the decimated base mesh. With the default size
// of zero it never evicts: every distinct resolution ever requested stays in
// memory for the lifetime of the cache. A positive size bounds it with an
// LRU policy.
//
// Cache is not safe for concurrent use and assumes the base mesh is never
// modified after New.
type Cache struct {
	base         *mesh.Mesh
	decimate     DecimateFunc
	entries      map[float64]*mesh.Mesh
	bounded      *lru.Cache[float64, *mesh.Mesh]
	metrics      *metrics.Dashboard
	computations int
}

type Option func(*Cache)

// WithSize bounds the cache to n entries; n <= 0 means unbounded
func WithSize(n int) Option {
	return func(c *Cache) {
		if n <= 0 {
			return
		}
		bounded, err := lru.New[float64, *mesh.Mesh](n)
		if err == nil {
			c.bounded = bounded
		}
	}
}

// WithDecimator replaces the decimation routine
func WithDecimator(fn DecimateFunc) Option {
	return func(c *Cache) { c.decimate = fn }
}

func WithMetrics(d *metrics.Dashboard) Option {
	return func(c *Cache) { c.metrics = d }
}

func New(base *mesh.Mesh, opts ...Option) *Cache {
	c := &Cache{
		base:     base,
		decimate: decimate.Decimate,
		entries:  make(map[float64]*mesh.Mesh),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Base returns the mesh every entry is derived from
func (c *Cache) Base() *mesh.Mesh {
	return c.base
}

// Get returns the base mesh decimated by 1 - resolution. Repeated calls with
// the same resolution return the same *mesh.Mesh without recomputing.
// Failures are not cached.
func (c *Cache) Get(resolution float64) (*mesh.Mesh, error) {
	if m, ok := c.lookup(resolution); ok {
		c.metrics.CacheHit()
		return m, nil
	}
	c.metrics.CacheMiss()

	start := time.Now()
	m, err := c.decimate(c.base, 1-resolution)
	c.computations++
	if err != nil {
		return nil, fmt.Errorf("decimate at resolution %v: %w", resolution, err)
	}
	c.metrics.ObserveDecimation(time.Since(start))

	c.store(resolution, m)
	c.metrics.SetCacheEntries(c.Len())
	return m, nil
}

func (c *Cache) lookup(resolution float64) (*mesh.Mesh, bool) {
	if c.bounded != nil {
		return c.bounded.Get(resolution)
	}
	m, ok := c.entries[resolution]
	return m, ok
}

func (c *Cache) store(resolution float64, m *mesh.Mesh) {
	if c.bounded != nil {
		c.bounded.Add(resolution, m)
		return
	}
	c.entries[resolution] = m
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	return len(c.entries)
}

// Computations counts calls to the decimator, failed ones included
func (c *Cache) Computations() int {
	return c.computations
}
