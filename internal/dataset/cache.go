package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a generated dataset in the cache
type Key struct {
	NEvents int    `json:"n_events"`
	Seed    uint64 `json:"seed"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.NEvents, k.Seed)
}

// Recorder receives cache and generation measurements
type Recorder interface {
	RecordCacheLookup(ctx context.Context, hit bool)
	RecordGeneration(ctx context.Context, rows int, took time.Duration)
}

// CacheStats is a snapshot of cache counters
type CacheStats struct {
	Key         *Key  `json:"key,omitempty"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Generations int64 `json:"generations"`
}

// Cache memoizes the most recently requested dataset
type Cache struct {
	anchor time.Time
	window int
	logger *slog.Logger
	rec    Recorder

	mu      sync.RWMutex
	key     Key
	current *Dataset

	group       singleflight.Group
	hits        atomic.Int64
	misses      atomic.Int64
	generations atomic.Int64
}

// NewCache creates a cache that generates datasets anchored at anchor with
// the given trailing window. rec may be nil.
func NewCache(anchor time.Time, windowDays int, logger *slog.Logger, rec Recorder) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		anchor: truncateToDay(anchor),
		window: windowDays,
		logger: logger.With(slog.String("component", "dataset_cache")),
		rec:    rec,
	}
}

// Anchor returns the date generated datasets end at
func (c *Cache) Anchor() time.Time {
	return c.anchor
}

// Get returns the dataset for key, generating it when the cache holds a
// different key or nothing at all.
func (c *Cache) Get(ctx context.Context, key Key) (*Dataset, error) {
	c.mu.RLock()
	if c.current != nil && c.key == key {
		ds := c.current
		c.mu.RUnlock()
		c.hits.Add(1)
		c.record(ctx, true)
		return ds, nil
	}
	c.mu.RUnlock()

	c.misses.Add(1)
	c.record(ctx, false)

	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		return c.generate(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "joined in-flight generation", slog.String("key", key.String()))
	}
	return v.(*Dataset), nil
}

func (c *Cache) generate(ctx context.Context, key Key) (*Dataset, error) {
	c.mu.RLock()
	if c.current != nil && c.key == key {
		ds := c.current
		c.mu.RUnlock()
		return ds, nil
	}
	c.mu.RUnlock()

	start := time.Now()
	ds, err := Generate(Options{
		NEvents:            key.NEvents,
		Seed:               key.Seed,
		TrailingWindowDays: c.window,
		Anchor:             c.anchor,
	})
	if err != nil {
		return nil, fmt.Errorf("generate dataset %s: %w", key, err)
	}
	took := time.Since(start)

	c.mu.Lock()
	previous := c.current
	c.key = key
	c.current = ds
	c.mu.Unlock()

	c.generations.Add(1)
	if c.rec != nil {
		c.rec.RecordGeneration(ctx, ds.Len(), took)
	}

	attrs := []any{
		slog.String("key", key.String()),
		slog.Int("rows", ds.Len()),
		slog.Duration("took", took),
	}
	if previous != nil {
		attrs = append(attrs, slog.Bool("invalidated_previous", true))
	}
	c.logger.InfoContext(ctx, "dataset generated", attrs...)

	return ds, nil
}

// Invalidate drops the cached dataset
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.key = Key{}
	c.mu.Unlock()
}

// Stats returns a snapshot of the cache counters
func (c *Cache) Stats() CacheStats {
	st := CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Generations: c.generations.Load(),
	}
	c.mu.RLock()
	if c.current != nil {
		k := c.key
		st.Key = &k
	}
	c.mu.RUnlock()
	return st
}

func (c *Cache) record(ctx context.Context, hit bool) {
	if c.rec != nil {
		c.rec.RecordCacheLookup(ctx, hit)
	}
}
