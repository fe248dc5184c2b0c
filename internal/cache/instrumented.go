package cache

import "context"

// instrumentedCache records hits and misses for a group and exposes the entry
// count as a gauge read at scrape time.
type instrumentedCache struct {
	inner Cache
	group string
}

func newInstrumentedCache(inner Cache, group string) *instrumentedCache {
	registerEntriesGauge(group, inner.Len)
	return &instrumentedCache{inner: inner, group: group}
}

func (c *instrumentedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, ok := c.inner.Get(ctx, key)
	if ok {
		HitsTotal.WithLabelValues(c.group).Inc()
	} else {
		MissesTotal.WithLabelValues(c.group).Inc()
	}
	return val, ok
}

func (c *instrumentedCache) Set(ctx context.Context, key string, value []byte) {
	c.inner.Set(ctx, key, value)
}

func (c *instrumentedCache) Contains(ctx context.Context, key string) bool {
	return c.inner.Contains(ctx, key)
}

func (c *instrumentedCache) Len() int {
	return c.inner.Len()
}

// Close unregisters the entries gauge and closes the underlying cache.
func (c *instrumentedCache) Close() error {
	unregisterEntriesGauge(c.group)
	return c.inner.Close()
}
