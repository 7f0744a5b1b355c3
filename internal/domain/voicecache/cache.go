// Package voicecache keeps synthesized speech artifacts addressed by the hash
// of their normalized text and voice parameters.
package voicecache

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"tutor-voice-server/internal/domain/voicecache/model"
	"tutor-voice-server/internal/domain/voicecache/store"
	"tutor-voice-server/internal/platform/logging"
)

// Artifact is the cached speech response.
type Artifact = model.Artifact

// ErrNotFound is returned on a miss.
var ErrNotFound = store.ErrNotFound

// Stats summarises cache effectiveness since process start.
type Stats struct {
	Driver  string  `json:"driver"`
	Entries int64   `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache adds TTL stamping and hit accounting on top of a Store.
type Cache struct {
	store       store.Store
	ttl         time.Duration
	degradedTTL time.Duration
	logger      *logging.Logger
	now         func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

func New(s store.Store, ttl time.Duration, logger *logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = model.DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Cache{store: s, ttl: ttl, logger: logger, now: time.Now}
	return c.WithDegradedTTL(model.DefaultDegradedTTL)
}

// WithDegradedTTL sets the lifetime of artifacts stored with LipSyncDegraded,
// so a later request can retry lip-sync. It never exceeds the regular TTL.
func (c *Cache) WithDegradedTTL(d time.Duration) *Cache {
	if d <= 0 {
		d = model.DefaultDegradedTTL
	}
	if d > c.ttl {
		d = c.ttl
	}
	c.degradedTTL = d
	return c
}

// Lookup is the single get-and-touch call used for a cache probe. Any error
// counts as a miss; callers treat non-ErrNotFound errors as a degraded store.
func (c *Cache) Lookup(ctx context.Context, key string) (*Artifact, error) {
	a, err := c.store.Touch(ctx, key)
	if err != nil {
		c.misses.Add(1)
		if !stderrors.Is(err, ErrNotFound) {
			c.logger.WarnTag("Cache", "lookup %s failed: %v", key, err)
		}
		return nil, err
	}
	c.hits.Add(1)
	return a, nil
}

// Recheck is Lookup without hit accounting, for callers that already
// counted a miss for the same request.
func (c *Cache) Recheck(ctx context.Context, key string) (*Artifact, error) {
	return c.store.Touch(ctx, key)
}

// Store stamps creation and expiry and writes the artifact. Degraded
// artifacts get the shorter degraded TTL.
func (c *Cache) Store(ctx context.Context, a *Artifact) error {
	now := c.now().UTC()
	next := a.Clone()
	next.CreatedAt = now
	next.LastUsedAt = now
	ttl := c.ttl
	if next.LipSyncDegraded {
		ttl = c.degradedTTL
	}
	next.ExpiresAt = now.Add(ttl)
	next.TimesUsed = 1
	return c.store.Put(ctx, next)
}

// Stats reports counters and the live entry count.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	hits, misses := c.hits.Load(), c.misses.Load()
	st := Stats{Driver: c.store.Driver(), Hits: hits, Misses: misses, HitRate: HitRate(hits, misses)}
	n, err := c.store.Count(ctx)
	if err != nil {
		return st, err
	}
	st.Entries = n
	return st, nil
}

// HitRate returns hits/(hits+misses), or 0 before any lookup.
func HitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

// Sweep physically removes expired entries.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	n, err := c.store.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.logger.InfoTag("Cache", "purged %d expired artifacts", n)
	}
	return n, nil
}

// RunSweeper purges expired entries every interval until ctx is done.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil && ctx.Err() == nil {
				c.logger.WarnTag("Cache", "sweep failed: %v", err)
			}
		}
	}
}

func (c *Cache) Ping(ctx context.Context) error { return c.store.Ping(ctx) }

func (c *Cache) Driver() string { return c.store.Driver() }

func (c *Cache) Close(ctx context.Context) error { return c.store.Close(ctx) }
