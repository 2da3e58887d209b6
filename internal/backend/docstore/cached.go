package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
	"github.com/wonny/refdata/pkg/redis"
)

// Cached is a read-through Redis layer over another document backend.
// Snapshot documents are immutable once written, so entries only leave the
// cache through TTL or Invalidate.
type Cached struct {
	inner   contracts.DocumentBackend
	cache   *redis.Cache
	ttl     time.Duration
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// NewCached wraps inner. A disabled cache makes every call pass through.
func NewCached(inner contracts.DocumentBackend, cache *redis.Cache, ttl time.Duration, log *logger.Logger, rec *metrics.Recorder) *Cached {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &Cached{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.OrNop(log).Component("docstore_cache"),
		metrics: rec,
	}
}

// Find serves from Redis when possible, otherwise drains inner and caches the result.
func (c *Cached) Find(ctx context.Context, filter contracts.DocumentFilter, order contracts.SortOrder) (contracts.Cursor, error) {
	if !c.cache.Enabled() {
		return c.inner.Find(ctx, filter, order)
	}

	key := findKey(filter, order)
	var docs []contracts.Document
	found, err := c.cache.Get(ctx, key, &docs)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Document cache read failed")
	}
	c.metrics.RecordCacheLookup("documents", found)
	if found {
		return contracts.NewSliceCursor(docs), nil
	}

	cur, err := c.inner.Find(ctx, filter, order)
	if err != nil {
		return nil, err
	}
	docs, err = contracts.Drain(cur)
	if err != nil {
		return nil, contracts.Backend("find documents", err)
	}

	if err := c.cache.Set(ctx, key, docs, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Document cache write failed")
	}
	return contracts.NewSliceCursor(docs), nil
}

// Invalidate drops every cached lookup of collection.
func (c *Cached) Invalidate(ctx context.Context, collection string) error {
	n, err := c.cache.DeletePrefix(ctx, redis.Key("find", collection))
	if err != nil {
		return fmt.Errorf("invalidate %s documents: %w", collection, err)
	}
	c.logger.WithFields(map[string]interface{}{
		"collection": collection,
		"removed":    n,
	}).Info("Document cache invalidated")
	return nil
}

func findKey(f contracts.DocumentFilter, order contracts.SortOrder) string {
	date := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return contracts.FormatDate(*t, contracts.CompactDate)
	}
	key := redis.Key("find", f.Collection, f.Country, f.SecID, f.Name,
		date(f.DateFrom), date(f.DateTo), fmt.Sprint(int(order)))
	if f.Limit > 0 {
		key = redis.Key(key, "limit", fmt.Sprint(f.Limit))
	}
	return key
}
