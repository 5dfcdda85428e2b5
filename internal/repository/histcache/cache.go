// Package histcache caches summarized histogram datasets in Redis or Valkey.
// Collections never change after creation, so entries only expire by TTL or
// explicit invalidation.
package histcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spectradex/internal/db"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
)

const keyPrefix = "spectradex:hist:"

// store is the consumer interface for the dataset cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Info describes the most recent dataset stored for a collection.
type Info struct {
	Particles int
	Bytes     int
	StoredAt  int64
}

// Cache stores datasets keyed by collection id and binning.
type Cache struct {
	store      store
	codec      *codec
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a dataset cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, compress bool, cacheTotal *prometheus.CounterVec, logger *zap.Logger) (*Cache, error) {
	c, err := newCodec(compress)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, codec: c, ttl: ttl, cacheTotal: cacheTotal, logger: logger}, nil
}

func datasetKey(collectionID int64, b histogram.Binning) string {
	return fmt.Sprintf("%s%d:%d:%d:%s", keyPrefix, collectionID, b.Low, b.High,
		strconv.FormatFloat(b.Resolution, 'g', -1, 64))
}

func metaKey(collectionID int64) string {
	return fmt.Sprintf("%smeta:%d", keyPrefix, collectionID)
}

// Load returns the cached dataset or false on a miss. Cache failures are logged
// and reported as misses.
func (c *Cache) Load(ctx context.Context, collectionID int64, b histogram.Binning) (*histogram.Dataset, bool) {
	key := datasetKey(collectionID, b)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached dataset", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}

	ds, err := c.codec.decode(data)
	if err != nil {
		c.logger.Warn("Failed to decode cached dataset", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return nil, false
	}
	c.inc("hit")
	return ds, true
}

// Save stores ds for collectionID. Failures are logged, never returned.
func (c *Cache) Save(ctx context.Context, collectionID int64, ds *histogram.Dataset, particles int) {
	key := datasetKey(collectionID, ds.Binning())
	data, err := c.codec.encode(ds)
	if err != nil {
		c.logger.Warn("Failed to encode dataset", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache dataset", zap.String("key", key), zap.Error(err))
		return
	}
	meta := map[string]string{
		"particles": strconv.Itoa(particles),
		"bytes":     strconv.Itoa(len(data)),
		"stored_at": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if err := c.store.HSet(ctx, metaKey(collectionID), meta); err != nil {
		c.logger.Warn("Failed to store dataset info", zap.Int64("collection_id", collectionID), zap.Error(err))
	}
}

// Info returns what was last stored for collectionID, false when nothing was.
func (c *Cache) Info(ctx context.Context, collectionID int64) (Info, bool, error) {
	m, err := c.store.HGetAll(ctx, metaKey(collectionID))
	if err != nil {
		return Info{}, false, fmt.Errorf("dataset info %d: %w", collectionID, err)
	}
	if len(m) == 0 {
		return Info{}, false, nil
	}
	var info Info
	info.Particles, _ = strconv.Atoi(m["particles"])
	info.Bytes, _ = strconv.Atoi(m["bytes"])
	info.StoredAt, _ = strconv.ParseInt(m["stored_at"], 10, 64)
	return info, true, nil
}

// Particles reports how many particles the cached dataset of collectionID was
// built from. Lookup failures are logged and reported as unknown.
func (c *Cache) Particles(ctx context.Context, collectionID int64) (int, bool) {
	info, ok, err := c.Info(ctx, collectionID)
	if err != nil {
		c.logger.Warn("Failed to read dataset info", zap.Int64("collection_id", collectionID), zap.Error(err))
		return 0, false
	}
	return info.Particles, ok
}

// Invalidate drops every cached dataset of collectionID.
func (c *Cache) Invalidate(ctx context.Context, collectionID int64) error {
	keys, err := c.store.Scan(ctx, fmt.Sprintf("%s%d:*", keyPrefix, collectionID))
	if err != nil {
		return fmt.Errorf("scan datasets %d: %w", collectionID, err)
	}
	keys = append(keys, metaKey(collectionID))
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete datasets %d: %w", collectionID, err)
	}
	return nil
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
