// Package cache provides a Redis-backed TTL cache for fetched market data
// so repeated analysis runs do not refetch identical candle ranges. A nil
// Redis client degrades every operation to a cache miss, keeping the
// pipeline usable without Redis.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psam21/btct/models"
)

const defaultNamespace = "btct:marketdata"

// Manager is a TTL cache for MarketData values.
type Manager struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    zerolog.Logger
}

// NewManager creates a cache manager. A zero ttl defaults to one hour and
// an empty namespace defaults to "btct:marketdata".
func NewManager(rdb *redis.Client, ttl time.Duration, namespace string) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Manager{
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		logger:    log.With().Str("component", "cache").Logger(),
	}
}

// Key builds a stable cache key for a fetch request.
func Key(source, symbol, timeframe string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d_%d", source, symbol, timeframe, start.Unix(), end.Unix())
}

// Get returns the cached MarketData for a key, or (nil, false) on a miss,
// an expired entry, or a decode failure. Corrupted entries are deleted.
func (m *Manager) Get(ctx context.Context, key string) (*models.MarketData, bool) {
	if m.rdb == nil {
		return nil, false
	}

	hashed := m.hashKey(key)
	b, err := m.rdb.Get(ctx, hashed).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}

	var md models.MarketData
	if err := json.Unmarshal(b, &md); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Deleting corrupted cache entry")
		_ = m.rdb.Del(ctx, hashed).Err()
		return nil, false
	}

	m.logger.Debug().Str("key", key).Int("candles", len(md.Candles)).Msg("Cache hit")
	return &md, true
}

// Set stores MarketData under a key with the manager TTL. Failures are
// logged and swallowed; caching is best effort.
func (m *Manager) Set(ctx context.Context, key string, md *models.MarketData) {
	if m.rdb == nil || md == nil {
		return
	}

	b, err := json.Marshal(md)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}

	if err := m.rdb.Set(ctx, m.hashKey(key), b, m.ttl).Err(); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("Failed to store cache entry")
	}
}

// Delete removes one cache entry.
func (m *Manager) Delete(ctx context.Context, key string) {
	if m.rdb == nil {
		return
	}
	_ = m.rdb.Del(ctx, m.hashKey(key)).Err()
}

// Clear removes every entry in the manager's namespace using SCAN, so it
// stays safe against large keyspaces.
func (m *Manager) Clear(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := m.rdb.Scan(ctx, cursor, m.namespace+":*", 100).Result()
		if err != nil {
			return fmt.Errorf("scanning cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := m.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// FetchMarketData is the cache-first fetch path: return cached data when
// present, otherwise fetch from the source and store the result.
func (m *Manager) FetchMarketData(ctx context.Context, source models.MarketDataSource,
	sourceName, symbol, timeframe string, start, end time.Time) (*models.MarketData, error) {

	key := Key(sourceName, symbol, timeframe, start, end)

	if md, ok := m.Get(ctx, key); ok {
		return md, nil
	}

	md, err := source.FetchHistoricalData(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}

	m.Set(ctx, key, md)
	return md, nil
}

func (m *Manager) hashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return m.namespace + ":" + hex.EncodeToString(sum[:])
}
