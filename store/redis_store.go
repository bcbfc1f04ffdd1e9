package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/truffle/internal/tlsutil"
	"github.com/BaSui01/truffle/marker"
)

// maxWatchRetries bounds optimistic transaction retries for guarded removes.
const maxWatchRetries = 5

// RedisStore is a Redis-based implementation of Store.
// Suitable for distributed deployments where several workers share a cache.
// Each fingerprint is a hash (field = action, value = record JSON); each
// stable id is a plain string key.
type RedisStore struct {
	client      *redis.Client
	keyPrefix   string
	fingerprint func(string) string
	logger      *zap.Logger
}

// NewRedisStore creates a new Redis-based marker store
func NewRedisStore(config StoreConfig, logger *zap.Logger) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
		PoolSize: config.Redis.PoolSize,
	}
	if config.Redis.TLS {
		opts.TLSConfig = tlsutil.ClientConfig(config.Redis.Host)
	}
	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, config.Redis.KeyPrefix, config.Fingerprint, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string, mode FingerprintMode, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "truffle:"
	}
	return &RedisStore{
		client:      client,
		keyPrefix:   keyPrefix + "marker:",
		fingerprint: mode.Func(),
		logger:      logger.With(zap.String("component", "marker_store"), zap.String("backend", "redis")),
	}
}

// Close closes the store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// fingerprintKey returns the Redis hash holding a document's markers
func (s *RedisStore) fingerprintKey(fp string) string {
	return s.keyPrefix + "fp:" + fp
}

// stableKey returns the Redis key for a stable id entry
func (s *RedisStore) stableKey(id string) string {
	return s.keyPrefix + "sid:" + id
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key Key) (marker.Marker, error) {
	if key.StableID != "" {
		data, err := s.client.Get(ctx, s.stableKey(key.StableID)).Bytes()
		switch {
		case err == nil:
			return marker.Unmarshal(data)
		case !errors.Is(err, redis.Nil):
			return nil, unavailable("redis get stable id", err)
		}
	}

	data, err := s.client.HGet(ctx, s.fingerprintKey(s.fingerprint(key.Document)), key.Action).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("redis hget", err)
	}

	m, err := marker.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	if key.StableID != "" {
		if err := s.client.Set(ctx, s.stableKey(key.StableID), data, 0).Err(); err != nil {
			return m, unavailable("redis backfill stable id", err)
		}
	}
	return m, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key Key, m marker.Marker) error {
	data, err := marker.Marshal(m)
	if err != nil {
		return ErrInvalidInput
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.fingerprintKey(s.fingerprint(key.Document)), key.Action, data)
		if key.StableID != "" {
			pipe.Set(ctx, s.stableKey(key.StableID), data, 0)
		}
		return nil
	})
	if err != nil {
		return unavailable("redis put", err)
	}
	return nil
}

// Remove implements Store. The compare-and-delete runs under WATCH so a
// concurrent Put between the read and the delete aborts the transaction.
func (s *RedisStore) Remove(ctx context.Context, key Key, m marker.Marker) (bool, error) {
	hashKey := s.fingerprintKey(s.fingerprint(key.Document))
	removed := false

	guard := func(tx *redis.Tx) error {
		removed = false
		data, err := tx.HGet(ctx, hashKey, key.Action).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		current, err := marker.Unmarshal(data)
		if err != nil || !marker.Equal(current, m) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, hashKey, key.Action)
			return nil
		})
		if err == nil {
			removed = true
		}
		return err
	}

	var err error
	for i := 0; i < maxWatchRetries; i++ {
		err = s.client.Watch(ctx, guard, hashKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		s.logger.Debug("guarded remove raced, retrying", zap.Int("attempt", i+1))
	}
	switch {
	case errors.Is(err, redis.TxFailedErr):
		// the entry kept changing under us; concurrent writers are fresher
		removed = false
	case err != nil:
		return false, unavailable("redis guarded remove", err)
	}

	if key.StableID != "" {
		if err := s.client.Del(ctx, s.stableKey(key.StableID)).Err(); err != nil {
			return removed, unavailable("redis delete stable id", err)
		}
	}
	return removed, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context) error {
	err := s.scan(ctx, s.keyPrefix+"*", func(keys []string) error {
		return s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return unavailable("redis reset", err)
	}
	return nil
}

// Export implements Store.
func (s *RedisStore) Export(ctx context.Context) (*Snapshot, error) {
	snap := NewSnapshot()

	fpPrefix := s.fingerprintKey("")
	err := s.scan(ctx, fpPrefix+"*", func(keys []string) error {
		for _, k := range keys {
			fields, err := s.client.HGetAll(ctx, k).Result()
			if err != nil {
				return err
			}
			fp := strings.TrimPrefix(k, fpPrefix)
			for action, raw := range fields {
				var rec marker.Record
				if err := json.Unmarshal([]byte(raw), &rec); err != nil {
					s.logger.Warn("skipping undecodable record", zap.String("key", k), zap.String("action", action), zap.Error(err))
					continue
				}
				snap.Set(fp, action, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("redis export", err)
	}

	sidPrefix := s.stableKey("")
	err = s.scan(ctx, sidPrefix+"*", func(keys []string) error {
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var rec marker.Record
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				continue
			}
			snap.StableIDIndex[strings.TrimPrefix(keys[i], sidPrefix)] = rec
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("redis export", err)
	}
	return snap, nil
}

// Import implements Store.
func (s *RedisStore) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return ErrInvalidInput
	}

	pipe := s.client.Pipeline()
	for fp, actions := range snap.Entries {
		for action, rec := range actions {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
			pipe.HSet(ctx, s.fingerprintKey(fp), action, data)
		}
	}
	for id, rec := range snap.StableIDIndex {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		pipe.Set(ctx, s.stableKey(id), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("redis import", err)
	}
	return nil
}

// scan walks keys matching pattern in batches.
func (s *RedisStore) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
