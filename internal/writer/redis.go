package writer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jsphbtst/personal-alpaca-cli/internal/config"
	"github.com/jsphbtst/personal-alpaca-cli/internal/model"
)

// KeyPrefix prefixes every per-symbol hash key.
const KeyPrefix = "quotes:"

// HashStore is the subset of *redis.Client used by RedisCache.
type HashStore interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// RedisCache keeps the latest quote for each symbol in quotes:<SYMBOL>.
type RedisCache struct {
	store  HashStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache parses cfg.URL and pings the server.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping: %w", err)
	}

	c := newRedisCache(client, cfg.TTL, logger)
	c.logger.Info("redis cache ready", zap.String("addr", opts.Addr), zap.Duration("ttl", cfg.TTL))
	return c, nil
}

func newRedisCache(store HashStore, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{store: store, ttl: ttl, logger: logger.Named("redis")}
}

// Key returns the hash key for symbol.
func Key(symbol string) string { return KeyPrefix + symbol }

func hashFields(u model.PriceUpdate) []interface{} {
	return []interface{}{
		"bid", strconv.FormatFloat(u.Bid, 'f', -1, 64),
		"ask", strconv.FormatFloat(u.Ask, 'f', -1, 64),
		"mid", strconv.FormatFloat(u.Price, 'f', -1, 64),
		"ts", u.ReceivedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Name implements consumer.Consumer.
func (c *RedisCache) Name() string { return "redis" }

// Consume overwrites the symbol's hash and refreshes its TTL.
func (c *RedisCache) Consume(ctx context.Context, u model.PriceUpdate) error {
	key := Key(u.Symbol)
	if err := c.store.HSet(ctx, key, hashFields(u)...).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if c.ttl > 0 {
		if err := c.store.Expire(ctx, key, c.ttl).Err(); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.store.Close()
}
