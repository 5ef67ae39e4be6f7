// Package redis provides the key-value backend for the caching layer,
// built on go-redis. The client is deliberately fail-soft: command errors
// disable it and a background ping loop with bounded backoff re-enables it
// once the server answers again. After the configured number of reconnect
// attempts the client stays disabled until process restart.
package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
)

var nopLogger = zap.NewNop()

// Options configures the backend client.
type Options struct {
	// URL is a redis:// connection URL.
	URL string

	// Password overrides any password in the URL. Optional.
	Password string

	// DB overrides the database selected by the URL when non-zero.
	DB int

	// CommandTimeout bounds each command. Default is one second.
	CommandTimeout time.Duration

	// MaxReconnects caps the background reconnect attempts after the
	// connection is lost. Default is 10. Exceeding it marks the client
	// permanently unavailable.
	MaxReconnects int

	// ReconnectDelay is the initial wait before the first reconnect ping.
	// Subsequent waits grow with jitter up to 30s. Default is 100ms.
	ReconnectDelay time.Duration

	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

func (o *Options) init() error {
	if o.URL == "" {
		return errors.New("redis url is required")
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 10
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 100 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = nopLogger
	}
	return nil
}

// Client implements cache.Backend over a single logical Redis instance.
type Client struct {
	opts Options
	rdb  *redis.Client

	disabled uint32
	dead     uint32
}

// Interface assertion to ensure Client implements cache.Backend
var _ cache.Backend = (*Client)(nil)

// NewClient creates a client from the given options without connecting.
func NewClient(opts Options) (*Client, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}

	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.Password != "" {
		ropts.Password = opts.Password
	}
	if opts.DB != 0 {
		ropts.DB = opts.DB
	}

	return &Client{
		opts: opts,
		rdb:  redis.NewClient(ropts),
	}, nil
}

// Connect verifies the connection with a ping. A failed ping does not
// return an error: the cache is an optional accelerator, so the client
// starts disabled and recovers in the background instead.
func (c *Client) Connect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.opts.Logger.Warn("redis unreachable at startup", zap.Error(err))
		c.disable()
		return
	}
	c.opts.Logger.Info("connected to redis")
}

// Ready reports whether commands may be issued.
func (c *Client) Ready() bool {
	return atomic.LoadUint32(&c.disabled) == 0 && atomic.LoadUint32(&c.dead) == 0
}

// Close shuts down the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// fail logs a command error and temporarily disables the client.
func (c *Client) fail(op string, err error) {
	c.opts.Logger.Warn("redis command failed", zap.String("op", op), zap.Error(err))
	c.disable()
}

// disable takes the client offline and starts the reconnect loop. Only the
// first caller wins; concurrent failures are ignored.
func (c *Client) disable() {
	if atomic.LoadUint32(&c.dead) != 0 {
		return
	}
	if !atomic.CompareAndSwapUint32(&c.disabled, 0, 1) {
		return
	}
	c.opts.Logger.Warn("redis temporarily disabled")

	go func() {
		const maxBackoff = 30 * time.Second
		backoff := c.opts.ReconnectDelay
		for attempt := 1; attempt <= c.opts.MaxReconnects; attempt++ {
			time.Sleep(backoff)

			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			err := c.rdb.Ping(ctx).Err()
			cancel()
			if err == nil {
				atomic.StoreUint32(&c.disabled, 0)
				c.opts.Logger.Info("redis reconnected", zap.Int("attempt", attempt))
				return
			}

			backoff += time.Second + time.Duration(rand.Intn(1000))*time.Millisecond
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			c.opts.Logger.Warn("redis ping failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Duration("next_ping", backoff),
			)
		}
		atomic.StoreUint32(&c.dead, 1)
		c.opts.Logger.Error("redis reconnect attempts exhausted, cache disabled until restart",
			zap.Int("attempts", c.opts.MaxReconnects),
		)
	}()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.CommandTimeout)
}

// Get returns the raw value under key; ok=false when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	value, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		c.fail("get", err)
		return "", false, err
	}
	return value, true, nil
}

// Set writes value under key with the given expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.fail("set", err)
		return err
	}
	return nil
}

// Delete removes the given keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.fail("del", err)
		return err
	}
	return nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.fail("exists", err)
		return false, err
	}
	return n == 1, nil
}

// Scan returns one page of keys matching the pattern.
func (c *Client) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	keys, next, err := c.rdb.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		c.fail("scan", err)
		return nil, 0, err
	}
	return keys, next, nil
}

// Incr atomically increments the counter under key.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	value, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.fail("incr", err)
		return 0, err
	}
	return value, nil
}

// Expire sets the TTL of key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		c.fail("expire", err)
		return err
	}
	return nil
}

// TTL returns the remaining lifetime of key.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		c.fail("ttl", err)
		return 0, err
	}
	return ttl, nil
}

// SAdd adds members to the set under key.
func (c *Client) SAdd(ctx context.Context, key string, members ...string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := c.rdb.SAdd(ctx, key, args...).Err(); err != nil {
		c.fail("sadd", err)
		return err
	}
	return nil
}

// SMembers returns all members of the set under key.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		c.fail("smembers", err)
		return nil, err
	}
	return members, nil
}

// MGet fetches multiple keys; absent keys yield nil entries.
func (c *Client) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.fail("mget", err)
		return nil, err
	}

	results := make([]*string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			value := s
			results[i] = &value
		}
	}
	return results, nil
}

// SetBatch writes all items through one pipeline round trip.
func (c *Client) SetBatch(ctx context.Context, items []cache.BatchItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pipe := c.rdb.Pipeline()
	for _, item := range items {
		pipe.Set(ctx, item.Key, item.Value, item.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.fail("pipeline set", err)
		return err
	}
	return nil
}

// DBSize returns the number of keys in the current database.
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	n, err := c.rdb.DBSize(ctx).Result()
	if err != nil {
		c.fail("dbsize", err)
		return 0, err
	}
	return n, nil
}

// Info returns the server INFO output for the given sections.
func (c *Client) Info(ctx context.Context, sections ...string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.rdb.Info(ctx, sections...).Result()
	if err != nil {
		c.fail("info", err)
		return "", err
	}
	return info, nil
}

// FlushDB clears the current database.
func (c *Client) FlushDB(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.FlushDB(ctx).Err(); err != nil {
		c.fail("flushdb", err)
		return err
	}
	return nil
}

// FlushAll clears every database on the server.
func (c *Client) FlushAll(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.rdb.FlushAll(ctx).Err(); err != nil {
		c.fail("flushall", err)
		return err
	}
	return nil
}
