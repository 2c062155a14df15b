package redis

import (
	"context"
	"time"

	"votelab/internal/config"

	"github.com/go-redis/redis/v8"
)

// Nil is returned by Get when the key does not exist.
const Nil = redis.Nil

type RedisClient interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	// IncrWindow increments key and arms its expiry in one step, so a counter never outlives its window.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfEquals deletes key only while it still holds value.
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *redClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, expiration).Result()
}

func (c *redClient) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

// a counter found without a ttl is re-armed as well
var luaIncrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

func (c *redClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return luaIncrWindow.Run(ctx, c.cli, []string{key}, window.Milliseconds()).Int64()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

var luaDelIfEquals = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (c *redClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := luaDelIfEquals.Run(ctx, c.cli, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *redClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.cli.Publish(ctx, channel, message).Err()
}

func (c *redClient) Close() error { return c.cli.Close() }
