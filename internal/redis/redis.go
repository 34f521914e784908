package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss mirrors redis.Nil for callers.
var ErrCacheMiss = goredis.Nil

// Client wraps the go-redis client so the rest of the service does not
// depend on connection details.
type Client struct {
	inner *goredis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects and pings. An empty Addr is an error; callers decide
// whether to fall back to in-memory implementations.
func NewClient(opts Options) (*Client, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis: address required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return &Client{inner: client}, nil
}

// Raw exposes the underlying client for scripts and tests.
func (c *Client) Raw() *goredis.Client {
	if c == nil {
		return nil
	}
	return c.inner
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return errors.New("redis client not initialized")
	}
	return c.inner.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
