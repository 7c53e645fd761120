// Package redis stores per-session HMAC secrets in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const SessionSecretTTL = 30 * 24 * time.Hour

const secretPrefix = "session_secret:"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.cli.Set(ctx, secretPrefix+sessionID, secret, SessionSecretTTL).Err()
}

// GetSessionSecret returns "" when no secret is stored.
func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	val, err := c.cli.Get(ctx, secretPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.cli.Del(ctx, secretPrefix+sessionID).Err()
}
