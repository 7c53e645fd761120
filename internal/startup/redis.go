package startup

import (
	"context"
	"time"

	redisstorage "github.com/dmchat/internal/storage/redis"
)

// ConnectRedis dials the session-secret store, retrying while Redis is unavailable.
func ConnectRedis(ctx context.Context, redisURL string, maxWait time.Duration) (*redisstorage.Client, error) {
	var client *redisstorage.Client
	err := retry(ctx, "redis connect", maxWait, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		c, err := redisstorage.New(dialCtx, redisURL)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	return client, err
}
