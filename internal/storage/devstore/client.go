// Package devstore keeps session secrets in the sessions table for -dev mode,
// so signed sessions survive restarts without a Redis server.
package devstore

import (
	"context"

	"github.com/dmchat/internal/repository"
)

type Client struct {
	repo *repository.SessionRepository
}

func New(repo *repository.SessionRepository) *Client {
	return &Client{repo: repo}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.repo.SetSessionSecret(ctx, sessionID, secret)
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	return c.repo.GetSessionSecret(ctx, sessionID)
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.repo.ClearSessionSecret(ctx, sessionID)
}
