// Package redis wraps the go-redis client used for form draft snapshots.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client embeds the go-redis client so draft code uses it directly.
type Client struct {
	*redis.Client
}

// NewClient connects to the draft store and verifies connectivity. Drafts are
// best-effort, so the dial timeout is kept short.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("draft store connected", zap.String("addr", addr))
	return &Client{Client: rdb}, nil
}
