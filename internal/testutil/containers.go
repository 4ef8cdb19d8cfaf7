// Package testutil starts the external services used by integration tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisContainer is a disposable Redis server.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
}

// StartRedis starts redis:7-alpine and waits until it accepts connections.
func StartRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine",
		tcredis.WithLogLevel(tcredis.LogLevelVerbose),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis port: %w", err)
	}

	return &RedisContainer{
		Container: container,
		URL:       fmt.Sprintf("redis://%s:%s", host, port.Port()),
	}, nil
}

// Client connects to the container.
func (rc *RedisContainer) Client() (*redis.Client, error) {
	opts, err := redis.ParseURL(rc.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Terminate stops the container.
func (rc *RedisContainer) Terminate(ctx context.Context) error {
	if rc == nil || rc.Container == nil {
		return nil
	}
	if err := rc.Container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate redis: %w", err)
	}
	return nil
}
