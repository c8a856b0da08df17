package kv

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultURL — локальный Redis для разработки.
const defaultURL = "redis://localhost:6379/0"

// NewClient подключается к Redis и проверяет соединение первым ping.
// Адрес берётся из REDIS_URL.
func NewClient(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(urlFromEnv())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func urlFromEnv() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return defaultURL
}
