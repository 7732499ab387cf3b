// Package redisconn provides the shared Redis client factory with
// fail-fast semantics.
package redisconn

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Open parses a redis URL (redis://[:pass@]host:port/db), connects and
// verifies the connection with a ping. An empty URL falls back to REDIS_URL.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		url = strings.TrimSpace(os.Getenv("REDIS_URL"))
	}
	if url == "" {
		return nil, fmt.Errorf("redisconn: url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisconn parse %s: %w", url, err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisconn ping: %w", err)
	}
	return client, nil
}
