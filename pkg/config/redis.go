package config

import (
	"fmt"

	"github.com/redis/rueidis"
)

// InitRedis creates the Redis client used by the cache layer
func InitRedis(cfg *Config) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
		Username:    cfg.RedisUsername,
		Password:    cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
