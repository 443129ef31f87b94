// Package storage persists assignment snapshots so that a previous
// assignment can be replayed.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-radio-planner/internal/config"
)

// snapshotTTL holds the assignment snapshot TTL, 0 means no expiration.
var snapshotTTL time.Duration

var redisClient redis.UniversalClient

// Setup configures the storage backend. When no Redis server is configured,
// the storage is disabled (see Enabled).
func Setup(c config.Config) error {
	snapshotTTL = c.Redis.SnapshotTTL

	if c.Redis.URL == "" && len(c.Redis.Servers) == 0 {
		log.Info("storage: no redis server configured, snapshots disabled")
		redisClient = nil
		return nil
	}

	log.Info("storage: setting up Redis client")

	var opts *redis.Options
	if c.Redis.URL != "" {
		var err error
		opts, err = redis.ParseURL(c.Redis.URL)
		if err != nil {
			return errors.Wrap(err, "storage: parse redis url error")
		}
	} else {
		opts = &redis.Options{
			Addr:     c.Redis.Servers[0],
			Password: c.Redis.Password,
			DB:       c.Redis.Database,
		}
	}
	if c.Redis.PoolSize != 0 {
		opts.PoolSize = c.Redis.PoolSize
	}

	redisClient = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "storage: ping redis error")
	}

	return nil
}

// Enabled returns true when a Redis client has been set up.
func Enabled() bool {
	return redisClient != nil
}

// RedisClient returns the Redis client.
func RedisClient() redis.UniversalClient {
	return redisClient
}

// GetRedisKey returns the Redis key given a template and parameters.
func GetRedisKey(tmpl string, params ...interface{}) string {
	return fmt.Sprintf(tmpl, params...)
}
