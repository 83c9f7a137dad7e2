// Package cache keeps the distinct player-name list in redis between ingests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 10 * time.Minute
	namesKey   = "gaia:players:names"
	// genKey counts invalidations; a fill only lands if it is unchanged.
	genKey = "gaia:players:gen"
)

var errStaleFill = errors.New("name cache invalidated during fill")

type NameCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewNameCache(rdb *redis.Client, ttl time.Duration) *NameCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &NameCache{rdb: rdb, ttl: ttl}
}

// Open connects to redisURL and checks the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*NameCache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for name cache")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewNameCache(rdb, ttl), nil
}

// Names returns the cached list; ok is false on a miss.
func (c *NameCache) Names(ctx context.Context) (names []string, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, namesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, fmt.Errorf("decode cached names: %w", err)
	}
	return names, true, nil
}

// Generation returns the invalidation counter. Read it before loading the
// list from the store and hand it to SetNames.
func (c *NameCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetNames caches names loaded at generation gen. It stores nothing and
// reports false when an Invalidate happened since gen was read.
func (c *NameCache) SetNames(ctx context.Context, gen int64, names []string) (bool, error) {
	if names == nil {
		names = []string{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return false, err
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur, err = 0, nil
		}
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, namesKey, raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate drops the cached list and bumps the generation so fills that
// started earlier are discarded.
func (c *NameCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Del(ctx, namesKey)
		return nil
	})
	return err
}

func (c *NameCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
