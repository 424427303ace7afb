// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package endpoint

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the endpoint in a hash so other tools can read it with HGETALL.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client, key: key}, nil
}

func (r *RedisStore) Load(ctx context.Context) (Endpoint, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Endpoint{}, false, err
	}
	if len(fields) == 0 {
		return Endpoint{}, false, nil
	}

	port, err := strconv.Atoi(fields["port"])
	if err != nil {
		return Endpoint{}, false, fmt.Errorf("decode endpoint port: %w", err)
	}
	ep := Endpoint{Address: fields["address"], Port: port}
	if ms, err := strconv.ParseInt(fields["saved_at_ms"], 10, 64); err == nil {
		ep.SavedAt = time.UnixMilli(ms).UTC()
	}
	return ep, true, nil
}

func (r *RedisStore) Save(ctx context.Context, ep Endpoint) error {
	return r.client.HSet(ctx, r.key,
		"address", ep.Address,
		"port", strconv.Itoa(ep.Port),
		"saved_at_ms", strconv.FormatInt(ep.SavedAt.UnixMilli(), 10),
	).Err()
}

// Verify pings the server.
func (r *RedisStore) Verify(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
