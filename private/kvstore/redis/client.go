// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package redis implements the kvstore.Store interface on top of redis.
package redis

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/tagstore/private/kvstore"
)

var (
	// Error is a redis error.
	Error = errs.Class("redis")

	mon = monkit.Package()
)

// Client is the entrypoint into Redis.
type Client struct {
	db  *redis.Client
	TTL time.Duration
}

// OpenClient returns a configured Client instance with the given expiration,
// verifying a successful connection to redis. A zero ttl stores keys without
// expiration.
func OpenClient(ctx context.Context, address, password string, db int, ttl time.Duration) (*Client, error) {
	client := &Client{
		db: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
		TTL: ttl,
	}

	// ping here to verify we are able to connect to redis with the initialized client.
	if err := client.db.Ping(ctx).Err(); err != nil {
		return nil, Error.New("ping failed: %v", err)
	}

	return client, nil
}

// OpenClientFrom returns a configured Client instance from a redis address,
// verifying a successful connection to redis.
func OpenClientFrom(ctx context.Context, address string, ttl time.Duration) (*Client, error) {
	redisurl, err := url.Parse(address)
	if err != nil {
		return nil, err
	}

	if redisurl.Scheme != "redis" {
		return nil, Error.New("not a redis:// formatted address")
	}

	q := redisurl.Query()

	db, err := strconv.Atoi(q.Get("db"))
	if err != nil {
		return nil, err
	}

	return OpenClient(ctx, redisurl.Host, q.Get("password"), db, ttl)
}

// Get looks up the provided key from redis returning either an error or the result.
func (client *Client) Get(ctx context.Context, key kvstore.Key) (_ kvstore.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return nil, kvstore.ErrEmptyKey.New("")
	}

	value, err := client.db.Get(ctx, string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	if err != nil {
		return nil, Error.New("get error: %v", err)
	}
	return value, nil
}

// GetAll looks up the provided keys in a single MGET round trip. Missing
// keys yield nil values in the corresponding position.
func (client *Client) GetAll(ctx context.Context, keys kvstore.Keys) (_ kvstore.Values, err error) {
	defer mon.Task()(&ctx)(&err)
	if len(keys) == 0 {
		return nil, nil
	}

	results, err := client.db.MGet(ctx, keys.Strings()...).Result()
	if err != nil {
		return nil, Error.New("mget error: %v", err)
	}

	values := make(kvstore.Values, len(results))
	for i, result := range results {
		// go-redis returns string values for present keys and nil for absent ones.
		if s, ok := result.(string); ok {
			values[i] = kvstore.Value(s)
		}
	}
	return values, nil
}

// Put adds a value to the provided key in redis with the client expiration,
// returning an error on failure.
func (client *Client) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}
	return put(ctx, client.db, key, value, client.TTL)
}

// PutAll stores all items in a single pipelined round trip.
func (client *Client) PutAll(ctx context.Context, items kvstore.Items) (err error) {
	defer mon.Task()(&ctx)(&err)
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item.Key.IsZero() {
			return kvstore.ErrEmptyKey.New("")
		}
	}

	_, err = client.db.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range items {
			if err := put(ctx, pipe, item.Key, item.Value, client.TTL); err != nil {
				return err
			}
		}
		return nil
	})
	return Error.Wrap(err)
}

// Delete removes the given keys from redis. Missing keys are not an error.
func (client *Client) Delete(ctx context.Context, keys ...kvstore.Key) (err error) {
	defer mon.Task()(&ctx)(&err)
	if len(keys) == 0 {
		return nil
	}

	strs := make([]string, 0, len(keys))
	for _, key := range keys {
		if !key.IsZero() {
			strs = append(strs, string(key))
		}
	}

	err = client.db.Del(ctx, strs...).Err()
	if err != nil {
		return Error.New("delete error: %v", err)
	}
	return nil
}

// Ping verifies the connection to redis.
func (client *Client) Ping(ctx context.Context) error {
	return Error.Wrap(client.db.Ping(ctx).Err())
}

// FlushDB deletes all keys in the currently selected DB.
func (client *Client) FlushDB(ctx context.Context) error {
	_, err := client.db.FlushDB(ctx).Result()
	return err
}

// Close closes a redis client.
func (client *Client) Close() error {
	return client.db.Close()
}

func put(ctx context.Context, cmdable redis.Cmdable, key kvstore.Key, value kvstore.Value, ttl time.Duration) (err error) {
	defer mon.Task()(&ctx)(&err)
	err = cmdable.Set(ctx, key.String(), []byte(value), ttl).Err()
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return Error.New("put error: %v", err)
	}
	return errs.Wrap(err)
}
