// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package redis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore/private/kvstore"
	"storj.io/tagstore/private/kvstore/redis"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/private/testredis"
)

func TestClient(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	server, err := testredis.Start(ctx)
	require.NoError(t, err)
	defer ctx.Check(server.Close)

	client, err := redis.OpenClientFrom(ctx, "redis://"+server.Addr()+"?db=0", time.Hour)
	require.NoError(t, err)
	defer ctx.Check(client.Close)

	require.NoError(t, client.Ping(ctx))

	require.NoError(t, client.Put(ctx, kvstore.Key("alpha"), kvstore.Value("one")))

	value, err := client.Get(ctx, kvstore.Key("alpha"))
	require.NoError(t, err)
	require.Equal(t, kvstore.Value("one"), value)

	_, err = client.Get(ctx, kvstore.Key("missing"))
	require.True(t, kvstore.ErrKeyNotFound.Has(err))

	err = client.Put(ctx, kvstore.Key(""), kvstore.Value("nope"))
	require.True(t, kvstore.ErrEmptyKey.Has(err))

	require.NoError(t, client.PutAll(ctx, kvstore.Items{
		{Key: kvstore.Key("beta"), Value: kvstore.Value("two")},
		{Key: kvstore.Key("gamma"), Value: kvstore.Value("three")},
	}))

	values, err := client.GetAll(ctx, kvstore.Keys{
		kvstore.Key("alpha"),
		kvstore.Key("missing"),
		kvstore.Key("gamma"),
	})
	require.NoError(t, err)
	require.Equal(t, kvstore.Values{
		kvstore.Value("one"),
		nil,
		kvstore.Value("three"),
	}, values)

	require.NoError(t, client.Delete(ctx, kvstore.Key("beta"), kvstore.Key("missing")))
	_, err = client.Get(ctx, kvstore.Key("beta"))
	require.True(t, kvstore.ErrKeyNotFound.Has(err))
}

func TestClientExpiration(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	server, err := testredis.Start(ctx)
	require.NoError(t, err)
	defer ctx.Check(server.Close)

	client, err := redis.OpenClientFrom(ctx, "redis://"+server.Addr()+"?db=0", time.Minute)
	require.NoError(t, err)
	defer ctx.Check(client.Close)

	require.NoError(t, client.Put(ctx, kvstore.Key("fleeting"), kvstore.Value("soon gone")))

	server.FastForward(2 * time.Minute)

	_, err = client.Get(ctx, kvstore.Key("fleeting"))
	require.True(t, kvstore.ErrKeyNotFound.Has(err))
}

func TestOpenClientFrom(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	server, err := testredis.Start(ctx)
	require.NoError(t, err)
	defer ctx.Check(server.Close)

	_, err = redis.OpenClientFrom(ctx, "http://"+server.Addr()+"?db=0", 0)
	require.Error(t, err)

	// the db selector is not optional
	_, err = redis.OpenClientFrom(ctx, "redis://"+server.Addr(), 0)
	require.Error(t, err)
}
