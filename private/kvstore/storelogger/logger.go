// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package storelogger implements a zap-logging middleware for kvstore.Store.
package storelogger

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"storj.io/tagstore/private/kvstore"
)

var mon = monkit.Package()

var id int64

// Logger implements a zap.Logger for kvstore.Store.
type Logger struct {
	log   *zap.Logger
	store kvstore.Store
}

// New creates a new Logger with log and store.
func New(log *zap.Logger, store kvstore.Store) *Logger {
	loggerid := atomic.AddInt64(&id, 1)
	name := strconv.Itoa(int(loggerid))
	return &Logger{log.Named(name), store}
}

// Get gets a value from the store.
func (store *Logger) Get(ctx context.Context, key kvstore.Key) (_ kvstore.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Get", zap.ByteString("key", key))
	return store.store.Get(ctx, key)
}

// GetAll gets values for all keys.
func (store *Logger) GetAll(ctx context.Context, keys kvstore.Keys) (_ kvstore.Values, err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("GetAll", zap.Strings("keys", keys.Strings()))
	return store.store.GetAll(ctx, keys)
}

// Put adds a value to store.
func (store *Logger) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Put", zap.ByteString("key", key), zap.Int("value length", len(value)), zap.Binary("truncated value", truncate(value)))
	return store.store.Put(ctx, key, value)
}

// PutAll adds all items to the store.
func (store *Logger) PutAll(ctx context.Context, items kvstore.Items) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("PutAll", zap.Int("count", len(items)))
	return store.store.PutAll(ctx, items)
}

// Delete deletes keys and their values.
func (store *Logger) Delete(ctx context.Context, keys ...kvstore.Key) (err error) {
	defer mon.Task()(&ctx)(&err)
	store.log.Debug("Delete", zap.Strings("keys", kvstore.Keys(keys).Strings()))
	return store.store.Delete(ctx, keys...)
}

// Ping pings the underlying store.
func (store *Logger) Ping(ctx context.Context) error {
	return store.store.Ping(ctx)
}

// Close closes the store.
func (store *Logger) Close() error {
	store.log.Debug("Close")
	return store.store.Close()
}

func truncate(v kvstore.Value) (t []byte) {
	if len(v)-1 < 10 {
		t = []byte(v)
	} else {
		t = v[:10]
	}
	return t
}
