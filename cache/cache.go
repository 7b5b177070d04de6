// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cache serves the hot read paths from an expiring key/value store:
// about-value to object id resolution, permission sets by path and
// recent-activity listings.
//
// The cache is strictly an accelerator. Every store failure is logged and
// treated as a miss, so a broken store degrades to database reads instead of
// failing requests. Entries are written with the store's expiration, which
// bounds how long any entry the invalidation protocol does not reach can
// stay stale.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/tagstore"
	"storj.io/tagstore/private/kvstore"
)

var (
	mon = monkit.Package()

	// Error is the error class for cache failures.
	Error = errs.Class("cache")
)

// Config configures the connection to the cache store.
type Config struct {
	URL           string        `help:"redis url of the cache store" default:"redis://localhost:6379?db=0"`
	ExpireTimeout time.Duration `help:"how long cached entries stay valid when no write invalidates them" default:"168h0m0s"`
}

// Cache reads and writes the shared key/value store. It is safe for
// concurrent use; per-request state lives in a Layer.
//
// architecture: Database
type Cache struct {
	log   *zap.Logger
	store kvstore.Store
}

// New constructs a Cache over store.
func New(log *zap.Logger, store kvstore.Store) *Cache {
	return &Cache{log: log, store: store}
}

// Ping verifies the backing store is reachable.
func (cache *Cache) Ping(ctx context.Context) error {
	return Error.Wrap(cache.store.Ping(ctx))
}

// Close closes the backing store.
func (cache *Cache) Close() error {
	return Error.Wrap(cache.store.Close())
}

// Drop removes the given keys. Failures are logged, the entries then expire
// on their own.
func (cache *Cache) Drop(ctx context.Context, keys ...kvstore.Key) {
	if len(keys) == 0 {
		return
	}
	if err := cache.store.Delete(ctx, keys...); err != nil {
		cache.log.Warn("dropping cache entries failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

func aboutKey(folded string) kvstore.Key {
	return kvstore.Key("about:" + folded)
}

func namespacePermissionKey(path string) kvstore.Key {
	return kvstore.Key("permission:namespace:" + path)
}

func tagPermissionKey(path string) kvstore.Key {
	return kvstore.Key("permission:tag:" + path)
}

func objectActivityKey(objectID uuid.UUID) kvstore.Key {
	return kvstore.Key("recentactivity:object:" + objectID.String())
}

func userActivityKey(username string) kvstore.Key {
	return kvstore.Key("recentactivity:user:" + username)
}

// abouts returns the object ids cached under the given folded about values
// and the folded values without a usable entry.
func (cache *Cache) abouts(ctx context.Context, folded []string) (hits map[string]uuid.UUID, misses []string) {
	defer mon.Task()(&ctx)(nil)

	hits = make(map[string]uuid.UUID, len(folded))
	if len(folded) == 0 {
		return hits, nil
	}
	keys := make(kvstore.Keys, 0, len(folded))
	for _, f := range folded {
		keys = append(keys, aboutKey(f))
	}
	values, err := cache.store.GetAll(ctx, keys)
	if err != nil {
		cache.log.Warn("about lookup failed", zap.Error(err))
		mon.Meter("cache_about_miss").Mark(len(folded))
		return hits, folded
	}
	for i, raw := range values {
		if raw.IsZero() {
			misses = append(misses, folded[i])
			continue
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			cache.log.Warn("undecodable about entry", zap.Stringer("key", keys[i]), zap.Error(err))
			misses = append(misses, folded[i])
			continue
		}
		hits[folded[i]] = id
	}
	mon.Meter("cache_about_hit").Mark(len(hits))
	mon.Meter("cache_about_miss").Mark(len(misses))
	return hits, misses
}

// permissionSets returns the permission sets cached under keyOf(path) for
// every distinct path, and the paths without a usable entry.
func (cache *Cache) permissionSets(ctx context.Context, keyOf func(string) kvstore.Key, paths []string) (hits map[string]tagstore.PermissionSet, misses []string) {
	defer mon.Task()(&ctx)(nil)

	hits = make(map[string]tagstore.PermissionSet, len(paths))
	unique := make([]string, 0, len(paths))
	seen := map[string]bool{}
	for _, path := range paths {
		if !seen[path] {
			seen[path] = true
			unique = append(unique, path)
		}
	}
	if len(unique) == 0 {
		return hits, nil
	}
	keys := make(kvstore.Keys, 0, len(unique))
	for _, path := range unique {
		keys = append(keys, keyOf(path))
	}
	values, err := cache.store.GetAll(ctx, keys)
	if err != nil {
		cache.log.Warn("permission lookup failed", zap.Error(err))
		mon.Meter("cache_permission_miss").Mark(len(unique))
		return hits, unique
	}
	for i, raw := range values {
		if raw.IsZero() {
			misses = append(misses, unique[i])
			continue
		}
		set, err := decodePermissionSet(raw)
		if err != nil {
			cache.log.Warn("undecodable permission entry", zap.Stringer("key", keys[i]), zap.Error(err))
			misses = append(misses, unique[i])
			continue
		}
		hits[unique[i]] = set
	}
	mon.Meter("cache_permission_hit").Mark(len(hits))
	mon.Meter("cache_permission_miss").Mark(len(misses))
	return hits, misses
}

// activity returns the recent-activity listing cached under key, if any.
func (cache *Cache) activity(ctx context.Context, key kvstore.Key) (_ []tagstore.Activity, ok bool) {
	defer mon.Task()(&ctx)(nil)

	raw, err := cache.store.Get(ctx, key)
	if err != nil {
		if !kvstore.ErrKeyNotFound.Has(err) {
			cache.log.Warn("activity lookup failed", zap.Stringer("key", key), zap.Error(err))
		}
		mon.Meter("cache_activity_miss").Mark(1)
		return nil, false
	}
	recent, err := decodeActivity(raw)
	if err != nil {
		cache.log.Warn("undecodable activity entry", zap.Stringer("key", key), zap.Error(err))
		mon.Meter("cache_activity_miss").Mark(1)
		return nil, false
	}
	mon.Meter("cache_activity_hit").Mark(1)
	return recent, true
}

// putAll stores the items in one round trip. Failures are logged, the
// entries just stay unfilled.
func (cache *Cache) putAll(ctx context.Context, items kvstore.Items) {
	if len(items) == 0 {
		return
	}
	if err := cache.store.PutAll(ctx, items); err != nil {
		cache.log.Warn("filling cache entries failed", zap.Int("items", len(items)), zap.Error(err))
	}
}
