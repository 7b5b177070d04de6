// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package teststore implements an in-memory kvstore.Store for testing,
// including a forced-error mode for exercising broken-cache behavior.
package teststore

import (
	"context"
	"sync"

	"storj.io/tagstore/private/kvstore"
)

// Store implements an in-memory key value store for testing.
type Store struct {
	mu   sync.Mutex
	data map[string]kvstore.Value

	forcedError error

	// CallCount tracks the number of operations since creation.
	CallCount struct {
		Get    int
		GetAll int
		Put    int
		PutAll int
		Delete int
		Ping   int
	}
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{data: map[string]kvstore.Value{}}
}

// SetError makes every following operation fail with err.
// Passing nil restores normal operation.
func (store *Store) SetError(err error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.forcedError = err
}

// Get gets a value from the store.
func (store *Store) Get(ctx context.Context, key kvstore.Key) (kvstore.Value, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Get++

	if store.forcedError != nil {
		return nil, store.forcedError
	}
	if key.IsZero() {
		return nil, kvstore.ErrEmptyKey.New("")
	}

	value, ok := store.data[string(key)]
	if !ok {
		return nil, kvstore.ErrKeyNotFound.New("%q", key)
	}
	return append(kvstore.Value{}, value...), nil
}

// GetAll gets values for all keys; missing keys yield nil values.
func (store *Store) GetAll(ctx context.Context, keys kvstore.Keys) (kvstore.Values, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.GetAll++

	if store.forcedError != nil {
		return nil, store.forcedError
	}

	values := make(kvstore.Values, len(keys))
	for i, key := range keys {
		if value, ok := store.data[string(key)]; ok {
			values[i] = append(kvstore.Value{}, value...)
		}
	}
	return values, nil
}

// Put adds a value to the store.
func (store *Store) Put(ctx context.Context, key kvstore.Key, value kvstore.Value) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Put++

	if store.forcedError != nil {
		return store.forcedError
	}
	if key.IsZero() {
		return kvstore.ErrEmptyKey.New("")
	}

	store.data[string(key)] = append(kvstore.Value{}, value...)
	return nil
}

// PutAll adds all items to the store.
func (store *Store) PutAll(ctx context.Context, items kvstore.Items) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.PutAll++

	if store.forcedError != nil {
		return store.forcedError
	}
	for _, item := range items {
		if item.Key.IsZero() {
			return kvstore.ErrEmptyKey.New("")
		}
	}

	for _, item := range items {
		store.data[string(item.Key)] = append(kvstore.Value{}, item.Value...)
	}
	return nil
}

// Delete removes keys and their values.
func (store *Store) Delete(ctx context.Context, keys ...kvstore.Key) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Delete++

	if store.forcedError != nil {
		return store.forcedError
	}

	for _, key := range keys {
		delete(store.data, string(key))
	}
	return nil
}

// Ping implements kvstore.Store.
func (store *Store) Ping(ctx context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.CallCount.Ping++
	return store.forcedError
}

// Close closes the store.
func (store *Store) Close() error { return nil }
