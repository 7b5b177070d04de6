// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package kvstore declares the key/value store interface used by the
// write-through cache.
package kvstore

import (
	"bytes"
	"context"

	"github.com/zeebo/errs"
)

var (
	// ErrKeyNotFound used when a key is absent from the store.
	ErrKeyNotFound = errs.Class("key not found")

	// ErrEmptyKey is returned when an empty key is used in Put.
	ErrEmptyKey = errs.Class("empty key")
)

// Key is the type for the keys in a Store.
type Key []byte

// Value is the type for the values in a Store.
type Value []byte

// Keys is the type for a slice of keys in a Store.
type Keys []Key

// Values is the type for a slice of Values in a Store.
type Values []Value

// Item is a Key/Value pair to be stored together.
type Item struct {
	Key   Key
	Value Value
}

// Items keeps all Item.
type Items []Item

// Store describes the key/value store operations the cache relies on:
// multi-get, expiring put, pipelined multi-put and multi-delete.
type Store interface {
	// Get gets a single value. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, key Key) (Value, error)
	// GetAll gets values for the given keys in order.
	// Missing keys yield nil values, not errors.
	GetAll(ctx context.Context, keys Keys) (Values, error)
	// Put stores a value under key with the store's expiration.
	Put(ctx context.Context, key Key, value Value) error
	// PutAll stores all items in a single round trip.
	PutAll(ctx context.Context, items Items) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...Key) error
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close closes the store.
	Close() error
}

// IsZero returns true if the value struct is a zero value.
func (value Value) IsZero() bool {
	return len(value) == 0
}

// IsZero returns true if the key struct is a zero value.
func (key Key) IsZero() bool {
	return len(key) == 0
}

// String implements the Stringer interface.
func (key Key) String() string { return string(key) }

// Strings returns everything as strings.
func (keys Keys) Strings() []string {
	strs := make([]string, 0, len(keys))
	for _, key := range keys {
		strs = append(strs, string(key))
	}
	return strs
}

// Equal returns whether key and b are equal.
func (key Key) Equal(b Key) bool { return bytes.Equal([]byte(key), []byte(b)) }
