// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testrand implements generating random base types for testing.
package testrand

import (
	"math/rand"

	"github.com/google/uuid"
)

// Intn returns, as an int, a non-negative pseudo-random number in [0,n).
func Intn(n int) int { return rand.Intn(n) }

// Bytes generates size amount of random data.
func Bytes(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// UUID returns a random uuid.
func UUID() uuid.UUID {
	var id uuid.UUID
	copy(id[:], Bytes(len(id)))
	id[6] = (id[6] & 0x0f) | 0x40 // version 4
	id[8] = (id[8] & 0x3f) | 0x80 // variant 10
	return id
}

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Alpha returns a random lowercase alphanumeric string of length n,
// starting with a letter. Valid as a username or path segment.
func Alpha(n int) string {
	data := make([]byte, n)
	for i := range data {
		if i == 0 {
			data[i] = alphabet[rand.Intn(26)]
		} else {
			data[i] = alphabet[rand.Intn(len(alphabet))]
		}
	}
	return string(data)
}
