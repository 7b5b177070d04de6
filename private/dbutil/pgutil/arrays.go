// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package pgutil

import (
	"github.com/google/uuid"
)

// UUIDArray returns an object usable by pgx for passing a uuid[] parameter.
// The values are sent in text form, so queries should cast with ::uuid[]
// when the parameter type cannot be inferred.
func UUIDArray(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Int4Array returns an object usable by pgx for passing an int4[] parameter.
func Int4Array(ints []int) []int32 {
	out := make([]int32, len(ints))
	for i, v := range ints {
		out[i] = int32(v)
	}
	return out
}
