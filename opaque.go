// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"
)

// OpaqueValue is one stored blob, addressed by the lowercase hex SHA-256 of
// its content. Blobs are shared: many tag values may link the same file id.
type OpaqueValue struct {
	FileID  string
	Content []byte
	Size    int64
}

// OpaqueValues exposes methods to manage stored blobs and their links to tag
// values.
//
// architecture: Database
type OpaqueValues interface {
	// Put stores a blob. Storing the same content twice is a no-op.
	Put(ctx context.Context, fileID string, content []byte, size int64) error
	// Get returns the blobs with the given file ids; missing ids are
	// skipped, not errors.
	Get(ctx context.Context, fileIDs []string) ([]OpaqueValue, error)
	// Link records that the tag value identified by ref carries the blob.
	Link(ctx context.Context, ref TagValueRef, fileID string) error
	// Unlink removes the links of the given tag values, returning the file
	// ids they pointed at.
	Unlink(ctx context.Context, refs []TagValueRef) ([]string, error)
	// UnlinkByTags removes all links under the given tags, returning the
	// file ids they pointed at.
	UnlinkByTags(ctx context.Context, tagIDs []int) ([]string, error)
	// DeleteOrphans removes the blobs among fileIDs that no link points at
	// anymore. A nil fileIDs sweeps the whole store.
	DeleteOrphans(ctx context.Context, fileIDs []string) error
}
