// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tag is the schema for values: a named, permissioned path under which every
// object can carry at most one value.
type Tag struct {
	ID          int
	Path        string
	Name        string
	NamespaceID int
	CreatorID   int
	ObjectID    uuid.UUID
	CreatedAt   time.Time
}

// CreateTag contains the row to insert for a new tag.
type CreateTag struct {
	Path        string
	Name        string
	NamespaceID int
	CreatorID   int
	ObjectID    uuid.UUID
}

// Verify checks that the request is structurally complete.
func (c CreateTag) Verify() error {
	switch {
	case c.Path == "":
		return ErrBadRequest.New("path missing")
	case c.Name == "":
		return ErrBadRequest.New("name missing")
	case c.NamespaceID == 0:
		return ErrBadRequest.New("namespace missing")
	case c.ObjectID == uuid.Nil:
		return ErrBadRequest.New("object id missing")
	}
	return nil
}

// Tags exposes methods to manage the tags table.
//
// architecture: Database
type Tags interface {
	// Create inserts a new tag. A taken path fails with ErrDuplicatePath.
	Create(ctx context.Context, tag CreateTag) (*Tag, error)
	// GetByPaths returns the tags with the given paths; missing paths are
	// skipped, not errors.
	GetByPaths(ctx context.Context, paths []string) ([]Tag, error)
	// NamesByNamespace returns the names of the tags directly inside a
	// namespace, sorted.
	NamesByNamespace(ctx context.Context, namespaceID int) ([]string, error)
	// HasTags reports which of the given namespaces contain at least one
	// tag.
	HasTags(ctx context.Context, namespaceIDs []int) (map[int]bool, error)
	// Delete removes the tag rows together with their permissions and
	// values.
	Delete(ctx context.Context, ids []int) error
}
