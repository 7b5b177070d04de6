// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Namespace is a directory of tags and further namespaces. Roots are owned
// by the user of the same name.
type Namespace struct {
	ID        int
	Path      string
	Name      string
	ParentID  *int // nil for roots
	CreatorID int
	ObjectID  uuid.UUID
	CreatedAt time.Time
}

// CreateNamespace contains the row to insert for a new namespace.
type CreateNamespace struct {
	Path      string
	Name      string
	ParentID  *int
	CreatorID int
	ObjectID  uuid.UUID
}

// Verify checks that the request is structurally complete.
func (c CreateNamespace) Verify() error {
	switch {
	case c.Path == "":
		return ErrBadRequest.New("path missing")
	case c.Name == "":
		return ErrBadRequest.New("name missing")
	case c.ObjectID == uuid.Nil:
		return ErrBadRequest.New("object id missing")
	}
	return nil
}

// Namespaces exposes methods to manage the namespaces table.
//
// architecture: Database
type Namespaces interface {
	// Create inserts a new namespace. A taken path fails with
	// ErrDuplicatePath.
	Create(ctx context.Context, ns CreateNamespace) (*Namespace, error)
	// GetByPaths returns the namespaces with the given paths; missing paths
	// are skipped, not errors.
	GetByPaths(ctx context.Context, paths []string) ([]Namespace, error)
	// ChildNames returns the names of the direct child namespaces, sorted.
	ChildNames(ctx context.Context, parentID int) ([]string, error)
	// HasChildren reports which of the given namespaces have at least one
	// child namespace.
	HasChildren(ctx context.Context, ids []int) (map[int]bool, error)
	// Delete removes the namespace rows together with their permissions.
	Delete(ctx context.Context, ids []int) error
}
