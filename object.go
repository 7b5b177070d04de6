// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"

	"github.com/google/uuid"
)

// AboutValue ties an object to its unique about value. Value keeps the
// spelling of the first writer; Folded is the form compared for uniqueness.
type AboutValue struct {
	ObjectID uuid.UUID
	Value    string
	Folded   string
}

// Objects exposes methods to manage the about values table. About rows are
// never deleted: a re-created entity finds its old object again.
//
// architecture: Database
type Objects interface {
	// Create claims the about value for objectID and returns the id owning
	// it, which is the previous owner when the value was already claimed.
	Create(ctx context.Context, objectID uuid.UUID, aboutValue, folded string) (uuid.UUID, error)
	// GetByFolded returns the rows with the given folded about values;
	// missing values are skipped, not errors.
	GetByFolded(ctx context.Context, folded []string) ([]AboutValue, error)
	// GetByObjectIDs returns the rows of the given objects; objects without
	// an about value are skipped.
	GetByObjectIDs(ctx context.Context, objectIDs []uuid.UUID) ([]AboutValue, error)
}
