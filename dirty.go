// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"

	"github.com/google/uuid"
)

// DirtyObjects exposes methods to manage the dirty objects log: objects whose
// tag values changed but are not yet visible in the full-text index. Rows are
// marked indexed by the index import instead of being deleted.
//
// architecture: Database
type DirtyObjects interface {
	// Add appends the objects to the log.
	Add(ctx context.Context, objectIDs []uuid.UUID) error
	// CountPending returns the number of rows not yet marked indexed.
	CountPending(ctx context.Context) (int64, error)
}
