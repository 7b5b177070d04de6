// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
)

// dirtyobjects implements tagstore.DirtyObjects.
type dirtyobjects struct {
	q queryer
}

var _ tagstore.DirtyObjects = (*dirtyobjects)(nil)

// Add appends the objects to the dirty log.
func (dirtyobjects *dirtyobjects) Add(ctx context.Context, objectIDs []uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	if len(objectIDs) == 0 {
		return nil
	}
	_, err = dirtyobjects.q.ExecContext(ctx, `
		INSERT INTO dirty_objects (object_id) SELECT unnest($1::uuid[])
	`, pgutil.UUIDArray(objectIDs))
	return Error.Wrap(err)
}

// CountPending returns the number of rows not yet marked indexed.
func (dirtyobjects *dirtyobjects) CountPending(ctx context.Context) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	var count int64
	err = dirtyobjects.q.QueryRowContext(ctx, `
		SELECT count(*) FROM dirty_objects WHERE indexed = false
	`).Scan(&count)
	return count, Error.Wrap(err)
}
