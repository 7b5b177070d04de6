// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
)

// objects implements tagstore.Objects.
type objects struct {
	q queryer
}

var _ tagstore.Objects = (*objects)(nil)

// Create claims the about value for objectID and returns the id owning it.
// When the value is already claimed the insert is a no-op and the previous
// owner is returned, so concurrent claims of the same about value converge
// on one object without aborting the transaction.
func (objects *objects) Create(ctx context.Context, objectID uuid.UUID, aboutValue, folded string) (_ uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	var owner uuid.UUID
	err = objects.q.QueryRowContext(ctx, `
		INSERT INTO about_tag_values (object_id, value, folded)
		VALUES ($1, $2, $3)
		ON CONFLICT (folded) DO NOTHING
		RETURNING object_id
	`, objectID, aboutValue, folded).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		err = objects.q.QueryRowContext(ctx, `
			SELECT object_id FROM about_tag_values WHERE folded = $1
		`, folded).Scan(&owner)
	}
	if err != nil {
		return uuid.Nil, Error.Wrap(err)
	}
	return owner, nil
}

// GetByFolded returns the rows with the given folded about values.
func (objects *objects) GetByFolded(ctx context.Context, folded []string) (_ []tagstore.AboutValue, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(folded) == 0 {
		return nil, nil
	}
	return objects.list(ctx, `
		SELECT object_id, value, folded FROM about_tag_values WHERE folded = ANY($1::text[])
	`, folded)
}

// GetByObjectIDs returns the rows of the given objects.
func (objects *objects) GetByObjectIDs(ctx context.Context, objectIDs []uuid.UUID) (_ []tagstore.AboutValue, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(objectIDs) == 0 {
		return nil, nil
	}
	return objects.list(ctx, `
		SELECT object_id, value, folded FROM about_tag_values WHERE object_id = ANY($1::uuid[])
	`, pgutil.UUIDArray(objectIDs))
}

func (objects *objects) list(ctx context.Context, query string, arg interface{}) (_ []tagstore.AboutValue, err error) {
	var out []tagstore.AboutValue
	err = withRows(objects.q.QueryContext(ctx, query, arg))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var about tagstore.AboutValue
			if err := rows.Scan(&about.ObjectID, &about.Value, &about.Folded); err != nil {
				return err
			}
			out = append(out, about)
		}
		return nil
	})
	return out, Error.Wrap(err)
}
