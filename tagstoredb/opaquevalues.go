// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
)

// opaquevalues implements tagstore.OpaqueValues.
type opaquevalues struct {
	q queryer
}

var _ tagstore.OpaqueValues = (*opaquevalues)(nil)

// Put stores a blob. The file id is the content address, so a conflicting
// row already holds the same content and the insert is skipped.
func (opaquevalues *opaquevalues) Put(ctx context.Context, fileID string, content []byte, size int64) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = opaquevalues.q.ExecContext(ctx, `
		INSERT INTO opaque_values (file_id, content, size)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id) DO NOTHING
	`, fileID, content, size)
	return Error.Wrap(err)
}

// Get returns the blobs with the given file ids.
func (opaquevalues *opaquevalues) Get(ctx context.Context, fileIDs []string) (_ []tagstore.OpaqueValue, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(fileIDs) == 0 {
		return nil, nil
	}
	var out []tagstore.OpaqueValue
	err = withRows(opaquevalues.q.QueryContext(ctx, `
		SELECT file_id, content, size FROM opaque_values WHERE file_id = ANY($1::text[])
	`, fileIDs))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var blob tagstore.OpaqueValue
			if err := rows.Scan(&blob.FileID, &blob.Content, &blob.Size); err != nil {
				return err
			}
			out = append(out, blob)
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// Link records that the tag value identified by ref carries the blob.
func (opaquevalues *opaquevalues) Link(ctx context.Context, ref tagstore.TagValueRef, fileID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = opaquevalues.q.ExecContext(ctx, `
		INSERT INTO opaque_value_links (object_id, tag_id, file_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (object_id, tag_id) DO UPDATE SET file_id = EXCLUDED.file_id
	`, ref.ObjectID, ref.TagID, fileID)
	return Error.Wrap(err)
}

// Unlink removes the links of the given tag values, returning the file ids
// they pointed at.
func (opaquevalues *opaquevalues) Unlink(ctx context.Context, refs []tagstore.TagValueRef) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(refs) == 0 {
		return nil, nil
	}
	objectIDs := make([]uuid.UUID, len(refs))
	tagIDs := make([]int, len(refs))
	for i, ref := range refs {
		objectIDs[i] = ref.ObjectID
		tagIDs[i] = ref.TagID
	}
	return opaquevalues.unlink(ctx, `
		DELETE FROM opaque_value_links
		WHERE (object_id, tag_id) IN (SELECT * FROM unnest($1::uuid[], $2::int4[]))
		RETURNING file_id
	`, pgutil.UUIDArray(objectIDs), pgutil.Int4Array(tagIDs))
}

// UnlinkByTags removes all links under the given tags, returning the file
// ids they pointed at.
func (opaquevalues *opaquevalues) UnlinkByTags(ctx context.Context, tagIDs []int) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(tagIDs) == 0 {
		return nil, nil
	}
	return opaquevalues.unlink(ctx, `
		DELETE FROM opaque_value_links
		WHERE tag_id = ANY($1::int4[])
		RETURNING file_id
	`, pgutil.Int4Array(tagIDs))
}

func (opaquevalues *opaquevalues) unlink(ctx context.Context, query string, args ...interface{}) (_ []string, err error) {
	seen := make(map[string]bool)
	var fileIDs []string
	err = withRows(opaquevalues.q.QueryContext(ctx, query, args...))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var fileID string
			if err := rows.Scan(&fileID); err != nil {
				return err
			}
			if !seen[fileID] {
				seen[fileID] = true
				fileIDs = append(fileIDs, fileID)
			}
		}
		return nil
	})
	return fileIDs, Error.Wrap(err)
}

// DeleteOrphans removes the blobs among fileIDs that no link points at
// anymore. A nil fileIDs sweeps the whole store.
func (opaquevalues *opaquevalues) DeleteOrphans(ctx context.Context, fileIDs []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	if fileIDs == nil {
		_, err = opaquevalues.q.ExecContext(ctx, `
			DELETE FROM opaque_values
			WHERE NOT EXISTS (
				SELECT 1 FROM opaque_value_links l WHERE l.file_id = opaque_values.file_id
			)
		`)
		return Error.Wrap(err)
	}
	if len(fileIDs) == 0 {
		return nil
	}
	_, err = opaquevalues.q.ExecContext(ctx, `
		DELETE FROM opaque_values
		WHERE file_id = ANY($1::text[])
			AND NOT EXISTS (
				SELECT 1 FROM opaque_value_links l WHERE l.file_id = opaque_values.file_id
			)
	`, fileIDs)
	return Error.Wrap(err)
}
