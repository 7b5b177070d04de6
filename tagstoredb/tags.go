// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
)

// tags implements tagstore.Tags.
type tags struct {
	q queryer
}

var _ tagstore.Tags = (*tags)(nil)

// Create inserts a new tag.
func (tags *tags) Create(ctx context.Context, tag tagstore.CreateTag) (_ *tagstore.Tag, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := tag.Verify(); err != nil {
		return nil, err
	}

	created := &tagstore.Tag{
		Path:        tag.Path,
		Name:        tag.Name,
		NamespaceID: tag.NamespaceID,
		CreatorID:   tag.CreatorID,
		ObjectID:    tag.ObjectID,
	}
	err = tags.q.QueryRowContext(ctx, `
		INSERT INTO tags (path, name, namespace_id, creator_id, object_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, tag.Path, tag.Name, tag.NamespaceID, tag.CreatorID, tag.ObjectID,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return nil, tagstore.ErrDuplicatePath.New("tag %q already exists", tag.Path)
		}
		return nil, Error.Wrap(err)
	}
	return created, nil
}

// GetByPaths returns the tags with the given paths.
func (tags *tags) GetByPaths(ctx context.Context, paths []string) (_ []tagstore.Tag, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(paths) == 0 {
		return nil, nil
	}
	var out []tagstore.Tag
	err = withRows(tags.q.QueryContext(ctx, `
		SELECT id, path, name, namespace_id, creator_id, object_id, created_at
		FROM tags
		WHERE path = ANY($1::text[])
	`, paths))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var tag tagstore.Tag
			err := rows.Scan(&tag.ID, &tag.Path, &tag.Name, &tag.NamespaceID,
				&tag.CreatorID, &tag.ObjectID, &tag.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, tag)
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// NamesByNamespace returns the names of the tags directly inside a
// namespace, sorted.
func (tags *tags) NamesByNamespace(ctx context.Context, namespaceID int) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	var names []string
	err = withRows(tags.q.QueryContext(ctx, `
		SELECT name FROM tags WHERE namespace_id = $1 ORDER BY name
	`, namespaceID))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return nil
	})
	return names, Error.Wrap(err)
}

// HasTags reports which of the given namespaces contain at least one tag.
func (tags *tags) HasTags(ctx context.Context, namespaceIDs []int) (_ map[int]bool, err error) {
	defer mon.Task()(&ctx)(&err)

	out := make(map[int]bool, len(namespaceIDs))
	if len(namespaceIDs) == 0 {
		return out, nil
	}
	err = withRows(tags.q.QueryContext(ctx, `
		SELECT DISTINCT namespace_id FROM tags WHERE namespace_id = ANY($1::int4[])
	`, pgutil.Int4Array(namespaceIDs)))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				return err
			}
			out[id] = true
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// Delete removes the tag rows; their permissions and values cascade.
func (tags *tags) Delete(ctx context.Context, ids []int) (err error) {
	defer mon.Task()(&ctx)(&err)

	if len(ids) == 0 {
		return nil
	}
	_, err = tags.q.ExecContext(ctx, `
		DELETE FROM tags WHERE id = ANY($1::int4[])
	`, pgutil.Int4Array(ids))
	return Error.Wrap(err)
}
