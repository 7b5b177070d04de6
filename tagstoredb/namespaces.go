// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
)

// namespaces implements tagstore.Namespaces.
type namespaces struct {
	q queryer
}

var _ tagstore.Namespaces = (*namespaces)(nil)

// Create inserts a new namespace.
func (namespaces *namespaces) Create(ctx context.Context, ns tagstore.CreateNamespace) (_ *tagstore.Namespace, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := ns.Verify(); err != nil {
		return nil, err
	}

	created := &tagstore.Namespace{
		Path:      ns.Path,
		Name:      ns.Name,
		ParentID:  ns.ParentID,
		CreatorID: ns.CreatorID,
		ObjectID:  ns.ObjectID,
	}
	err = namespaces.q.QueryRowContext(ctx, `
		INSERT INTO namespaces (path, name, parent_id, creator_id, object_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, ns.Path, ns.Name, ns.ParentID, ns.CreatorID, ns.ObjectID,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return nil, tagstore.ErrDuplicatePath.New("namespace %q already exists", ns.Path)
		}
		return nil, Error.Wrap(err)
	}
	return created, nil
}

// GetByPaths returns the namespaces with the given paths.
func (namespaces *namespaces) GetByPaths(ctx context.Context, paths []string) (_ []tagstore.Namespace, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(paths) == 0 {
		return nil, nil
	}
	var out []tagstore.Namespace
	err = withRows(namespaces.q.QueryContext(ctx, `
		SELECT id, path, name, parent_id, creator_id, object_id, created_at
		FROM namespaces
		WHERE path = ANY($1::text[])
	`, paths))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var ns tagstore.Namespace
			err := rows.Scan(&ns.ID, &ns.Path, &ns.Name, &ns.ParentID,
				&ns.CreatorID, &ns.ObjectID, &ns.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, ns)
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// ChildNames returns the names of the direct child namespaces, sorted.
func (namespaces *namespaces) ChildNames(ctx context.Context, parentID int) (_ []string, err error) {
	defer mon.Task()(&ctx)(&err)

	var names []string
	err = withRows(namespaces.q.QueryContext(ctx, `
		SELECT name FROM namespaces WHERE parent_id = $1 ORDER BY name
	`, parentID))(func(rows tagsql.Rows) error {
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

// HasChildren reports which of the given namespaces have at least one child
// namespace.
func (namespaces *namespaces) HasChildren(ctx context.Context, ids []int) (_ map[int]bool, err error) {
	defer mon.Task()(&ctx)(&err)

	out := make(map[int]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err = withRows(namespaces.q.QueryContext(ctx, `
		SELECT DISTINCT parent_id FROM namespaces WHERE parent_id = ANY($1::int4[])
	`, pgutil.Int4Array(ids)))(func(rows tagsql.Rows) error {
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

// Delete removes the namespace rows together with their permissions.
func (namespaces *namespaces) Delete(ctx context.Context, ids []int) (err error) {
	defer mon.Task()(&ctx)(&err)

	if len(ids) == 0 {
		return nil
	}
	_, err = namespaces.q.ExecContext(ctx, `
		DELETE FROM namespaces WHERE id = ANY($1::int4[])
	`, pgutil.Int4Array(ids))
	return Error.Wrap(err)
}
