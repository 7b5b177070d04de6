// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"
	"encoding/json"

	"github.com/zeebo/errs"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
)

// permissions implements tagstore.Permissions.
type permissions struct {
	q queryer
}

var _ tagstore.Permissions = (*permissions)(nil)

// GetNamespace returns the permission sets of the given namespaces.
func (permissions *permissions) GetNamespace(ctx context.Context, namespaceIDs []int) (_ map[int]tagstore.PermissionSet, err error) {
	defer mon.Task()(&ctx)(&err)

	return permissions.get(ctx, `
		SELECT namespace_id, operation, policy, array_to_json(exceptions)::text
		FROM namespace_permissions
		WHERE namespace_id = ANY($1::int4[])
	`, namespaceIDs)
}

// GetTag returns the permission sets of the given tags.
func (permissions *permissions) GetTag(ctx context.Context, tagIDs []int) (_ map[int]tagstore.PermissionSet, err error) {
	defer mon.Task()(&ctx)(&err)

	return permissions.get(ctx, `
		SELECT tag_id, operation, policy, array_to_json(exceptions)::text
		FROM tag_permissions
		WHERE tag_id = ANY($1::int4[])
	`, tagIDs)
}

func (permissions *permissions) get(ctx context.Context, query string, ids []int) (map[int]tagstore.PermissionSet, error) {
	sets := make(map[int]tagstore.PermissionSet, len(ids))
	if len(ids) == 0 {
		return sets, nil
	}
	err := withRows(permissions.q.QueryContext(ctx, query, pgutil.Int4Array(ids)))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var id, op, policy int
			var encoded string
			if err := rows.Scan(&id, &op, &policy, &encoded); err != nil {
				return err
			}
			exceptions, err := decodeIntArray(encoded)
			if err != nil {
				return err
			}
			set := sets[id]
			if set == nil {
				set = make(tagstore.PermissionSet)
				sets[id] = set
			}
			set[tagstore.Operation(op)] = tagstore.Permission{
				Policy:     tagstore.Policy(policy),
				Exceptions: exceptions,
			}
		}
		return nil
	})
	return sets, Error.Wrap(err)
}

// permissionRow is the JSON form a full permission set is sent to the
// database in.
type permissionRow struct {
	Operation  int   `json:"operation"`
	Policy     int   `json:"policy"`
	Exceptions []int `json:"exceptions"`
}

// SetNamespace stores a full permission set for a namespace.
func (permissions *permissions) SetNamespace(ctx context.Context, namespaceID int, set tagstore.PermissionSet) (err error) {
	defer mon.Task()(&ctx)(&err)

	return permissions.set(ctx, `
		INSERT INTO namespace_permissions (namespace_id, operation, policy, exceptions)
		SELECT $1, (elem->>'operation')::integer, (elem->>'policy')::integer,
			coalesce(
				(SELECT array_agg(x::integer) FROM jsonb_array_elements_text(elem->'exceptions') x),
				'{}'::integer[])
		FROM jsonb_array_elements($2::jsonb) elem
		ON CONFLICT (namespace_id, operation) DO UPDATE SET
			policy = EXCLUDED.policy,
			exceptions = EXCLUDED.exceptions
	`, namespaceID, set)
}

// SetTag stores a full permission set for a tag.
func (permissions *permissions) SetTag(ctx context.Context, tagID int, set tagstore.PermissionSet) (err error) {
	defer mon.Task()(&ctx)(&err)

	return permissions.set(ctx, `
		INSERT INTO tag_permissions (tag_id, operation, policy, exceptions)
		SELECT $1, (elem->>'operation')::integer, (elem->>'policy')::integer,
			coalesce(
				(SELECT array_agg(x::integer) FROM jsonb_array_elements_text(elem->'exceptions') x),
				'{}'::integer[])
		FROM jsonb_array_elements($2::jsonb) elem
		ON CONFLICT (tag_id, operation) DO UPDATE SET
			policy = EXCLUDED.policy,
			exceptions = EXCLUDED.exceptions
	`, tagID, set)
}

func (permissions *permissions) set(ctx context.Context, query string, id int, set tagstore.PermissionSet) error {
	rows := make([]permissionRow, 0, len(set))
	for op, perm := range set {
		exceptions := perm.Exceptions
		if exceptions == nil {
			exceptions = []int{}
		}
		rows = append(rows, permissionRow{
			Operation:  int(op),
			Policy:     int(perm.Policy),
			Exceptions: exceptions,
		})
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = permissions.q.ExecContext(ctx, query, id, string(payload))
	return Error.Wrap(err)
}

// UpdateNamespace replaces the permission of a single operation on a
// namespace.
func (permissions *permissions) UpdateNamespace(ctx context.Context, namespaceID int, op tagstore.Operation, perm tagstore.Permission) (err error) {
	defer mon.Task()(&ctx)(&err)

	return permissions.update(ctx, `
		UPDATE namespace_permissions SET policy = $3, exceptions = $4::int4[]
		WHERE namespace_id = $1 AND operation = $2
	`, namespaceID, op, perm, &tagstore.ErrUnknownNamespace)
}

// UpdateTag replaces the permission of a single operation on a tag.
func (permissions *permissions) UpdateTag(ctx context.Context, tagID int, op tagstore.Operation, perm tagstore.Permission) (err error) {
	defer mon.Task()(&ctx)(&err)

	return permissions.update(ctx, `
		UPDATE tag_permissions SET policy = $3, exceptions = $4::int4[]
		WHERE tag_id = $1 AND operation = $2
	`, tagID, op, perm, &tagstore.ErrUnknownTag)
}

func (permissions *permissions) update(ctx context.Context, query string, id int, op tagstore.Operation, perm tagstore.Permission, missing *errs.Class) error {
	result, err := permissions.q.ExecContext(ctx, query,
		id, int(op), int(perm.Policy), pgutil.Int4Array(perm.Exceptions))
	if err != nil {
		return Error.Wrap(err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return Error.Wrap(err)
	}
	if count == 0 {
		return missing.New("no %v permission for id %d", op, id)
	}
	return nil
}
