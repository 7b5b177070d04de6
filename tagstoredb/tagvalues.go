// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
	"storj.io/tagstore/value"
)

// tagvalues implements tagstore.TagValues.
type tagvalues struct {
	q queryer
}

var _ tagstore.TagValues = (*tagvalues)(nil)

// tagValueRow is the JSON form a Set row is sent to the database in. One
// jsonb parameter carries the whole batch, since the typed columns cannot be
// expressed as parallel array parameters: the set column would need an array
// of arrays.
type tagValueRow struct {
	ObjectID  string    `json:"object_id"`
	TagID     int       `json:"tag_id"`
	ValueType int       `json:"value_type"`
	Bool      *bool     `json:"value_bool,omitempty"`
	Int       *int64    `json:"value_int,omitempty"`
	Float     *float64  `json:"value_float,omitempty"`
	String    *string   `json:"value_string,omitempty"`
	Set       *[]string `json:"value_set,omitempty"`
	Mime      *string   `json:"value_mime,omitempty"`
	Size      *int64    `json:"value_size,omitempty"`
	CreatorID int       `json:"creator_id"`
}

func newTagValueRow(v tagstore.SetTagValue) tagValueRow {
	row := tagValueRow{
		ObjectID:  v.ObjectID.String(),
		TagID:     v.TagID,
		ValueType: int(v.Value.Type),
		CreatorID: v.CreatorID,
	}
	switch v.Value.Type {
	case value.TypeBool:
		b := v.Value.Bool
		row.Bool = &b
	case value.TypeInt:
		n := v.Value.Int
		row.Int = &n
	case value.TypeFloat:
		f := v.Value.Float
		row.Float = &f
	case value.TypeString:
		s := v.Value.String
		row.String = &s
	case value.TypeSet:
		set := v.Value.Set
		if set == nil {
			set = []string{}
		}
		row.Set = &set
	case value.TypeOpaque:
		mime := v.Value.Opaque.MIMEType
		size := v.Value.Opaque.Size
		row.Mime = &mime
		row.Size = &size
	}
	return row
}

// Set inserts the rows, replacing existing values of the same (object, tag)
// pairs.
func (tagvalues *tagvalues) Set(ctx context.Context, values []tagstore.SetTagValue) (err error) {
	defer mon.Task()(&ctx)(&err)

	if len(values) == 0 {
		return nil
	}
	rows := make([]tagValueRow, 0, len(values))
	for _, v := range values {
		if err := v.Verify(); err != nil {
			return err
		}
		rows = append(rows, newTagValueRow(v))
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = tagvalues.q.ExecContext(ctx, `
		INSERT INTO tag_values (object_id, tag_id, value_type, value_bool, value_int,
			value_float, value_string, value_set, value_mime, value_size, creator_id)
		SELECT
			(elem->>'object_id')::uuid,
			(elem->>'tag_id')::integer,
			(elem->>'value_type')::integer,
			(elem->>'value_bool')::boolean,
			(elem->>'value_int')::bigint,
			(elem->>'value_float')::double precision,
			elem->>'value_string',
			CASE WHEN jsonb_typeof(elem->'value_set') = 'array'
				THEN coalesce(
					(SELECT array_agg(x) FROM jsonb_array_elements_text(elem->'value_set') x),
					'{}'::text[])
				ELSE NULL END,
			elem->>'value_mime',
			(elem->>'value_size')::bigint,
			(elem->>'creator_id')::integer
		FROM jsonb_array_elements($1::jsonb) elem
		ON CONFLICT (object_id, tag_id) DO UPDATE SET
			value_type = EXCLUDED.value_type,
			value_bool = EXCLUDED.value_bool,
			value_int = EXCLUDED.value_int,
			value_float = EXCLUDED.value_float,
			value_string = EXCLUDED.value_string,
			value_set = EXCLUDED.value_set,
			value_mime = EXCLUDED.value_mime,
			value_size = EXCLUDED.value_size,
			creator_id = EXCLUDED.creator_id,
			created_at = now()
	`, string(payload))
	return Error.Wrap(err)
}

// Get returns the values of the given tags on the given objects.
func (tagvalues *tagvalues) Get(ctx context.Context, objectIDs []uuid.UUID, tagIDs []int) (_ []tagstore.TagValue, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(objectIDs) == 0 || len(tagIDs) == 0 {
		return nil, nil
	}
	var out []tagstore.TagValue
	err = withRows(tagvalues.q.QueryContext(ctx, `
		SELECT tv.object_id, tv.tag_id, `+valueColumns+`, tv.creator_id, tv.created_at
		FROM tag_values tv
		LEFT JOIN opaque_value_links l ON l.object_id = tv.object_id AND l.tag_id = tv.tag_id
		WHERE tv.object_id = ANY($1::uuid[]) AND tv.tag_id = ANY($2::int4[])
	`, pgutil.UUIDArray(objectIDs), pgutil.Int4Array(tagIDs)))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var tv tagstore.TagValue
			var sc valueScanner
			err := rows.Scan(&tv.ObjectID, &tv.TagID,
				&sc.valueType, &sc.boolVal, &sc.intVal, &sc.floatVal, &sc.stringVal,
				&sc.setVal, &sc.mimeVal, &sc.sizeVal, &sc.fileID,
				&tv.CreatorID, &tv.CreatedAt)
			if err != nil {
				return err
			}
			if tv.Value, err = sc.Value(); err != nil {
				return err
			}
			out = append(out, tv)
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// Delete removes the given rows and returns the refs actually removed.
func (tagvalues *tagvalues) Delete(ctx context.Context, refs []tagstore.TagValueRef) (_ []tagstore.TagValueRef, err error) {
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
	var deleted []tagstore.TagValueRef
	err = withRows(tagvalues.q.QueryContext(ctx, `
		DELETE FROM tag_values
		WHERE (object_id, tag_id) IN (SELECT * FROM unnest($1::uuid[], $2::int4[]))
		RETURNING object_id, tag_id
	`, pgutil.UUIDArray(objectIDs), pgutil.Int4Array(tagIDs)))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var ref tagstore.TagValueRef
			if err := rows.Scan(&ref.ObjectID, &ref.TagID); err != nil {
				return err
			}
			deleted = append(deleted, ref)
		}
		return nil
	})
	return deleted, Error.Wrap(err)
}

// DeleteByTags removes all values of the given tags and returns the ids of
// the objects that carried one.
func (tagvalues *tagvalues) DeleteByTags(ctx context.Context, tagIDs []int) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(tagIDs) == 0 {
		return nil, nil
	}
	return tagvalues.deleteReturningObjects(ctx, `
		DELETE FROM tag_values WHERE tag_id = ANY($1::int4[]) RETURNING object_id
	`, pgutil.Int4Array(tagIDs))
}

// DeleteByCreator removes all values written by the user and returns the ids
// of the objects that carried one.
func (tagvalues *tagvalues) DeleteByCreator(ctx context.Context, creatorID int) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	return tagvalues.deleteReturningObjects(ctx, `
		DELETE FROM tag_values WHERE creator_id = $1 RETURNING object_id
	`, creatorID)
}

func (tagvalues *tagvalues) deleteReturningObjects(ctx context.Context, query string, arg interface{}) (_ []uuid.UUID, err error) {
	seen := make(map[uuid.UUID]bool)
	var objectIDs []uuid.UUID
	err = withRows(tagvalues.q.QueryContext(ctx, query, arg))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return err
			}
			if !seen[id] {
				seen[id] = true
				objectIDs = append(objectIDs, id)
			}
		}
		return nil
	})
	return objectIDs, Error.Wrap(err)
}

// ObjectIDs returns up to limit ids of objects carrying a value of the tag.
func (tagvalues *tagvalues) ObjectIDs(ctx context.Context, tagID int, limit int) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	var objectIDs []uuid.UUID
	err = withRows(tagvalues.q.QueryContext(ctx, `
		SELECT object_id FROM tag_values WHERE tag_id = $1 LIMIT $2
	`, tagID, limit))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return err
			}
			objectIDs = append(objectIDs, id)
		}
		return nil
	})
	return objectIDs, Error.Wrap(err)
}

// Paths returns the tag paths present on the given objects.
func (tagvalues *tagvalues) Paths(ctx context.Context, objectIDs []uuid.UUID) (_ []tagstore.ObjectPath, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(objectIDs) == 0 {
		return nil, nil
	}
	var out []tagstore.ObjectPath
	err = withRows(tagvalues.q.QueryContext(ctx, `
		SELECT tv.object_id, t.path
		FROM tag_values tv
		JOIN tags t ON t.id = tv.tag_id
		WHERE tv.object_id = ANY($1::uuid[])
		ORDER BY tv.object_id, t.path
	`, pgutil.UUIDArray(objectIDs)))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var op tagstore.ObjectPath
			if err := rows.Scan(&op.ObjectID, &op.Path); err != nil {
				return err
			}
			out = append(out, op)
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// RecentByObjects returns the newest writes onto the given objects.
func (tagvalues *tagvalues) RecentByObjects(ctx context.Context, objectIDs []uuid.UUID, limit int) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(objectIDs) == 0 {
		return nil, nil
	}
	return tagvalues.recent(ctx, `tv.object_id = ANY($1::uuid[])`, pgutil.UUIDArray(objectIDs), limit)
}

// RecentByUsers returns the newest writes by the given users.
func (tagvalues *tagvalues) RecentByUsers(ctx context.Context, userIDs []int, limit int) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(userIDs) == 0 {
		return nil, nil
	}
	return tagvalues.recent(ctx, `tv.creator_id = ANY($1::int4[])`, pgutil.Int4Array(userIDs), limit)
}

func (tagvalues *tagvalues) recent(ctx context.Context, condition string, arg interface{}, limit int) (_ []tagstore.Activity, err error) {
	var out []tagstore.Activity
	err = withRows(tagvalues.q.QueryContext(ctx, `
		SELECT t.path, tv.object_id, coalesce(a.value, ''), `+valueColumns+`, u.username, tv.created_at
		FROM tag_values tv
		JOIN tags t ON t.id = tv.tag_id
		JOIN users u ON u.id = tv.creator_id
		LEFT JOIN about_tag_values a ON a.object_id = tv.object_id
		LEFT JOIN opaque_value_links l ON l.object_id = tv.object_id AND l.tag_id = tv.tag_id
		WHERE `+condition+`
		ORDER BY tv.created_at DESC
		LIMIT $2
	`, arg, limit))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var activity tagstore.Activity
			var sc valueScanner
			err := rows.Scan(&activity.Path, &activity.ObjectID, &activity.About,
				&sc.valueType, &sc.boolVal, &sc.intVal, &sc.floatVal, &sc.stringVal,
				&sc.setVal, &sc.mimeVal, &sc.sizeVal, &sc.fileID,
				&activity.Username, &activity.CreatedAt)
			if err != nil {
				return err
			}
			if activity.Value, err = sc.Value(); err != nil {
				return err
			}
			out = append(out, activity)
		}
		return nil
	})
	return out, Error.Wrap(err)
}
