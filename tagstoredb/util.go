// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"database/sql"
	"encoding/json"

	"github.com/zeebo/errs"

	"storj.io/tagstore/private/tagsql"
	"storj.io/tagstore/value"
)

// withRows ensures that rows get properly closed after the callback finishes.
func withRows(rows tagsql.Rows, err error) func(func(tagsql.Rows) error) error {
	return func(callback func(tagsql.Rows) error) error {
		if err != nil {
			return err
		}
		err := callback(rows)
		return errs.Combine(err, rows.Err(), rows.Close())
	}
}

// valueColumns selects the typed value columns of a tag_values row aliased
// tv, with its opaque link aliased l. The set column crosses database/sql as
// its JSON encoding; valueScanner is the matching scan destination.
const valueColumns = `tv.value_type, tv.value_bool, tv.value_int, tv.value_float,
	tv.value_string, array_to_json(tv.value_set)::text, tv.value_mime, tv.value_size, l.file_id`

// valueScanner reassembles a typed value from the valueColumns columns.
type valueScanner struct {
	valueType int
	boolVal   sql.NullBool
	intVal    sql.NullInt64
	floatVal  sql.NullFloat64
	stringVal sql.NullString
	setVal    sql.NullString
	mimeVal   sql.NullString
	sizeVal   sql.NullInt64
	fileID    sql.NullString
}

// Value returns the scanned value. Opaque values carry their metadata only;
// contents are loaded separately from the opaque values table.
func (s *valueScanner) Value() (value.Value, error) {
	switch value.Type(s.valueType) {
	case value.TypeNull:
		return value.Null(), nil
	case value.TypeBool:
		return value.NewBool(s.boolVal.Bool), nil
	case value.TypeInt:
		return value.NewInt(s.intVal.Int64), nil
	case value.TypeFloat:
		return value.NewFloat(s.floatVal.Float64), nil
	case value.TypeString:
		return value.NewString(s.stringVal.String), nil
	case value.TypeSet:
		elems := []string{}
		if s.setVal.Valid {
			if err := json.Unmarshal([]byte(s.setVal.String), &elems); err != nil {
				return value.Value{}, Error.Wrap(err)
			}
		}
		return value.NewSet(elems), nil
	case value.TypeOpaque:
		return value.Value{Type: value.TypeOpaque, Opaque: &value.Opaque{
			MIMEType: s.mimeVal.String,
			Size:     s.sizeVal.Int64,
			FileID:   s.fileID.String,
		}}, nil
	}
	return value.Value{}, Error.New("unknown value type %d", s.valueType)
}

// decodeIntArray decodes the array_to_json form of an integer array column.
func decodeIntArray(encoded string) ([]int, error) {
	ints := []int{}
	if err := json.Unmarshal([]byte(encoded), &ints); err != nil {
		return nil, Error.Wrap(err)
	}
	return ints, nil
}
