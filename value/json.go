// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package value

import (
	"bytes"
	"encoding/json"
	"strings"
)

// The JSON encoding is the API and cache representation of a value:
//
//	null            -> null
//	bool            -> true / false
//	int             -> 5
//	float           -> 5.5
//	string          -> "hello"
//	set             -> ["a", "b"]
//	opaque          -> {"mime-type": "...", "size": 5, "file-id": "...",
//	                    "contents": "<base64, when loaded>"}
//
// Integers without a fractional part decode as int, everything else
// numeric as float.

type opaqueJSON struct {
	MIMEType string `json:"mime-type"`
	Size     int64  `json:"size"`
	FileID   string `json:"file-id,omitempty"`
	Contents []byte `json:"contents,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeNull:
		return []byte("null"), nil
	case TypeBool:
		return json.Marshal(v.Bool)
	case TypeInt:
		return json.Marshal(v.Int)
	case TypeFloat:
		return json.Marshal(v.Float)
	case TypeString:
		return json.Marshal(v.String)
	case TypeSet:
		if v.Set == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Set)
	case TypeOpaque:
		if v.Opaque == nil {
			return nil, Error.New("opaque value without payload")
		}
		return json.Marshal(opaqueJSON{
			MIMEType: v.Opaque.MIMEType,
			Size:     v.Opaque.Size,
			FileID:   v.Opaque.FileID,
			Contents: v.Opaque.Contents,
		})
	default:
		return nil, Error.New("cannot encode value of type %d", v.Type)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Error.Wrap(err)
	}

	switch raw := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = NewBool(raw)
	case json.Number:
		decoded, err := decodeNumber(raw)
		if err != nil {
			return err
		}
		*v = decoded
	case string:
		*v = NewString(raw)
	case []interface{}:
		elems := make([]string, 0, len(raw))
		for _, elem := range raw {
			s, ok := elem.(string)
			if !ok {
				return Error.New("set elements must be strings, got %T", elem)
			}
			elems = append(elems, s)
		}
		*v = NewSet(elems)
	case map[string]interface{}:
		decoded, err := decodeOpaque(data)
		if err != nil {
			return err
		}
		*v = decoded
	default:
		return Error.New("cannot decode %T into a value", raw)
	}
	return nil
}

func decodeNumber(num json.Number) (Value, error) {
	if !strings.ContainsAny(num.String(), ".eE") {
		n, err := num.Int64()
		if err != nil {
			return Value{}, Error.Wrap(err)
		}
		return NewInt(n), nil
	}
	f, err := num.Float64()
	if err != nil {
		return Value{}, Error.Wrap(err)
	}
	return NewFloat(f), nil
}

func decodeOpaque(data []byte) (Value, error) {
	var raw opaqueJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, Error.Wrap(err)
	}
	if raw.MIMEType == "" {
		return Value{}, Error.New("opaque value missing mime-type")
	}
	opaque := &Opaque{
		MIMEType: raw.MIMEType,
		Size:     raw.Size,
		FileID:   raw.FileID,
		Contents: raw.Contents,
	}
	if raw.Contents != nil {
		opaque.Size = int64(len(raw.Contents))
		opaque.FileID = FileID(raw.Contents)
	}
	return Value{Type: TypeOpaque, Opaque: opaque}, nil
}
