// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package value implements the tagged variant for typed tag values.
//
// A tag value is one of: null, bool, int, float, string, a set of strings,
// or an opaque payload carrying a MIME type. Opaque payloads are
// content-addressed by the SHA-256 of their contents and stored out of
// line; the variant itself only carries the metadata and, when loaded, the
// contents.
package value

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/zeebo/errs"
)

// Error is the error class for value encoding and decoding.
var Error = errs.Class("value")

// Type enumerates the kinds of tag values. The numeric values are stored
// in the database and must not be reordered.
type Type int

// Valid value types.
const (
	TypeNull   Type = 0
	TypeBool   Type = 1
	TypeInt    Type = 2
	TypeFloat  Type = 3
	TypeString Type = 4
	TypeSet    Type = 5
	TypeOpaque Type = 6
)

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeSet:
		return "set"
	case TypeOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Opaque is the metadata of an opaque value. Contents is populated when the
// payload has been loaded from storage and is nil otherwise.
type Opaque struct {
	MIMEType string
	Size     int64
	FileID   string
	Contents []byte
}

// Value is a typed tag value. Only the field matching Type is meaningful.
type Value struct {
	Type   Type
	Bool   bool
	Int    int64
	Float  float64
	String string
	Set    []string
	Opaque *Opaque
}

// Null returns the null value.
func Null() Value { return Value{Type: TypeNull} }

// NewBool returns a bool value.
func NewBool(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// NewInt returns an int value.
func NewInt(n int64) Value { return Value{Type: TypeInt, Int: n} }

// NewFloat returns a float value.
func NewFloat(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// NewString returns a string value.
func NewString(s string) Value { return Value{Type: TypeString, String: s} }

// NewSet returns a set-of-strings value.
func NewSet(elems []string) Value { return Value{Type: TypeSet, Set: elems} }

// NewOpaque returns an opaque value for the given payload, computing its
// content address.
func NewOpaque(mimeType string, contents []byte) Value {
	return Value{Type: TypeOpaque, Opaque: &Opaque{
		MIMEType: mimeType,
		Size:     int64(len(contents)),
		FileID:   FileID(contents),
		Contents: contents,
	}}
}

// FileID returns the content address of an opaque payload: the SHA-256 of
// the contents in lowercase hex.
func FileID(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}

// IsNumeric reports whether the value is an int or a float.
func (v Value) IsNumeric() bool {
	return v.Type == TypeInt || v.Type == TypeFloat
}

// Number returns the value as a float64. Only meaningful for numeric
// values.
func (v Value) Number() float64 {
	if v.Type == TypeInt {
		return float64(v.Int)
	}
	return v.Float
}

// Equal reports whether two values are equal. Sets compare as sets,
// ignoring order and duplicates. Opaque values compare by content address.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		// int and float values compare numerically across types.
		if v.IsNumeric() && other.IsNumeric() {
			return v.Number() == other.Number()
		}
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeBool:
		return v.Bool == other.Bool
	case TypeInt:
		return v.Int == other.Int
	case TypeFloat:
		return v.Float == other.Float
	case TypeString:
		return v.String == other.String
	case TypeSet:
		return equalSets(v.Set, other.Set)
	case TypeOpaque:
		return v.Opaque != nil && other.Opaque != nil && v.Opaque.FileID == other.Opaque.FileID
	default:
		return false
	}
}

func equalSets(a, b []string) bool {
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	as = dedupe(as)
	bs = dedupe(bs)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
