// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package indexer talks to the external full-text index: it renders tag
// values into index documents and wraps the index's JSON/HTTP protocol,
// including the periodic import of changed objects.
package indexer

import (
	"strings"

	"github.com/google/uuid"

	"storj.io/tagstore/value"
)

// IDField is the document key: the object id.
const IDField = "fluiddb/id"

// PathsField lists every tag path present on the object.
const PathsField = "paths"

// Dynamic field suffixes, one per value type. Search queries and stored
// documents must agree on these; changing any of them requires a clean
// rebuild of the index.
const (
	SuffixNull      = "_tag_null"
	SuffixBool      = "_tag_bool"
	SuffixNumber    = "_tag_number"
	SuffixRawString = "_tag_raw_str"
	SuffixFullText  = "_tag_fts"
	SuffixStringSet = "_tag_set_str"
	SuffixBinary    = "_tag_binary"
)

// Document is one object rendered into index fields.
type Document map[string]interface{}

// BuildDocument renders an object's tag values into the document the index
// stores for it. String and set values are indexed twice, once verbatim and
// once analyzed for full-text matching.
func BuildDocument(objectID uuid.UUID, values map[string]value.Value) Document {
	doc := Document{IDField: objectID.String()}
	paths := make([]string, 0, len(values))
	for path, v := range values {
		paths = append(paths, path)
		switch v.Type {
		case value.TypeNull:
			doc[path+SuffixNull] = false
		case value.TypeBool:
			doc[path+SuffixBool] = v.Bool
		case value.TypeInt:
			doc[path+SuffixNumber] = v.Int
		case value.TypeFloat:
			doc[path+SuffixNumber] = v.Float
		case value.TypeString:
			doc[path+SuffixRawString] = v.String
			doc[path+SuffixFullText] = v.String
		case value.TypeSet:
			doc[path+SuffixStringSet] = v.Set
			doc[path+SuffixFullText] = strings.Join(v.Set, " ")
		case value.TypeOpaque:
			doc[path+SuffixBinary] = v.Opaque.FileID
		}
	}
	doc[PathsField] = paths
	return doc
}

// EscapeTerm escapes the characters the index's query syntax treats
// specially, so a bare term matches literally.
func EscapeTerm(term string) string {
	var sb strings.Builder
	for _, r := range term {
		switch r {
		case '+', '-', '&', '|', '!', '(', ')', '{', '}', '[', ']', '^', '"', '~', '*', '?', ':', '\\', '/', ' ':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// QuoteTerm renders a term as a quoted phrase.
func QuoteTerm(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + replacer.Replace(term) + `"`
}

// EscapeField escapes a field name for use in a query. Field names contain
// slashes, since they are derived from tag paths.
func EscapeField(field string) string {
	return strings.ReplaceAll(field, "/", "\\/")
}
