// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package search

import (
	"strconv"
	"strings"

	"storj.io/tagstore"
	"storj.io/tagstore/indexer"
	"storj.io/tagstore/query"
	"storj.io/tagstore/value"
)

// Translate renders an expression into the index's boolean query syntax.
//
// Equalities hit the exact field of the literal's type and inequalities
// additionally require the field to be present. Ranges work on the number
// field only. A matches-comparison hits the analyzed full-text field: a
// single word matches as a prefix, a phrase must match in order and the
// empty string matches the objects without the field.
func Translate(expr query.Expr) (string, error) {
	switch e := expr.(type) {
	case query.Has:
		return indexer.PathsField + ":" + indexer.EscapeTerm(e.Path), nil
	case query.Compare:
		return translateCompare(e)
	case query.And:
		return translatePair(e.Left, e.Right, "AND")
	case query.Or:
		return translatePair(e.Left, e.Right, "OR")
	case query.Except:
		return translatePair(e.Left, e.Right, "AND NOT")
	}
	return "", ErrSearch.New("cannot translate %T", expr)
}

func translatePair(left, right query.Expr, op string) (string, error) {
	l, err := Translate(left)
	if err != nil {
		return "", err
	}
	r, err := Translate(right)
	if err != nil {
		return "", err
	}
	return "(" + l + " " + op + " " + r + ")", nil
}

func translateCompare(e query.Compare) (string, error) {
	switch e.Op {
	case query.OpEq:
		if e.Path == tagstore.IDTagPath && e.Value.Type == value.TypeString {
			return indexer.EscapeField(indexer.IDField) + ":" + indexer.EscapeTerm(e.Value.String), nil
		}
		field, term, err := exactField(e.Path, e.Value)
		if err != nil {
			return "", err
		}
		return field + ":" + term, nil

	case query.OpNeq:
		field, term, err := exactField(e.Path, e.Value)
		if err != nil {
			return "", err
		}
		return "(" + field + ":[* TO *] AND NOT " + field + ":" + term + ")", nil

	case query.OpLt, query.OpLte, query.OpGt, query.OpGte:
		if !e.Value.IsNumeric() {
			return "", ErrSearch.New("%q needs a number, not a %s", e.Op, e.Value.Type)
		}
		bound := numberTerm(e.Value)
		field := indexer.EscapeField(e.Path + indexer.SuffixNumber)
		switch e.Op {
		case query.OpLt:
			return field + ":{* TO " + bound + "}", nil
		case query.OpLte:
			return field + ":[* TO " + bound + "]", nil
		case query.OpGt:
			return field + ":{" + bound + " TO *}", nil
		default:
			return field + ":[" + bound + " TO *]", nil
		}

	case query.OpMatches:
		// The parser guarantees a string literal.
		field := indexer.EscapeField(e.Path + indexer.SuffixFullText)
		term := e.Value.String
		switch {
		case term == "":
			return "(*:* AND NOT " + field + ":[* TO *])", nil
		case strings.ContainsAny(term, " \t\r\n"):
			return field + ":" + indexer.QuoteTerm(term), nil
		default:
			return field + ":" + indexer.EscapeTerm(term) + "*", nil
		}

	case query.OpContains:
		if e.Value.Type != value.TypeString {
			return "", ErrSearch.New("%q needs a string, not a %s", e.Op, e.Value.Type)
		}
		field := indexer.EscapeField(e.Path + indexer.SuffixStringSet)
		return field + ":" + indexer.EscapeTerm(e.Value.String), nil
	}
	return "", ErrSearch.New("cannot translate operator %q", e.Op)
}

// exactField returns the typed field of the literal and the literal as an
// escaped term.
func exactField(path string, v value.Value) (field, term string, err error) {
	switch v.Type {
	case value.TypeNull:
		return indexer.EscapeField(path + indexer.SuffixNull), "false", nil
	case value.TypeBool:
		return indexer.EscapeField(path + indexer.SuffixBool), strconv.FormatBool(v.Bool), nil
	case value.TypeInt, value.TypeFloat:
		return indexer.EscapeField(path + indexer.SuffixNumber), numberTerm(v), nil
	case value.TypeString:
		if v.String == "" {
			return indexer.EscapeField(path + indexer.SuffixRawString), indexer.QuoteTerm(""), nil
		}
		return indexer.EscapeField(path + indexer.SuffixRawString), indexer.EscapeTerm(v.String), nil
	}
	return "", "", ErrSearch.New("cannot compare against a %s", v.Type)
}

func numberTerm(v value.Value) string {
	if v.Type == value.TypeInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return strconv.FormatFloat(v.Float, 'g', -1, 64)
}
