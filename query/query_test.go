// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore/query"
	"storj.io/tagstore/value"
)

func TestParseComparisons(t *testing.T) {
	expr, err := query.Parse(`alice/books/rating = 5`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/books/rating", Op: query.OpEq, Value: value.NewInt(5),
	}, expr)

	expr, err = query.Parse(`alice/books/rating >= 4.5`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/books/rating", Op: query.OpGte, Value: value.NewFloat(4.5),
	}, expr)

	expr, err = query.Parse(`alice/books/title = "Dune Messiah"`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/books/title", Op: query.OpEq, Value: value.NewString("Dune Messiah"),
	}, expr)

	expr, err = query.Parse(`alice/done != true`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/done", Op: query.OpNeq, Value: value.NewBool(true),
	}, expr)

	expr, err = query.Parse(`alice/seen = null`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/seen", Op: query.OpEq, Value: value.Null(),
	}, expr)

	expr, err = query.Parse(`alice/delta < -2`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/delta", Op: query.OpLt, Value: value.NewInt(-2),
	}, expr)
}

func TestParseKeywordOperators(t *testing.T) {
	expr, err := query.Parse(`alice/comment MATCHES "great"`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/comment", Op: query.OpMatches, Value: value.NewString("great"),
	}, expr)

	expr, err = query.Parse(`alice/genres contains "sf"`)
	require.NoError(t, err)
	require.Equal(t, query.Compare{
		Path: "alice/genres", Op: query.OpContains, Value: value.NewString("sf"),
	}, expr)

	expr, err = query.Parse(`HAS alice/books/rating`)
	require.NoError(t, err)
	require.Equal(t, query.Has{Path: "alice/books/rating"}, expr)
}

func TestParsePrecedence(t *testing.T) {
	// or binds loosest.
	expr, err := query.Parse(`has alice/a and has alice/b or has alice/c`)
	require.NoError(t, err)
	require.Equal(t, query.Or{
		Left:  query.And{Left: query.Has{Path: "alice/a"}, Right: query.Has{Path: "alice/b"}},
		Right: query.Has{Path: "alice/c"},
	}, expr)

	// and and except bind equally, left to right.
	expr, err = query.Parse(`has alice/a except has alice/b and has alice/c`)
	require.NoError(t, err)
	require.Equal(t, query.And{
		Left:  query.Except{Left: query.Has{Path: "alice/a"}, Right: query.Has{Path: "alice/b"}},
		Right: query.Has{Path: "alice/c"},
	}, expr)

	expr, err = query.Parse(`has alice/a or has alice/b except has alice/c`)
	require.NoError(t, err)
	require.Equal(t, query.Or{
		Left:  query.Has{Path: "alice/a"},
		Right: query.Except{Left: query.Has{Path: "alice/b"}, Right: query.Has{Path: "alice/c"}},
	}, expr)

	// Parentheses override.
	expr, err = query.Parse(`has alice/a and (has alice/b or has alice/c)`)
	require.NoError(t, err)
	require.Equal(t, query.And{
		Left:  query.Has{Path: "alice/a"},
		Right: query.Or{Left: query.Has{Path: "alice/b"}, Right: query.Has{Path: "alice/c"}},
	}, expr)
}

func TestParseStringEscapes(t *testing.T) {
	expr, err := query.Parse(`alice/title = "say \"hi\" \\ there"`)
	require.NoError(t, err)
	require.Equal(t, `say "hi" \ there`, expr.(query.Compare).Value.String)
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		``,
		`   `,
		`has`,
		`has and`,
		`alice/rating =`,
		`alice/rating 5`,
		`= 5`,
		`alice/rating = 5 and`,
		`(has alice/rating`,
		`has alice/rating)`,
		`alice/title = "unterminated`,
		`alice/rating ! 5`,
		`alice/comment matches 5`,
		`Alice/rating = 5`,
		`alice//rating = 5`,
		`alice/rating = tall`,
	} {
		_, err := query.Parse(text)
		require.Error(t, err, text)
		require.True(t, query.ErrParse.Has(err), text)
	}
}

func TestPaths(t *testing.T) {
	expr, err := query.Parse(`alice/a = 1 and (has bob/b or alice/a != 2) except carol/c matches "x"`)
	require.NoError(t, err)
	require.Equal(t, []string{"alice/a", "bob/b", "carol/c"}, query.Paths(expr))
}

func TestExprString(t *testing.T) {
	expr, err := query.Parse(`alice/a = 1 and has bob/b or alice/t = "x"`)
	require.NoError(t, err)
	require.Equal(t, `((alice/a = 1 and has bob/b) or alice/t = "x")`, expr.String())
}
