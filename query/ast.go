// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package query implements the query language: a hand-written lexer and
// recursive-descent parser producing a boolean expression tree over tag
// predicates.
//
// The grammar, loosest first:
//
//	expr    := and ("or" and)*
//	and     := unary (("and" | "except") unary)*
//	unary   := "has" path | primary
//	primary := "(" expr ")" | path operator literal
//
// Keywords are case-insensitive; "and" and "except" bind equally and
// left-associatively. Literals are double-quoted strings, numbers, booleans
// and null.
package query

import (
	"sort"
	"strconv"

	"github.com/zeebo/errs"

	"storj.io/tagstore/value"
)

var (
	// ErrParse is returned for query text that does not follow the grammar.
	ErrParse = errs.Class("malformed query")

	// ErrIllegal is returned for well-formed queries that cannot be
	// executed, like has-queries on the about or id tag.
	ErrIllegal = errs.Class("illegal query")
)

// Expr is a node of a parsed query.
type Expr interface {
	String() string
}

// Op is a comparison operator.
type Op int

// All comparison operators.
const (
	OpEq Op = iota + 1
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpMatches
	OpContains
)

// String implements fmt.Stringer.
func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpMatches:
		return "matches"
	case OpContains:
		return "contains"
	}
	return "?"
}

// Has selects the objects carrying any value of the tag.
type Has struct {
	Path string
}

// String implements Expr.
func (e Has) String() string { return "has " + e.Path }

// Compare selects the objects whose value of the tag compares true against
// the literal.
type Compare struct {
	Path  string
	Op    Op
	Value value.Value
}

// String implements Expr.
func (e Compare) String() string {
	return e.Path + " " + e.Op.String() + " " + literalString(e.Value)
}

// And selects the intersection of both sides.
type And struct {
	Left, Right Expr
}

// String implements Expr.
func (e And) String() string {
	return "(" + e.Left.String() + " and " + e.Right.String() + ")"
}

// Or selects the union of both sides.
type Or struct {
	Left, Right Expr
}

// String implements Expr.
func (e Or) String() string {
	return "(" + e.Left.String() + " or " + e.Right.String() + ")"
}

// Except selects the left side minus the right side.
type Except struct {
	Left, Right Expr
}

// String implements Expr.
func (e Except) String() string {
	return "(" + e.Left.String() + " except " + e.Right.String() + ")"
}

// Paths returns the distinct tag paths the expression references, sorted.
func Paths(expr Expr) []string {
	set := map[string]bool{}
	collectPaths(expr, set)
	out := make([]string, 0, len(set))
	for path := range set {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func collectPaths(expr Expr, set map[string]bool) {
	switch e := expr.(type) {
	case Has:
		set[e.Path] = true
	case Compare:
		set[e.Path] = true
	case And:
		collectPaths(e.Left, set)
		collectPaths(e.Right, set)
	case Or:
		collectPaths(e.Left, set)
		collectPaths(e.Right, set)
	case Except:
		collectPaths(e.Left, set)
		collectPaths(e.Right, set)
	}
}

func literalString(v value.Value) string {
	switch v.Type {
	case value.TypeNull:
		return "null"
	case value.TypeBool:
		return strconv.FormatBool(v.Bool)
	case value.TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case value.TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case value.TypeString:
		return strconv.Quote(v.String)
	}
	return "?"
}
