// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package query

import (
	"strconv"
	"strings"

	"storj.io/tagstore/paths"
	"storj.io/tagstore/value"
)

// Parse parses query text into an expression tree. It fails with ErrParse
// when the text does not follow the grammar; it does not decide whether the
// query can be executed.
func Parse(text string) (Expr, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, ErrParse.New("unexpected %q at position %d", tok.text, tok.pos)
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

// keyword returns the lowercase keyword the token spells, or "" when it is
// not a keyword. Keywords are case-insensitive.
func keyword(tok token) string {
	if tok.kind != tokenWord {
		return ""
	}
	lower := strings.ToLower(tok.text)
	switch lower {
	case "and", "or", "except", "has", "matches", "contains", "true", "false", "null":
		return lower
	}
	return ""
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for keyword(p.peek()) == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch keyword(p.peek()) {
		case "and":
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = And{Left: left, Right: right}
		case "except":
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = Except{Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if keyword(p.peek()) == "has" {
		p.next()
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return Has{Path: path}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.peek().kind == tokenLParen {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokenRParen {
			return nil, ErrParse.New("expected %q at position %d", ")", tok.pos)
		}
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}

	var op Op
	switch tok := p.next(); {
	case tok.kind == tokenOp:
		switch tok.text {
		case "=":
			op = OpEq
		case "!=":
			op = OpNeq
		case "<":
			op = OpLt
		case "<=":
			op = OpLte
		case ">":
			op = OpGt
		case ">=":
			op = OpGte
		}
	case keyword(tok) == "matches":
		op = OpMatches
	case keyword(tok) == "contains":
		op = OpContains
	default:
		return nil, ErrParse.New("expected a comparison operator at position %d", tok.pos)
	}

	literal, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if op == OpMatches && literal.Type != value.TypeString {
		return nil, ErrParse.New("matches needs a string at position %d", p.tokens[p.pos-1].pos)
	}
	return Compare{Path: path, Op: op, Value: literal}, nil
}

func (p *parser) parsePath() (string, error) {
	tok := p.next()
	if tok.kind != tokenWord || keyword(tok) != "" {
		return "", ErrParse.New("expected a path at position %d", tok.pos)
	}
	if err := paths.Validate(tok.text); err != nil {
		return "", ErrParse.New("bad path %q at position %d: %v", tok.text, tok.pos, err)
	}
	return tok.text, nil
}

func (p *parser) parseLiteral() (value.Value, error) {
	switch tok := p.next(); {
	case tok.kind == tokenString:
		return value.NewString(tok.text), nil
	case tok.kind == tokenNumber:
		if strings.ContainsAny(tok.text, ".eE") {
			f, err := strconv.ParseFloat(tok.text, 64)
			if err != nil {
				return value.Value{}, ErrParse.New("bad number %q at position %d", tok.text, tok.pos)
			}
			return value.NewFloat(f), nil
		}
		i, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return value.Value{}, ErrParse.New("bad number %q at position %d", tok.text, tok.pos)
		}
		return value.NewInt(i), nil
	case keyword(tok) == "true":
		return value.NewBool(true), nil
	case keyword(tok) == "false":
		return value.NewBool(false), nil
	case keyword(tok) == "null":
		return value.Null(), nil
	default:
		return value.Value{}, ErrParse.New("expected a literal at position %d", tok.pos)
	}
}
