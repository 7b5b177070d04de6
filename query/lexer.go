// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package query

import (
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenLParen
	tokenRParen
	tokenWord   // keyword or path
	tokenString // double-quoted, unescaped text
	tokenNumber
	tokenOp // = != < <= > >=
)

type token struct {
	kind tokenKind
	text string
	pos  int // byte offset into the query
}

// lex splits the query text into tokens. Positions are byte offsets so parse
// errors can point into the original text.
func lex(input string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(input) {
		r, size := utf8.DecodeRuneInString(input[pos:])
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			pos += size

		case r == '(':
			tokens = append(tokens, token{tokenLParen, "(", pos})
			pos++
		case r == ')':
			tokens = append(tokens, token{tokenRParen, ")", pos})
			pos++

		case r == '"':
			text, next, err := lexString(input, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenString, text, pos})
			pos = next

		case r == '=':
			tokens = append(tokens, token{tokenOp, "=", pos})
			pos++
		case r == '!':
			if !strings.HasPrefix(input[pos:], "!=") {
				return nil, ErrParse.New("unexpected %q at position %d", "!", pos)
			}
			tokens = append(tokens, token{tokenOp, "!=", pos})
			pos += 2
		case r == '<' || r == '>':
			text := input[pos : pos+1]
			if strings.HasPrefix(input[pos+1:], "=") {
				text = input[pos : pos+2]
			}
			tokens = append(tokens, token{tokenOp, text, pos})
			pos += len(text)

		case isDigit(r), r == '-' && startsNumber(input[pos+size:]):
			text := lexNumber(input[pos:])
			tokens = append(tokens, token{tokenNumber, text, pos})
			pos += len(text)

		case isWordRune(r):
			start := pos
			for pos < len(input) {
				r, size := utf8.DecodeRuneInString(input[pos:])
				if !isWordRune(r) {
					break
				}
				pos += size
			}
			tokens = append(tokens, token{tokenWord, input[start:pos], start})

		default:
			return nil, ErrParse.New("unexpected %q at position %d", string(r), pos)
		}
	}
	return append(tokens, token{tokenEOF, "", len(input)}), nil
}

// lexString consumes a double-quoted string starting at pos, handling the
// escapes \" and \\. It returns the unescaped text and the offset after the
// closing quote.
func lexString(input string, pos int) (string, int, error) {
	var sb strings.Builder
	i := pos + 1
	for i < len(input) {
		switch input[i] {
		case '"':
			return sb.String(), i + 1, nil
		case '\\':
			if i+1 < len(input) && (input[i+1] == '"' || input[i+1] == '\\') {
				sb.WriteByte(input[i+1])
				i += 2
				continue
			}
			sb.WriteByte('\\')
			i++
		default:
			sb.WriteByte(input[i])
			i++
		}
	}
	return "", 0, ErrParse.New("unterminated string at position %d", pos)
}

// lexNumber consumes an optional sign, digits and an optional fraction and
// exponent. The caller guarantees the input starts a number.
func lexNumber(input string) string {
	i := 0
	if input[i] == '-' {
		i++
	}
	digits := func() {
		for i < len(input) && isDigit(rune(input[i])) {
			i++
		}
	}
	digits()
	if i < len(input) && input[i] == '.' {
		i++
		digits()
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < len(input) && isDigit(rune(input[j])) {
			i = j
			digits()
		}
	}
	return input[:i]
}

func startsNumber(rest string) bool {
	return rest != "" && isDigit(rune(rest[0]))
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

// isWordRune matches the path grammar, so a word token is either a keyword
// or a path.
func isWordRune(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', isDigit(r):
		return true
	case r == '_' || r == '.' || r == ':' || r == '-' || r == '/':
		return true
	}
	return false
}
