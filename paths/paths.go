// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package paths implements parsing and validation for tag and namespace
// paths, usernames and about values.
//
// A path is a slash-separated list of segments, for example
// "alice/books/rating". The first segment is always a username and owns
// everything beneath it. Paths are at most MaxLength characters and every
// segment matches [A-Za-z0-9_.:-]+.
package paths

import (
	"strings"

	"github.com/zeebo/errs"
)

// MaxLength is the maximum length of a path in characters.
const MaxLength = 233

// Error is the error class for malformed paths and usernames.
var Error = errs.Class("malformed path")

// Validate checks that the path conforms to the path grammar. The first
// segment must be lowercase, since it names a user.
func Validate(path string) error {
	if path == "" {
		return Error.New("path is empty")
	}
	if len(path) > MaxLength {
		return Error.New("path %q longer than %d characters", path, MaxLength)
	}
	for i, segment := range strings.Split(path, "/") {
		if err := validateSegment(segment); err != nil {
			return err
		}
		if i == 0 && segment != strings.ToLower(segment) {
			return Error.New("path %q does not start with a lowercase username", path)
		}
	}
	return nil
}

// ValidateUsername checks that the username is valid: a single lowercase
// path segment.
func ValidateUsername(username string) error {
	if err := validateSegment(username); err != nil {
		return err
	}
	if username != strings.ToLower(username) {
		return Error.New("username %q is not lowercase", username)
	}
	if len(username) > MaxLength {
		return Error.New("username %q longer than %d characters", username, MaxLength)
	}
	return nil
}

func validateSegment(segment string) error {
	if segment == "" {
		return Error.New("empty path segment")
	}
	for _, r := range segment {
		switch {
		case 'a' <= r && r <= 'z':
		case 'A' <= r && r <= 'Z':
		case '0' <= r && r <= '9':
		case r == '_' || r == '.' || r == ':' || r == '-':
		default:
			return Error.New("invalid character %q in path segment %q", r, segment)
		}
	}
	return nil
}

// Parent returns the parent path, or an empty string for a top-level path.
func Parent(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Name returns the last segment of the path.
func Name(path string) string {
	i := strings.LastIndexByte(path, '/')
	return path[i+1:]
}

// Username returns the first segment of the path, which names the user
// owning the path.
func Username(path string) string {
	i := strings.IndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[:i]
}

// Ancestors returns all proper ancestors of the path, nearest first:
// Ancestors("a/b/c") is ["a/b", "a"]. Top-level paths have none.
func Ancestors(path string) []string {
	var ancestors []string
	for {
		path = Parent(path)
		if path == "" {
			return ancestors
		}
		ancestors = append(ancestors, path)
	}
}

// Depth returns the number of segments in the path.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}
