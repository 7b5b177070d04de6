// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"fmt"
	"strings"

	"github.com/zeebo/errs"
)

var (
	// ErrUnknownPath is returned when a path exists neither as a namespace
	// nor as a tag.
	ErrUnknownPath = errs.Class("unknown path")

	// ErrUnknownTag is returned when a referenced tag does not exist.
	ErrUnknownTag = errs.Class("unknown tag")

	// ErrUnknownNamespace is returned when a referenced namespace does not
	// exist.
	ErrUnknownNamespace = errs.Class("unknown namespace")

	// ErrDuplicatePath is returned when creating a namespace, tag or user
	// whose path is already taken.
	ErrDuplicatePath = errs.Class("duplicate path")

	// ErrNamespaceNotEmpty is returned when deleting a namespace that still
	// has child namespaces or tags.
	ErrNamespaceNotEmpty = errs.Class("namespace not empty")

	// ErrUnknownUser is returned when a referenced user does not exist.
	ErrUnknownUser = errs.Class("unknown user")

	// ErrInvalidUsername is returned when a username does not satisfy the
	// username grammar.
	ErrInvalidUsername = errs.Class("invalid username")

	// ErrUserNotAllowedInException is returned when a permission update puts
	// a user on an exception list it may never appear on.
	ErrUserNotAllowedInException = errs.Class("user not allowed in exception")

	// ErrInvalidPolicy is returned when a permission update names a policy
	// other than open or closed.
	ErrInvalidPolicy = errs.Class("invalid policy")

	// ErrPermissionDenied is returned when the requesting user lacks
	// permission for at least one requested (path, operation) pair. The
	// wrapped error is a *PermissionDeniedError carrying the pairs.
	ErrPermissionDenied = errs.Class("permission denied")

	// ErrUnauthorized is returned when the requesting user cannot be
	// identified.
	ErrUnauthorized = errs.Class("unauthorized")

	// ErrBadRequest is returned when request arguments are structurally
	// invalid.
	ErrBadRequest = errs.Class("bad request")

	// ErrNoInstanceOnObject is returned when reading a tag that has no value
	// on the requested object.
	ErrNoInstanceOnObject = errs.Class("no instance on object")

	// ErrFeature is returned for requests that reference a feature this
	// deployment does not provide.
	ErrFeature = errs.Class("feature not available")
)

// PermissionDeniedError carries the (path, operation) pairs denied to a user.
// It travels wrapped in ErrPermissionDenied so the facade can report exactly
// which part of a batched request failed.
type PermissionDeniedError struct {
	Username string
	Denied   []PathOperation
}

// Error implements the error interface.
func (e *PermissionDeniedError) Error() string {
	pairs := make([]string, 0, len(e.Denied))
	for _, denied := range e.Denied {
		pairs = append(pairs, fmt.Sprintf("%s on %q", denied.Operation, denied.Path))
	}
	return fmt.Sprintf("user %q denied: %s", e.Username, strings.Join(pairs, ", "))
}
