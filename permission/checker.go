// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package permission implements the permission engine: default and inherited
// permission sets, exception-list rules and the batched check deciding which
// operations a user may perform on which paths.
package permission

import (
	"context"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
)

var (
	mon = monkit.Package()

	// Error is the error class for internal permission engine failures.
	Error = errs.Class("permission")
)

// Source loads permission sets by path. Sets exist exactly for existing
// entities, so a path missing from a result means the entity does not exist.
// Implemented by the caching layer on top of the database.
type Source interface {
	// NamespacePermissions returns the permission sets of the given
	// namespace paths; missing paths are absent from the result.
	NamespacePermissions(ctx context.Context, paths []string) (map[string]tagstore.PermissionSet, error)
	// TagPermissions returns the permission sets of the given tag paths;
	// missing paths are absent from the result.
	TagPermissions(ctx context.Context, paths []string) (map[string]tagstore.PermissionSet, error)
}

// Checker decides operations. Checks are resolved in two tiers: role
// shortcuts that need no stored permissions, then policy and exception lists
// loaded in bulk from the source.
type Checker struct {
	source Source
}

// NewChecker constructs a Checker reading permissions from source.
func NewChecker(source Source) *Checker {
	return &Checker{source: source}
}

// Check returns the (path, operation) pairs among pairs that user may not
// perform. Operations on paths that turn out not to exist fail with
// ErrUnknownNamespace or ErrUnknownTag, except for the creating operations,
// which consult the nearest existing ancestor namespace.
func (checker *Checker) Check(ctx context.Context, user *tagstore.User, pairs []tagstore.PathOperation) (denied []tagstore.PathOperation, err error) {
	defer mon.Task()(&ctx)(&err)

	if user == nil {
		return nil, tagstore.ErrUnauthorized.New("no requesting user")
	}
	if user.Role == tagstore.RoleSuperuser {
		return nil, nil
	}

	var checks []tagstore.PathOperation
	for _, pair := range pairs {
		switch {
		case pair.Operation.OnUser():
			if !allowsUserOperation(user, pair) {
				denied = append(denied, pair)
			}
		case pair.Operation == tagstore.OpCreateObject:
			if user.Role == tagstore.RoleAnonymous {
				denied = append(denied, pair)
			}
		case user.Role == tagstore.RoleAnonymous && !pair.Operation.AllowsAnonymous():
			denied = append(denied, pair)
		case pair.Operation == tagstore.OpReadTagValue && pair.Path == tagstore.IDTagPath:
			// The id tag is virtual and readable on every object.
		default:
			checks = append(checks, pair)
		}
	}
	if len(checks) == 0 {
		return denied, nil
	}

	nsPerms, tagPerms, err := checker.load(ctx, checks)
	if err != nil {
		return nil, err
	}

	for _, pair := range checks {
		allowed, err := decide(pair, user.ID, nsPerms, tagPerms)
		if err != nil {
			return nil, err
		}
		if !allowed {
			denied = append(denied, pair)
		}
	}
	return denied, nil
}

// FilterReadable returns the subset of tagPaths whose values user may read,
// in input order. Paths that do not exist are dropped silently.
func (checker *Checker) FilterReadable(ctx context.Context, user *tagstore.User, tagPaths []string) (readable []string, err error) {
	defer mon.Task()(&ctx)(&err)

	if user == nil {
		return nil, tagstore.ErrUnauthorized.New("no requesting user")
	}
	if user.Role == tagstore.RoleSuperuser {
		return tagPaths, nil
	}

	var lookup []string
	for _, path := range tagPaths {
		if path != tagstore.IDTagPath {
			lookup = append(lookup, path)
		}
	}
	perms, err := checker.source.TagPermissions(ctx, lookup)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	for _, path := range tagPaths {
		if path == tagstore.IDTagPath {
			readable = append(readable, path)
			continue
		}
		if set, ok := perms[path]; ok && set[tagstore.OpReadTagValue].Allows(user.ID) {
			readable = append(readable, path)
		}
	}
	return readable, nil
}

// load fetches every permission set the checks can touch in two source round
// trips: the target paths themselves plus, for creating operations, all
// ancestors of the target for the nearest-ancestor walk.
func (checker *Checker) load(ctx context.Context, checks []tagstore.PathOperation) (nsPerms, tagPerms map[string]tagstore.PermissionSet, err error) {
	nsSet := map[string]bool{}
	tagSet := map[string]bool{}
	for _, pair := range checks {
		switch {
		case pair.Operation == tagstore.OpCreateNamespace:
			for _, ancestor := range paths.Ancestors(pair.Path) {
				nsSet[ancestor] = true
			}
		case pair.Operation.OnNamespace():
			nsSet[pair.Path] = true
		case pair.Operation == tagstore.OpWriteTagValue:
			tagSet[pair.Path] = true
			for _, ancestor := range paths.Ancestors(pair.Path) {
				nsSet[ancestor] = true
			}
		default:
			tagSet[pair.Path] = true
		}
	}

	nsPerms, err = checker.source.NamespacePermissions(ctx, keys(nsSet))
	if err != nil {
		return nil, nil, Error.Wrap(err)
	}
	tagPerms, err = checker.source.TagPermissions(ctx, keys(tagSet))
	if err != nil {
		return nil, nil, Error.Wrap(err)
	}
	return nsPerms, tagPerms, nil
}

func decide(pair tagstore.PathOperation, userID int, nsPerms, tagPerms map[string]tagstore.PermissionSet) (bool, error) {
	op := pair.Operation
	switch {
	case op == tagstore.OpCreateNamespace:
		// Only superusers create root namespaces; they never reach here.
		if paths.Depth(pair.Path) <= 1 {
			return false, nil
		}
		perm, ok := nearestAncestor(nsPerms, pair.Path)
		if !ok {
			return false, tagstore.ErrUnknownNamespace.New("%q has no existing parent", pair.Path)
		}
		return perm[tagstore.OpCreateNamespace].Allows(userID), nil

	case op == tagstore.OpDeleteNamespace && paths.Depth(pair.Path) <= 1:
		// Root namespaces go away with their user, never on their own.
		if _, ok := nsPerms[pair.Path]; !ok {
			return false, tagstore.ErrUnknownNamespace.New("%q", pair.Path)
		}
		return false, nil

	case op.OnNamespace():
		set, ok := nsPerms[pair.Path]
		if !ok {
			return false, tagstore.ErrUnknownNamespace.New("%q", pair.Path)
		}
		return set[op].Allows(userID), nil

	case op == tagstore.OpWriteTagValue:
		if set, ok := tagPerms[pair.Path]; ok {
			return set[op].Allows(userID), nil
		}
		// The tag does not exist yet; writing implies creating it, which
		// the nearest existing ancestor namespace has to permit.
		perm, ok := nearestAncestor(nsPerms, pair.Path)
		if !ok {
			return false, tagstore.ErrUnknownNamespace.New("%q has no existing parent", pair.Path)
		}
		return perm[tagstore.OpCreateNamespace].Allows(userID), nil

	default:
		set, ok := tagPerms[pair.Path]
		if !ok {
			return false, tagstore.ErrUnknownTag.New("%q", pair.Path)
		}
		return set[op].Allows(userID), nil
	}
}

// allowsUserOperation resolves the user management operations, which are
// decided by role alone: managers run all of them, regular users may update
// themselves.
func allowsUserOperation(user *tagstore.User, pair tagstore.PathOperation) bool {
	if user.Role == tagstore.RoleUserManager {
		return true
	}
	if pair.Operation == tagstore.OpUpdateUser && user.Role == tagstore.RoleUser {
		return pair.Path == user.Username
	}
	return false
}

func nearestAncestor(nsPerms map[string]tagstore.PermissionSet, path string) (tagstore.PermissionSet, bool) {
	for _, ancestor := range paths.Ancestors(path) {
		if set, ok := nsPerms[ancestor]; ok {
			return set, true
		}
	}
	return nil, false
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	return out
}
