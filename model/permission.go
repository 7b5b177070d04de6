// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model

import (
	"context"

	"storj.io/tagstore"
	"storj.io/tagstore/permission"
)

// PathPermission is the permission of one operation on one path, with the
// exception list by username.
type PathPermission struct {
	Path       string
	Operation  tagstore.Operation
	Policy     tagstore.Policy
	Exceptions []string
}

// PermissionAPI implements permission business logic.
type PermissionAPI struct {
	core *core
}

// Get returns the stored permission of each (path, operation) pair, in
// request order. Usernames of users that no longer exist are dropped from
// the exception lists.
func (api *PermissionAPI) Get(ctx context.Context, pairs []tagstore.PathOperation) (_ []PathPermission, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(pairs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no permissions requested")
	}
	for _, pair := range pairs {
		if pair.Operation.Control() == 0 {
			return nil, tagstore.ErrBadRequest.New("operation %v has no stored permission", pair.Operation)
		}
	}

	namespaceIDs, tagIDs, err := api.resolve(ctx, pairs)
	if err != nil {
		return nil, err
	}
	nsPerms, err := c.tx.Permissions().GetNamespace(ctx, idValues(namespaceIDs))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	tagPerms, err := c.tx.Permissions().GetTag(ctx, idValues(tagIDs))
	if err != nil {
		return nil, Error.Wrap(err)
	}

	userIDs := map[int]bool{}
	for _, set := range nsPerms {
		collectExceptions(set, userIDs)
	}
	for _, set := range tagPerms {
		collectExceptions(set, userIDs)
	}
	usernames, err := api.usernames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]PathPermission, 0, len(pairs))
	for _, pair := range pairs {
		var set tagstore.PermissionSet
		if pair.Operation.OnNamespace() {
			set = nsPerms[namespaceIDs[pair.Path]]
		} else {
			set = tagPerms[tagIDs[pair.Path]]
		}
		perm, ok := set[pair.Operation]
		if !ok {
			return nil, Error.New("permission row missing for %v on %q", pair.Operation, pair.Path)
		}
		exceptions := make([]string, 0, len(perm.Exceptions))
		for _, id := range perm.Exceptions {
			if username, ok := usernames[id]; ok {
				exceptions = append(exceptions, username)
			}
		}
		out = append(out, PathPermission{
			Path:       pair.Path,
			Operation:  pair.Operation,
			Policy:     perm.Policy,
			Exceptions: exceptions,
		})
	}
	return out, nil
}

// Set stores the permissions, replacing the whole (path, operation) entry.
// Exception members must exist; a superuser never appears on a list and the
// anonymous user only for the operations it may perform at all.
func (api *PermissionAPI) Set(ctx context.Context, perms []PathPermission) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(perms) == 0 {
		return tagstore.ErrBadRequest.New("no permissions to set")
	}
	for _, perm := range perms {
		if perm.Operation.Control() == 0 {
			return tagstore.ErrBadRequest.New("operation %v has no stored permission", perm.Operation)
		}
		if !perm.Policy.Valid() {
			return tagstore.ErrInvalidPolicy.New("%d", perm.Policy)
		}
	}

	pairs := make([]tagstore.PathOperation, 0, len(perms))
	for _, perm := range perms {
		pairs = append(pairs, tagstore.PathOperation{Path: perm.Path, Operation: perm.Operation})
	}
	namespaceIDs, tagIDs, err := api.resolve(ctx, pairs)
	if err != nil {
		return err
	}

	for _, perm := range perms {
		exceptions, err := api.exceptionIDs(ctx, perm.Operation, perm.Exceptions)
		if err != nil {
			return err
		}
		stored := tagstore.Permission{Policy: perm.Policy, Exceptions: exceptions}
		if perm.Operation.OnNamespace() {
			err = c.tx.Permissions().UpdateNamespace(ctx, namespaceIDs[perm.Path], perm.Operation, stored)
		} else {
			err = c.tx.Permissions().UpdateTag(ctx, tagIDs[perm.Path], perm.Operation, stored)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// NamespaceSets returns the stored permission sets of the given namespace
// paths, keyed by path. Paths without a namespace are absent from the
// result.
func (api *PermissionAPI) NamespaceSets(ctx context.Context, nsPaths []string) (_ map[string]tagstore.PermissionSet, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(nsPaths) == 0 {
		return nil, nil
	}
	namespaces, err := c.tx.Namespaces().GetByPaths(ctx, nsPaths)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	ids := make([]int, 0, len(namespaces))
	pathByID := make(map[int]string, len(namespaces))
	for _, ns := range namespaces {
		ids = append(ids, ns.ID)
		pathByID[ns.ID] = ns.Path
	}
	sets, err := c.tx.Permissions().GetNamespace(ctx, ids)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	out := make(map[string]tagstore.PermissionSet, len(sets))
	for id, set := range sets {
		out[pathByID[id]] = set
	}
	return out, nil
}

// TagSets returns the stored permission sets of the given tag paths, keyed
// by path. Paths without a tag are absent from the result.
func (api *PermissionAPI) TagSets(ctx context.Context, tagPaths []string) (_ map[string]tagstore.PermissionSet, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(tagPaths) == 0 {
		return nil, nil
	}
	tags, err := c.tx.Tags().GetByPaths(ctx, tagPaths)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	ids := make([]int, 0, len(tags))
	pathByID := make(map[int]string, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
		pathByID[tag.ID] = tag.Path
	}
	sets, err := c.tx.Permissions().GetTag(ctx, ids)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	out := make(map[string]tagstore.PermissionSet, len(sets))
	for id, set := range sets {
		out[pathByID[id]] = set
	}
	return out, nil
}

// resolve maps the paths of the pairs to namespace and tag ids, depending on
// which entity the operation is stored on.
func (api *PermissionAPI) resolve(ctx context.Context, pairs []tagstore.PathOperation) (namespaceIDs, tagIDs map[string]int, err error) {
	c := api.core

	var nsPaths, tagPaths []string
	nsWanted := map[string]bool{}
	tagWanted := map[string]bool{}
	for _, pair := range pairs {
		if pair.Operation.OnNamespace() {
			if !nsWanted[pair.Path] {
				nsWanted[pair.Path] = true
				nsPaths = append(nsPaths, pair.Path)
			}
		} else if !tagWanted[pair.Path] {
			tagWanted[pair.Path] = true
			tagPaths = append(tagPaths, pair.Path)
		}
	}

	namespaceIDs = map[string]int{}
	if len(nsPaths) > 0 {
		namespaces, err := c.tx.Namespaces().GetByPaths(ctx, nsPaths)
		if err != nil {
			return nil, nil, Error.Wrap(err)
		}
		for _, ns := range namespaces {
			namespaceIDs[ns.Path] = ns.ID
		}
		for _, path := range nsPaths {
			if _, ok := namespaceIDs[path]; !ok {
				return nil, nil, tagstore.ErrUnknownNamespace.New("%q", path)
			}
		}
	}
	tagIDs = map[string]int{}
	if len(tagPaths) > 0 {
		tags, err := c.tx.Tags().GetByPaths(ctx, tagPaths)
		if err != nil {
			return nil, nil, Error.Wrap(err)
		}
		for _, tag := range tags {
			tagIDs[tag.Path] = tag.ID
		}
		for _, path := range tagPaths {
			if _, ok := tagIDs[path]; !ok {
				return nil, nil, tagstore.ErrUnknownTag.New("%q", path)
			}
		}
	}
	return namespaceIDs, tagIDs, nil
}

// exceptionIDs resolves exception usernames to user ids, validating the
// members against op.
func (api *PermissionAPI) exceptionIDs(ctx context.Context, op tagstore.Operation, usernames []string) ([]int, error) {
	if len(usernames) == 0 {
		return []int{}, nil
	}
	users, err := api.core.tx.Users().GetByUsernames(ctx, usernames)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byName := make(map[string]*tagstore.User, len(users))
	for i := range users {
		byName[users[i].Username] = &users[i]
	}
	if err := permission.ValidateExceptions(op, users); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(usernames))
	seen := map[int]bool{}
	for _, username := range usernames {
		user, ok := byName[username]
		if !ok {
			return nil, tagstore.ErrUnknownUser.New("%q", username)
		}
		if !seen[user.ID] {
			seen[user.ID] = true
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

// usernames loads the usernames for the given user ids; missing ids are
// absent from the result.
func (api *PermissionAPI) usernames(ctx context.Context, ids map[int]bool) (map[int]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := api.core.tx.Users().GetByIDs(ctx, idKeys(ids))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	out := make(map[int]string, len(users))
	for _, user := range users {
		out[user.ID] = user.Username
	}
	return out, nil
}

func collectExceptions(set tagstore.PermissionSet, into map[int]bool) {
	for _, perm := range set {
		for _, id := range perm.Exceptions {
			into[id] = true
		}
	}
}

func idValues(m map[string]int) []int {
	out := make([]int, 0, len(m))
	for _, id := range m {
		out = append(out, id)
	}
	return out
}

func idKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
