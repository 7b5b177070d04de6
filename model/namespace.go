// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/permission"
	"storj.io/tagstore/value"
)

// CreateNamespace names one namespace to create.
type CreateNamespace struct {
	Path        string
	Description string
}

// NamespaceGetOptions selects the optional fields Get fills in. Everything
// requested is loaded in the same transaction.
type NamespaceGetOptions struct {
	Descriptions bool
	Namespaces   bool
	Tags         bool
}

// NamespaceInfo is what Get returns per namespace.
type NamespaceInfo struct {
	ObjectID    uuid.UUID
	Description string
	Namespaces  []string // names of direct child namespaces
	Tags        []string // names of contained tags
}

// NamespaceAPI implements namespace business logic.
type NamespaceAPI struct {
	core *core
}

// Create creates the namespaces in request order, creating missing ancestors
// with a generic description first. It returns the object ids backing the
// requested paths, in request order.
func (api *NamespaceAPI) Create(ctx context.Context, user *tagstore.User, reqs []CreateNamespace) (objectIDs []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	if user == nil {
		return nil, tagstore.ErrUnauthorized.New("no requesting user")
	}
	if len(reqs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no namespaces to create")
	}
	for _, req := range reqs {
		if err := paths.Validate(req.Path); err != nil {
			return nil, err
		}
	}

	for _, req := range reqs {
		ns, err := api.create(ctx, user, req.Path, req.Description, false)
		if err != nil {
			return nil, err
		}
		objectIDs = append(objectIDs, ns.ObjectID)
	}
	return objectIDs, nil
}

// Get returns the requested namespaces keyed by path. Every path must exist.
func (api *NamespaceAPI) Get(ctx context.Context, nsPaths []string, opts NamespaceGetOptions) (_ map[string]NamespaceInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	namespaces, err := api.load(ctx, nsPaths)
	if err != nil {
		return nil, err
	}

	var descriptions map[uuid.UUID]string
	if opts.Descriptions {
		ids := make([]uuid.UUID, 0, len(namespaces))
		for _, ns := range namespaces {
			ids = append(ids, ns.ObjectID)
		}
		descriptions, err = c.descriptions(ctx, ids, tagstore.NamespaceDescriptionTagPath)
		if err != nil {
			return nil, err
		}
	}

	infos := make(map[string]NamespaceInfo, len(namespaces))
	for _, ns := range namespaces {
		info := NamespaceInfo{ObjectID: ns.ObjectID}
		if opts.Descriptions {
			info.Description = descriptions[ns.ObjectID]
		}
		if opts.Namespaces {
			info.Namespaces, err = c.tx.Namespaces().ChildNames(ctx, ns.ID)
			if err != nil {
				return nil, Error.Wrap(err)
			}
		}
		if opts.Tags {
			info.Tags, err = c.tx.Tags().NamesByNamespace(ctx, ns.ID)
			if err != nil {
				return nil, Error.Wrap(err)
			}
		}
		infos[ns.Path] = info
	}
	return infos, nil
}

// Set updates namespace descriptions. Every path must exist.
func (api *NamespaceAPI) Set(ctx context.Context, descriptions map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(descriptions) == 0 {
		return tagstore.ErrBadRequest.New("no descriptions to set")
	}
	nsPaths := make([]string, 0, len(descriptions))
	for path := range descriptions {
		nsPaths = append(nsPaths, path)
	}
	namespaces, err := api.load(ctx, nsPaths)
	if err != nil {
		return err
	}

	for _, ns := range namespaces {
		err := c.setSystemValues(ctx, ns.ObjectID, map[string]value.Value{
			tagstore.NamespaceDescriptionTagPath: value.NewString(descriptions[ns.Path]),
		})
		if err != nil {
			return err
		}
		if err := c.dirty(ctx, ns.ObjectID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the namespaces. A namespace that still has child namespaces
// or tags is refused. The object and its about value stay behind, so
// re-creating the path finds the same object again.
func (api *NamespaceAPI) Delete(ctx context.Context, nsPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	namespaces, err := api.load(ctx, nsPaths)
	if err != nil {
		return err
	}

	// Children go first, so one batch can remove a whole subtree.
	sort.Slice(namespaces, func(i, k int) bool {
		return paths.Depth(namespaces[i].Path) > paths.Depth(namespaces[k].Path)
	})
	for i := range namespaces {
		if err := api.deleteOne(ctx, &namespaces[i]); err != nil {
			return err
		}
	}
	return nil
}

// load returns the namespaces at the given paths, failing when any is
// missing.
func (api *NamespaceAPI) load(ctx context.Context, nsPaths []string) ([]tagstore.Namespace, error) {
	if len(nsPaths) == 0 {
		return nil, tagstore.ErrBadRequest.New("no namespaces requested")
	}
	namespaces, err := api.core.tx.Namespaces().GetByPaths(ctx, nsPaths)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byPath := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		byPath[ns.Path] = true
	}
	for _, path := range nsPaths {
		if !byPath[path] {
			return nil, tagstore.ErrUnknownNamespace.New("%q", path)
		}
	}
	return namespaces, nil
}

// create creates path and its missing ancestors. When implicit is set an
// existing namespace is returned as is instead of failing with
// ErrDuplicatePath.
func (api *NamespaceAPI) create(ctx context.Context, user *tagstore.User, path, description string, implicit bool) (*tagstore.Namespace, error) {
	c := api.core

	ancestors := paths.Ancestors(path)
	existing, err := c.tx.Namespaces().GetByPaths(ctx, append([]string{path}, ancestors...))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byPath := make(map[string]*tagstore.Namespace, len(existing))
	for i := range existing {
		byPath[existing[i].Path] = &existing[i]
	}

	if ns, ok := byPath[path]; ok {
		if implicit {
			return ns, nil
		}
		return nil, tagstore.ErrDuplicatePath.New("namespace %q exists", path)
	}

	// Walk top down: everything below the deepest existing ancestor is
	// missing and gets created on the way to path.
	var parent *tagstore.Namespace
	var missing []string
	for i := len(ancestors) - 1; i >= 0; i-- {
		if ns, ok := byPath[ancestors[i]]; ok {
			parent = ns
		} else {
			missing = append(missing, ancestors[i])
		}
	}
	if parent == nil {
		// Roots belong to users and only appear when the user is created.
		return nil, tagstore.ErrUnknownNamespace.New("%q has no existing ancestor namespace", path)
	}
	missing = append(missing, path)

	var created *tagstore.Namespace
	for _, nsPath := range missing {
		desc := description
		if nsPath != path {
			desc = implicitNamespaceDescription
		}
		created, err = api.createOne(ctx, user, nsPath, desc, parent)
		if err != nil {
			return nil, err
		}
		parent = created
	}
	return created, nil
}

// createOne creates a single namespace under parent together with its
// inherited permissions, its object and its system tag values. A nil parent
// creates a root namespace with default permissions.
func (api *NamespaceAPI) createOne(ctx context.Context, user *tagstore.User, path, description string, parent *tagstore.Namespace) (*tagstore.Namespace, error) {
	c := api.core

	objectID, err := c.claimObject(ctx, paths.AboutNamespace(path))
	if err != nil {
		return nil, err
	}

	create := tagstore.CreateNamespace{
		Path:      path,
		Name:      paths.Name(path),
		CreatorID: user.ID,
		ObjectID:  objectID,
	}
	perms := permission.NamespaceDefaults(user.ID)
	if parent != nil {
		create.ParentID = &parent.ID
		parentPerms, err := c.tx.Permissions().GetNamespace(ctx, []int{parent.ID})
		if err != nil {
			return nil, Error.Wrap(err)
		}
		perms = permission.InheritNamespace(parentPerms[parent.ID], user.ID)
	}

	ns, err := c.tx.Namespaces().Create(ctx, create)
	if err != nil {
		return nil, err
	}
	if err := c.tx.Permissions().SetNamespace(ctx, ns.ID, perms); err != nil {
		return nil, Error.Wrap(err)
	}
	err = c.setSystemValues(ctx, objectID, map[string]value.Value{
		tagstore.AboutTagPath:                value.NewString(paths.AboutNamespace(path)),
		tagstore.NamespacePathTagPath:        value.NewString(path),
		tagstore.NamespaceDescriptionTagPath: value.NewString(description),
	})
	if err != nil {
		return nil, err
	}
	return ns, c.dirty(ctx, objectID)
}

// deleteOne removes a single namespace after checking it is empty.
func (api *NamespaceAPI) deleteOne(ctx context.Context, ns *tagstore.Namespace) error {
	c := api.core

	children, err := c.tx.Namespaces().HasChildren(ctx, []int{ns.ID})
	if err != nil {
		return Error.Wrap(err)
	}
	tags, err := c.tx.Tags().HasTags(ctx, []int{ns.ID})
	if err != nil {
		return Error.Wrap(err)
	}
	if children[ns.ID] || tags[ns.ID] {
		return tagstore.ErrNamespaceNotEmpty.New("%q", ns.Path)
	}

	err = c.deleteSystemValues(ctx, ns.ObjectID,
		tagstore.NamespacePathTagPath, tagstore.NamespaceDescriptionTagPath)
	if err != nil {
		return err
	}
	if err := c.tx.Namespaces().Delete(ctx, []int{ns.ID}); err != nil {
		return Error.Wrap(err)
	}
	return c.dirty(ctx, ns.ObjectID)
}
