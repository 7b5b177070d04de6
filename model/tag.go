// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/permission"
	"storj.io/tagstore/value"
)

// CreateTag names one tag to create.
type CreateTag struct {
	Path        string
	Description string
}

// TagInfo is what Get returns per tag.
type TagInfo struct {
	ObjectID    uuid.UUID
	Description string
}

// TagAPI implements tag business logic.
type TagAPI struct {
	core       *core
	namespaces *NamespaceAPI
}

// Create creates the tags in request order, creating missing ancestor
// namespaces with a generic description first. It returns the object ids
// backing the requested paths, in request order.
func (api *TagAPI) Create(ctx context.Context, user *tagstore.User, reqs []CreateTag) (objectIDs []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	if user == nil {
		return nil, tagstore.ErrUnauthorized.New("no requesting user")
	}
	if len(reqs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no tags to create")
	}
	for _, req := range reqs {
		if err := paths.Validate(req.Path); err != nil {
			return nil, err
		}
	}

	for _, req := range reqs {
		tag, err := api.create(ctx, user, req.Path, req.Description, false)
		if err != nil {
			return nil, err
		}
		objectIDs = append(objectIDs, tag.ObjectID)
	}
	return objectIDs, nil
}

// Get returns the requested tags keyed by path. Every path must exist.
func (api *TagAPI) Get(ctx context.Context, tagPaths []string, withDescriptions bool) (_ map[string]TagInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	tags, err := api.load(ctx, tagPaths)
	if err != nil {
		return nil, err
	}

	var descriptions map[uuid.UUID]string
	if withDescriptions {
		ids := make([]uuid.UUID, 0, len(tags))
		for _, tag := range tags {
			ids = append(ids, tag.ObjectID)
		}
		descriptions, err = c.descriptions(ctx, ids, tagstore.TagDescriptionTagPath)
		if err != nil {
			return nil, err
		}
	}

	infos := make(map[string]TagInfo, len(tags))
	for _, tag := range tags {
		info := TagInfo{ObjectID: tag.ObjectID}
		if withDescriptions {
			info.Description = descriptions[tag.ObjectID]
		}
		infos[tag.Path] = info
	}
	return infos, nil
}

// Set updates tag descriptions. Every path must exist.
func (api *TagAPI) Set(ctx context.Context, descriptions map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(descriptions) == 0 {
		return tagstore.ErrBadRequest.New("no descriptions to set")
	}
	tagPaths := make([]string, 0, len(descriptions))
	for path := range descriptions {
		tagPaths = append(tagPaths, path)
	}
	tags, err := api.load(ctx, tagPaths)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		err := c.setSystemValues(ctx, tag.ObjectID, map[string]value.Value{
			tagstore.TagDescriptionTagPath: value.NewString(descriptions[tag.Path]),
		})
		if err != nil {
			return err
		}
		if err := c.dirty(ctx, tag.ObjectID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the tags together with their permissions and all their
// values. Objects that carried a value join the dirty log; blobs that lost
// their last link are swept. The tag objects and their about values stay
// behind.
func (api *TagAPI) Delete(ctx context.Context, tagPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	tags, err := api.load(ctx, tagPaths)
	if err != nil {
		return err
	}
	tagIDs := make([]int, 0, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
	}

	// Links must go before the values cascade them away, so the blobs they
	// pointed at can be swept.
	fileIDs, err := c.tx.OpaqueValues().UnlinkByTags(ctx, tagIDs)
	if err != nil {
		return Error.Wrap(err)
	}
	affected, err := c.tx.TagValues().DeleteByTags(ctx, tagIDs)
	if err != nil {
		return Error.Wrap(err)
	}
	for _, tag := range tags {
		err := c.deleteSystemValues(ctx, tag.ObjectID,
			tagstore.TagPathTagPath, tagstore.TagDescriptionTagPath)
		if err != nil {
			return err
		}
		affected = append(affected, tag.ObjectID)
	}
	if err := c.tx.Tags().Delete(ctx, tagIDs); err != nil {
		return Error.Wrap(err)
	}
	if len(fileIDs) > 0 {
		if err := c.tx.OpaqueValues().DeleteOrphans(ctx, fileIDs); err != nil {
			return Error.Wrap(err)
		}
	}
	return c.dirty(ctx, affected...)
}

// load returns the tags at the given paths, failing when any is missing.
func (api *TagAPI) load(ctx context.Context, tagPaths []string) ([]tagstore.Tag, error) {
	if len(tagPaths) == 0 {
		return nil, tagstore.ErrBadRequest.New("no tags requested")
	}
	tags, err := api.core.tx.Tags().GetByPaths(ctx, tagPaths)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byPath := make(map[string]bool, len(tags))
	for _, tag := range tags {
		byPath[tag.Path] = true
	}
	for _, path := range tagPaths {
		if !byPath[path] {
			return nil, tagstore.ErrUnknownTag.New("%q", path)
		}
	}
	return tags, nil
}

// create creates a single tag, its missing ancestor namespaces and its
// inherited permissions. When implicit is set an existing tag is returned as
// is instead of failing with ErrDuplicatePath.
func (api *TagAPI) create(ctx context.Context, user *tagstore.User, path, description string, implicit bool) (*tagstore.Tag, error) {
	c := api.core

	existing, err := c.tx.Tags().GetByPaths(ctx, []string{path})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if len(existing) > 0 {
		if implicit {
			return &existing[0], nil
		}
		return nil, tagstore.ErrDuplicatePath.New("tag %q exists", path)
	}

	parentPath := paths.Parent(path)
	if parentPath == "" {
		return nil, tagstore.ErrBadRequest.New("tag %q has no parent namespace", path)
	}
	parent, err := api.namespaces.create(ctx, user, parentPath, implicitNamespaceDescription, true)
	if err != nil {
		return nil, err
	}

	objectID, err := c.claimObject(ctx, paths.AboutTag(path))
	if err != nil {
		return nil, err
	}
	tag, err := c.tx.Tags().Create(ctx, tagstore.CreateTag{
		Path:        path,
		Name:        paths.Name(path),
		NamespaceID: parent.ID,
		CreatorID:   user.ID,
		ObjectID:    objectID,
	})
	if err != nil {
		return nil, err
	}

	parentPerms, err := c.tx.Permissions().GetNamespace(ctx, []int{parent.ID})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	err = c.tx.Permissions().SetTag(ctx, tag.ID, permission.InheritTag(parentPerms[parent.ID], user.ID))
	if err != nil {
		return nil, Error.Wrap(err)
	}

	err = c.setSystemValues(ctx, objectID, map[string]value.Value{
		tagstore.AboutTagPath:          value.NewString(paths.AboutTag(path)),
		tagstore.TagPathTagPath:        value.NewString(path),
		tagstore.TagDescriptionTagPath: value.NewString(description),
	})
	if err != nil {
		return nil, err
	}
	return tag, c.dirty(ctx, objectID)
}
