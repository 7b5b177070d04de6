// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/value"
)

// TagValueAPI implements tag value business logic.
type TagValueAPI struct {
	core *core
	tags *TagAPI
}

// Set writes the values in writes, keyed by object and tag path, replacing
// existing values of the same pairs. Missing tags are created implicitly
// with a generic description. Opaque payloads are stored content-addressed
// and linked; about values additionally claim the unique about row of the
// object. Affected objects join the dirty log.
func (api *TagValueAPI) Set(ctx context.Context, user *tagstore.User, writes map[uuid.UUID]map[string]value.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if user == nil {
		return tagstore.ErrUnauthorized.New("no requesting user")
	}
	if len(writes) == 0 {
		return tagstore.ErrBadRequest.New("no values to set")
	}

	distinct := map[string]bool{}
	for objectID, byPath := range writes {
		if len(byPath) == 0 {
			return tagstore.ErrBadRequest.New("no values for object %s", objectID)
		}
		for path := range byPath {
			if path == tagstore.IDTagPath {
				return tagstore.ErrBadRequest.New("%s is virtual and cannot be written", tagstore.IDTagPath)
			}
			if err := paths.Validate(path); err != nil {
				return err
			}
			distinct[path] = true
		}
	}

	tagsByPath := make(map[string]*tagstore.Tag, len(distinct))
	for path := range distinct {
		tag, err := api.tags.create(ctx, user, path, implicitTagDescription, true)
		if err != nil {
			return err
		}
		tagsByPath[path] = tag
	}

	if err := api.claimAbouts(ctx, writes); err != nil {
		return err
	}

	var rows []tagstore.SetTagValue
	var refs []tagstore.TagValueRef
	type opaqueWrite struct {
		ref      tagstore.TagValueRef
		fileID   string
		contents []byte
	}
	var opaques []opaqueWrite
	objectIDs := make([]uuid.UUID, 0, len(writes))

	for objectID, byPath := range writes {
		objectIDs = append(objectIDs, objectID)
		for path, v := range byPath {
			ref := tagstore.TagValueRef{ObjectID: objectID, TagID: tagsByPath[path].ID}
			if v.Type == value.TypeOpaque {
				if v.Opaque == nil || v.Opaque.Contents == nil {
					return tagstore.ErrBadRequest.New("opaque value for %q is missing its contents", path)
				}
				fileID := value.FileID(v.Opaque.Contents)
				v = value.NewOpaque(v.Opaque.MIMEType, v.Opaque.Contents)
				opaques = append(opaques, opaqueWrite{ref: ref, fileID: fileID, contents: v.Opaque.Contents})
			}
			rows = append(rows, tagstore.SetTagValue{
				ObjectID:  objectID,
				TagID:     ref.TagID,
				Value:     v,
				CreatorID: user.ID,
			})
			refs = append(refs, ref)
		}
	}

	// Overwritten opaque values lose their link now so the blobs can be
	// swept afterwards; re-linked blobs survive the sweep.
	oldFileIDs, err := c.tx.OpaqueValues().Unlink(ctx, refs)
	if err != nil {
		return Error.Wrap(err)
	}
	if err := c.tx.TagValues().Set(ctx, rows); err != nil {
		return Error.Wrap(err)
	}
	for _, opaque := range opaques {
		err := c.tx.OpaqueValues().Put(ctx, opaque.fileID, opaque.contents, int64(len(opaque.contents)))
		if err != nil {
			return Error.Wrap(err)
		}
		if err := c.tx.OpaqueValues().Link(ctx, opaque.ref, opaque.fileID); err != nil {
			return Error.Wrap(err)
		}
	}
	if len(oldFileIDs) > 0 {
		if err := c.tx.OpaqueValues().DeleteOrphans(ctx, oldFileIDs); err != nil {
			return Error.Wrap(err)
		}
	}
	return c.dirty(ctx, objectIDs...)
}

// Get returns the values of the given tags on the given objects, keyed by
// object and path. A nil tagPaths returns every value present on the
// objects. Missing combinations are absent from the result; reading
// fluiddb/id yields the object id itself without storage access.
func (api *TagValueAPI) Get(ctx context.Context, objectIDs []uuid.UUID, tagPaths []string) (_ map[uuid.UUID]map[string]value.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(objectIDs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no objects requested")
	}

	wantID := false
	if tagPaths == nil {
		present, err := c.tx.TagValues().Paths(ctx, objectIDs)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		distinct := map[string]bool{}
		for _, op := range present {
			if !distinct[op.Path] {
				distinct[op.Path] = true
				tagPaths = append(tagPaths, op.Path)
			}
		}
	} else {
		var stored []string
		for _, path := range tagPaths {
			if path == tagstore.IDTagPath {
				wantID = true
				continue
			}
			stored = append(stored, path)
		}
		tagPaths = stored
	}

	result := make(map[uuid.UUID]map[string]value.Value)
	if wantID {
		for _, objectID := range objectIDs {
			result[objectID] = map[string]value.Value{
				tagstore.IDTagPath: value.NewString(objectID.String()),
			}
		}
	}
	if len(tagPaths) == 0 {
		return result, nil
	}

	tags, err := api.tags.load(ctx, tagPaths)
	if err != nil {
		return nil, err
	}
	tagIDs := make([]int, 0, len(tags))
	pathsByID := make(map[int]string, len(tags))
	for _, tag := range tags {
		tagIDs = append(tagIDs, tag.ID)
		pathsByID[tag.ID] = tag.Path
	}

	values, err := c.tx.TagValues().Get(ctx, objectIDs, tagIDs)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	for _, tv := range values {
		byPath := result[tv.ObjectID]
		if byPath == nil {
			byPath = make(map[string]value.Value)
			result[tv.ObjectID] = byPath
		}
		byPath[pathsByID[tv.TagID]] = tv.Value
	}
	return result, nil
}

// GetOne returns the value of one tag on one object, loading opaque
// contents. A tag with no value on the object fails with
// ErrNoInstanceOnObject.
func (api *TagValueAPI) GetOne(ctx context.Context, objectID uuid.UUID, tagPath string) (_ value.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if tagPath == tagstore.IDTagPath {
		return value.NewString(objectID.String()), nil
	}
	tags, err := api.tags.load(ctx, []string{tagPath})
	if err != nil {
		return value.Value{}, err
	}

	values, err := c.tx.TagValues().Get(ctx, []uuid.UUID{objectID}, []int{tags[0].ID})
	if err != nil {
		return value.Value{}, Error.Wrap(err)
	}
	if len(values) == 0 {
		return value.Value{}, tagstore.ErrNoInstanceOnObject.New("%q on %s", tagPath, objectID)
	}

	v := values[0].Value
	if v.Type == value.TypeOpaque {
		blobs, err := c.tx.OpaqueValues().Get(ctx, []string{v.Opaque.FileID})
		if err != nil {
			return value.Value{}, Error.Wrap(err)
		}
		if len(blobs) == 0 {
			return value.Value{}, Error.New("opaque value %q has no stored contents", v.Opaque.FileID)
		}
		v.Opaque.Contents = blobs[0].Content
	}
	return v, nil
}

// ObjectIDs returns the ids of up to limit objects carrying a value of the
// tag. The tag must exist.
func (api *TagValueAPI) ObjectIDs(ctx context.Context, tagPath string, limit int) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if tagPath == tagstore.IDTagPath {
		return nil, tagstore.ErrBadRequest.New("%s is carried by every object", tagstore.IDTagPath)
	}
	tags, err := api.tags.load(ctx, []string{tagPath})
	if err != nil {
		return nil, err
	}
	ids, err := c.tx.TagValues().ObjectIDs(ctx, tags[0].ID, limit)
	return ids, Error.Wrap(err)
}

// Delete removes the given values. Every named tag must exist; pairs without
// a stored value are skipped. Objects that lost a value join the dirty log.
func (api *TagValueAPI) Delete(ctx context.Context, pairs []tagstore.ObjectPath) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(pairs) == 0 {
		return tagstore.ErrBadRequest.New("no values to delete")
	}
	distinct := map[string]bool{}
	var tagPaths []string
	for _, pair := range pairs {
		if pair.Path == tagstore.IDTagPath {
			return tagstore.ErrBadRequest.New("%s is virtual and cannot be deleted", tagstore.IDTagPath)
		}
		if !distinct[pair.Path] {
			distinct[pair.Path] = true
			tagPaths = append(tagPaths, pair.Path)
		}
	}
	tags, err := api.tags.load(ctx, tagPaths)
	if err != nil {
		return err
	}
	idsByPath := make(map[string]int, len(tags))
	for _, tag := range tags {
		idsByPath[tag.Path] = tag.ID
	}

	refs := make([]tagstore.TagValueRef, 0, len(pairs))
	for _, pair := range pairs {
		refs = append(refs, tagstore.TagValueRef{ObjectID: pair.ObjectID, TagID: idsByPath[pair.Path]})
	}

	fileIDs, err := c.tx.OpaqueValues().Unlink(ctx, refs)
	if err != nil {
		return Error.Wrap(err)
	}
	removed, err := c.tx.TagValues().Delete(ctx, refs)
	if err != nil {
		return Error.Wrap(err)
	}
	if len(fileIDs) > 0 {
		if err := c.tx.OpaqueValues().DeleteOrphans(ctx, fileIDs); err != nil {
			return Error.Wrap(err)
		}
	}

	seen := map[uuid.UUID]bool{}
	var objectIDs []uuid.UUID
	for _, ref := range removed {
		if !seen[ref.ObjectID] {
			seen[ref.ObjectID] = true
			objectIDs = append(objectIDs, ref.ObjectID)
		}
	}
	return c.dirty(ctx, objectIDs...)
}

// claimAbouts maintains the unique about rows for writes that target the
// about tag. The about of an object is write-once; writing the same value
// again is a no-op that keeps the stored spelling.
func (api *TagValueAPI) claimAbouts(ctx context.Context, writes map[uuid.UUID]map[string]value.Value) error {
	c := api.core

	type aboutWrite struct {
		objectID uuid.UUID
		value    string
	}
	var abouts []aboutWrite
	for objectID, byPath := range writes {
		v, ok := byPath[tagstore.AboutTagPath]
		if !ok {
			continue
		}
		if v.Type != value.TypeString || v.String == "" {
			return tagstore.ErrBadRequest.New("%s takes a non-empty string value", tagstore.AboutTagPath)
		}
		abouts = append(abouts, aboutWrite{objectID: objectID, value: v.String})
	}
	if len(abouts) == 0 {
		return nil
	}

	objectIDs := make([]uuid.UUID, 0, len(abouts))
	for _, about := range abouts {
		objectIDs = append(objectIDs, about.objectID)
	}
	existing, err := c.tx.Objects().GetByObjectIDs(ctx, objectIDs)
	if err != nil {
		return Error.Wrap(err)
	}
	byObject := make(map[uuid.UUID]tagstore.AboutValue, len(existing))
	for _, row := range existing {
		byObject[row.ObjectID] = row
	}

	for _, about := range abouts {
		folded := paths.FoldAbout(about.value)
		if row, ok := byObject[about.objectID]; ok {
			if row.Folded != folded {
				return tagstore.ErrBadRequest.New("object %s already has the about value %q", about.objectID, row.Value)
			}
			// Keep the first writer's spelling in the value row too.
			writes[about.objectID][tagstore.AboutTagPath] = value.NewString(row.Value)
			continue
		}
		owner, err := c.tx.Objects().Create(ctx, about.objectID, about.value, folded)
		if err != nil {
			return Error.Wrap(err)
		}
		if owner != about.objectID {
			return tagstore.ErrDuplicatePath.New("about value %q is taken", about.value)
		}
	}
	return nil
}
