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

// ObjectAPI implements object business logic. Objects have no rows of their
// own; they exist through the values and the about value attached to them.
type ObjectAPI struct {
	core *core
}

// Create returns the id of the object carrying the about value, minting a
// new object when the value is unclaimed. An empty about mints a fresh
// anonymous object without touching storage.
func (api *ObjectAPI) Create(ctx context.Context, user *tagstore.User, about string) (_ uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if user == nil {
		return uuid.Nil, tagstore.ErrUnauthorized.New("no requesting user")
	}
	if about == "" {
		return uuid.New(), nil
	}

	folded := paths.FoldAbout(about)
	existing, err := c.tx.Objects().GetByFolded(ctx, []string{folded})
	if err != nil {
		return uuid.Nil, Error.Wrap(err)
	}
	if len(existing) > 0 {
		return existing[0].ObjectID, nil
	}

	objectID, err := c.claimObject(ctx, about)
	if err != nil {
		return uuid.Nil, err
	}
	err = c.setSystemValues(ctx, objectID, map[string]value.Value{
		tagstore.AboutTagPath: value.NewString(about),
	})
	if err != nil {
		return uuid.Nil, err
	}
	return objectID, c.dirty(ctx, objectID)
}

// Get returns the ids of the objects carrying the given about values, keyed
// by the requested spelling. Unclaimed values are absent from the result.
func (api *ObjectAPI) Get(ctx context.Context, abouts []string) (_ map[string]uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(abouts) == 0 {
		return nil, tagstore.ErrBadRequest.New("no about values requested")
	}
	folded := make([]string, 0, len(abouts))
	seen := map[string]bool{}
	for _, about := range abouts {
		f := paths.FoldAbout(about)
		if !seen[f] {
			seen[f] = true
			folded = append(folded, f)
		}
	}

	rows, err := c.tx.Objects().GetByFolded(ctx, folded)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byFolded := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		byFolded[row.Folded] = row.ObjectID
	}

	result := make(map[string]uuid.UUID, len(abouts))
	for _, about := range abouts {
		if id, ok := byFolded[paths.FoldAbout(about)]; ok {
			result[about] = id
		}
	}
	return result, nil
}

// Abouts returns the about values of the given objects; objects without one
// are absent from the result.
func (api *ObjectAPI) Abouts(ctx context.Context, objectIDs []uuid.UUID) (_ map[uuid.UUID]string, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(objectIDs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no objects requested")
	}
	rows, err := c.tx.Objects().GetByObjectIDs(ctx, objectIDs)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	result := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		result[row.ObjectID] = row.Value
	}
	return result, nil
}

// TagPaths returns the tag paths present on each object. Objects carrying no
// values are absent from the result.
func (api *ObjectAPI) TagPaths(ctx context.Context, objectIDs []uuid.UUID) (_ map[uuid.UUID][]string, err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(objectIDs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no objects requested")
	}
	present, err := c.tx.TagValues().Paths(ctx, objectIDs)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	result := make(map[uuid.UUID][]string)
	for _, op := range present {
		result[op.ObjectID] = append(result[op.ObjectID], op.Path)
	}
	return result, nil
}
