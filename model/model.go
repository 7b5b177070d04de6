// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package model implements the business logic of the tag store: batched
// create, get, set and delete for namespaces, tags, tag values, permissions,
// objects and users.
//
// A Model is bound to a single database transaction and built once per
// request; it is not safe for concurrent use. The model performs no
// permission checks, that is the security layer's job. The acting user is
// passed in only where it becomes the creator of what the call writes.
// Every mutation appends the affected objects to the dirty log inside the
// same transaction, so the index import sees them after commit.
package model

import (
	"context"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/value"
)

var (
	mon = monkit.Package()

	// Error is the error class for internal model failures.
	Error = errs.Class("model")
)

const (
	// DefaultPasswordCost is the bcrypt hashing complexity.
	DefaultPasswordCost = bcrypt.DefaultCost
	// TestPasswordCost is the hashing complexity to use for testing.
	TestPasswordCost = bcrypt.MinCost
)

// Descriptions given to namespaces and tags the system creates on behalf of
// a user.
const (
	implicitNamespaceDescription = "Namespace created implicitly"
	implicitTagDescription       = "Tag created implicitly"
)

// Model groups the API surface of the business logic, bound to one
// transaction.
type Model struct {
	Namespaces  *NamespaceAPI
	Tags        *TagAPI
	Values      *TagValueAPI
	Permissions *PermissionAPI
	Objects     *ObjectAPI
	Users       *UserAPI
	Activity    *ActivityAPI
}

// New constructs a Model over tx. A zero passwordCost falls back to
// DefaultPasswordCost.
func New(log *zap.Logger, tx tagstore.DBTx, passwordCost int) *Model {
	if passwordCost == 0 {
		passwordCost = DefaultPasswordCost
	}
	core := &core{log: log, tx: tx, passwordCost: passwordCost}
	model := &Model{
		Namespaces:  &NamespaceAPI{core: core},
		Values:      &TagValueAPI{core: core},
		Permissions: &PermissionAPI{core: core},
		Objects:     &ObjectAPI{core: core},
		Activity:    &ActivityAPI{core: core},
	}
	model.Tags = &TagAPI{core: core, namespaces: model.Namespaces}
	model.Values.tags = model.Tags
	model.Users = &UserAPI{core: core, namespaces: model.Namespaces}
	return model
}

// core is the state the API groups share: the transaction plus the system
// user and system tag ids, loaded once per request on first use.
type core struct {
	log          *zap.Logger
	tx           tagstore.DBTx
	passwordCost int

	system     *tagstore.User
	systemTags map[string]int
}

// systemUser returns the superuser owning the system namespaces and tags.
func (c *core) systemUser(ctx context.Context) (*tagstore.User, error) {
	if c.system != nil {
		return c.system, nil
	}
	users, err := c.tx.Users().GetByUsernames(ctx, []string{tagstore.SystemUsername})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if len(users) == 0 {
		return nil, Error.New("system user missing")
	}
	c.system = &users[0]
	return c.system, nil
}

// systemTagIDs returns the ids of all system tags by path.
func (c *core) systemTagIDs(ctx context.Context) (map[string]int, error) {
	if c.systemTags != nil {
		return c.systemTags, nil
	}
	all := []string{
		tagstore.AboutTagPath,
		tagstore.NamespacePathTagPath, tagstore.NamespaceDescriptionTagPath,
		tagstore.TagPathTagPath, tagstore.TagDescriptionTagPath,
		tagstore.UserUsernameTagPath, tagstore.UserNameTagPath, tagstore.UserEmailTagPath,
	}
	tags, err := c.tx.Tags().GetByPaths(ctx, all)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if len(tags) != len(all) {
		return nil, Error.New("system tags missing: found %d of %d", len(tags), len(all))
	}
	c.systemTags = make(map[string]int, len(tags))
	for _, tag := range tags {
		c.systemTags[tag.Path] = tag.ID
	}
	return c.systemTags, nil
}

// systemTag returns the id of the system tag at path.
func (c *core) systemTag(ctx context.Context, path string) (int, error) {
	ids, err := c.systemTagIDs(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := ids[path]
	if !ok {
		return 0, Error.New("unknown system tag %q", path)
	}
	return id, nil
}

// claimObject claims the about value and returns the object id owning it.
// Entities keep their object across delete and re-create, so the returned id
// is the old one when the value was claimed before.
func (c *core) claimObject(ctx context.Context, about string) (uuid.UUID, error) {
	id, err := c.tx.Objects().Create(ctx, uuid.New(), about, paths.FoldAbout(about))
	return id, Error.Wrap(err)
}

// setSystemValues writes system tag values onto an object as the system
// user. values maps system tag paths to the values to store.
func (c *core) setSystemValues(ctx context.Context, objectID uuid.UUID, values map[string]value.Value) error {
	system, err := c.systemUser(ctx)
	if err != nil {
		return err
	}
	ids, err := c.systemTagIDs(ctx)
	if err != nil {
		return err
	}
	rows := make([]tagstore.SetTagValue, 0, len(values))
	for path, v := range values {
		tagID, ok := ids[path]
		if !ok {
			return Error.New("unknown system tag %q", path)
		}
		rows = append(rows, tagstore.SetTagValue{
			ObjectID:  objectID,
			TagID:     tagID,
			Value:     v,
			CreatorID: system.ID,
		})
	}
	return Error.Wrap(c.tx.TagValues().Set(ctx, rows))
}

// deleteSystemValues removes system tag values from an object. Values not
// present are skipped.
func (c *core) deleteSystemValues(ctx context.Context, objectID uuid.UUID, tagPaths ...string) error {
	ids, err := c.systemTagIDs(ctx)
	if err != nil {
		return err
	}
	refs := make([]tagstore.TagValueRef, 0, len(tagPaths))
	for _, path := range tagPaths {
		tagID, ok := ids[path]
		if !ok {
			return Error.New("unknown system tag %q", path)
		}
		refs = append(refs, tagstore.TagValueRef{ObjectID: objectID, TagID: tagID})
	}
	_, err = c.tx.TagValues().Delete(ctx, refs)
	return Error.Wrap(err)
}

// descriptions reads the string values of one description tag on the given
// objects.
func (c *core) descriptions(ctx context.Context, objectIDs []uuid.UUID, descriptionTag string) (map[uuid.UUID]string, error) {
	tagID, err := c.systemTag(ctx, descriptionTag)
	if err != nil {
		return nil, err
	}
	values, err := c.tx.TagValues().Get(ctx, objectIDs, []int{tagID})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	out := make(map[uuid.UUID]string, len(values))
	for _, tv := range values {
		if tv.Value.Type == value.TypeString {
			out[tv.ObjectID] = tv.Value.String
		}
	}
	return out, nil
}

// dirty appends the objects to the dirty log.
func (c *core) dirty(ctx context.Context, objectIDs ...uuid.UUID) error {
	if len(objectIDs) == 0 {
		return nil
	}
	return Error.Wrap(c.tx.DirtyObjects().Add(ctx, objectIDs))
}
