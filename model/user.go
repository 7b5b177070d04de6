// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/value"
)

// CreateUser names one user account to create.
type CreateUser struct {
	Username string
	Password string
	FullName string
	Email    string
}

// UserInfo is what Get returns per user. It never carries the password
// hash.
type UserInfo struct {
	Username  string
	FullName  string
	Email     string
	Role      tagstore.Role
	ObjectID  uuid.UUID
	CreatedAt time.Time
}

// UpdateUser names the changes to apply to one user. Nil fields are left
// unchanged.
type UpdateUser struct {
	Username string
	Password *string
	FullName *string
	Email    *string
	Role     *tagstore.Role
}

// UserAPI implements user account business logic.
type UserAPI struct {
	core       *core
	namespaces *NamespaceAPI
}

// Create creates the user accounts in request order: the user row, its
// object carrying the @username about value, its root namespace with
// default permissions and the user system tag values. It returns the user
// object ids, in request order.
func (api *UserAPI) Create(ctx context.Context, reqs []CreateUser) (objectIDs []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(reqs) == 0 {
		return nil, tagstore.ErrBadRequest.New("no users to create")
	}
	for _, req := range reqs {
		if err := paths.ValidateUsername(req.Username); err != nil {
			return nil, tagstore.ErrInvalidUsername.Wrap(err)
		}
		if req.Password == "" {
			return nil, tagstore.ErrBadRequest.New("password missing for %q", req.Username)
		}
	}

	for _, req := range reqs {
		user, err := api.create(ctx, req)
		if err != nil {
			return nil, err
		}
		objectIDs = append(objectIDs, user.ObjectID)
	}
	return objectIDs, nil
}

// Get returns the requested users keyed by username. Every username must
// exist.
func (api *UserAPI) Get(ctx context.Context, usernames []string) (_ map[string]UserInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	users, err := api.load(ctx, usernames)
	if err != nil {
		return nil, err
	}
	infos := make(map[string]UserInfo, len(users))
	for _, user := range users {
		infos[user.Username] = UserInfo{
			Username:  user.Username,
			FullName:  user.FullName,
			Email:     user.Email,
			Role:      user.Role,
			ObjectID:  user.ObjectID,
			CreatedAt: user.CreatedAt,
		}
	}
	return infos, nil
}

// Set applies the updates in order. The system accounts cannot be changed.
func (api *UserAPI) Set(ctx context.Context, updates []UpdateUser) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	if len(updates) == 0 {
		return tagstore.ErrBadRequest.New("no users to update")
	}
	for _, update := range updates {
		if isSystemUsername(update.Username) {
			return tagstore.ErrBadRequest.New("system user %q cannot be changed", update.Username)
		}
		if update.Role != nil && !update.Role.Valid() {
			return tagstore.ErrBadRequest.New("unknown role %d", *update.Role)
		}
	}

	for _, update := range updates {
		users, err := api.load(ctx, []string{update.Username})
		if err != nil {
			return err
		}
		user := users[0]

		row := tagstore.UpdateUser{
			FullName: update.FullName,
			Email:    update.Email,
			Role:     update.Role,
		}
		if update.Password != nil {
			row.PasswordHash, err = bcrypt.GenerateFromPassword([]byte(*update.Password), c.passwordCost)
			if err != nil {
				return Error.Wrap(err)
			}
		}
		if err := c.tx.Users().Update(ctx, user.ID, row); err != nil {
			return err
		}

		system := map[string]value.Value{}
		if update.FullName != nil {
			system[tagstore.UserNameTagPath] = value.NewString(*update.FullName)
		}
		if update.Email != nil {
			system[tagstore.UserEmailTagPath] = value.NewString(*update.Email)
		}
		if len(system) > 0 {
			if err := c.setSystemValues(ctx, user.ObjectID, system); err != nil {
				return err
			}
			if err := c.dirty(ctx, user.ObjectID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete removes the user accounts together with their root namespaces and
// every value they wrote. A user whose root namespace still contains
// anything is refused; the system accounts cannot be deleted. The user
// objects and their about values stay behind.
func (api *UserAPI) Delete(ctx context.Context, usernames []string) (err error) {
	defer mon.Task()(&ctx)(&err)
	c := api.core

	for _, username := range usernames {
		if isSystemUsername(username) {
			return tagstore.ErrBadRequest.New("system user %q cannot be deleted", username)
		}
	}
	users, err := api.load(ctx, usernames)
	if err != nil {
		return err
	}

	swept := false
	for _, user := range users {
		affected, err := api.deleteOne(ctx, &user)
		if err != nil {
			return err
		}
		swept = swept || affected
	}
	if swept {
		// Links of the removed values cascaded away without reporting their
		// file ids, so sweep the whole blob store once.
		if err := c.tx.OpaqueValues().DeleteOrphans(ctx, nil); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

// Authenticate returns the user when the password matches its stored hash.
func (api *UserAPI) Authenticate(ctx context.Context, username, password string) (_ *tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)

	users, err := api.core.tx.Users().GetByUsernames(ctx, []string{username})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if len(users) == 0 || len(users[0].PasswordHash) == 0 {
		return nil, tagstore.ErrUnauthorized.New("unknown user %q", username)
	}
	if bcrypt.CompareHashAndPassword(users[0].PasswordHash, []byte(password)) != nil {
		return nil, tagstore.ErrUnauthorized.New("wrong password for %q", username)
	}
	return &users[0], nil
}

// Actor returns the acting user for username, or the anonymous user when
// username is empty.
func (api *UserAPI) Actor(ctx context.Context, username string) (_ *tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)

	if username == "" {
		username = tagstore.AnonymousUsername
	}
	users, err := api.core.tx.Users().GetByUsernames(ctx, []string{username})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if len(users) == 0 {
		return nil, tagstore.ErrUnknownUser.New("%q", username)
	}
	return &users[0], nil
}

// create creates a single user account with its object, root namespace and
// system tag values.
func (api *UserAPI) create(ctx context.Context, req CreateUser) (*tagstore.User, error) {
	c := api.core

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), c.passwordCost)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	objectID, err := c.claimObject(ctx, paths.AboutUser(req.Username))
	if err != nil {
		return nil, err
	}
	user, err := c.tx.Users().Create(ctx, tagstore.CreateUser{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         tagstore.RoleUser,
		ObjectID:     objectID,
	})
	if err != nil {
		return nil, err
	}

	_, err = api.namespaces.createOne(ctx, user, req.Username,
		"Namespace for user "+req.Username, nil)
	if err != nil {
		return nil, err
	}

	err = c.setSystemValues(ctx, objectID, map[string]value.Value{
		tagstore.AboutTagPath:        value.NewString(paths.AboutUser(req.Username)),
		tagstore.UserUsernameTagPath: value.NewString(req.Username),
		tagstore.UserNameTagPath:     value.NewString(req.FullName),
		tagstore.UserEmailTagPath:    value.NewString(req.Email),
	})
	if err != nil {
		return nil, err
	}
	return user, c.dirty(ctx, objectID)
}

// deleteOne removes one user account. It reports whether any tag values
// written by the user were removed with it.
func (api *UserAPI) deleteOne(ctx context.Context, user *tagstore.User) (affectedValues bool, err error) {
	c := api.core

	namespaces, err := c.tx.Namespaces().GetByPaths(ctx, []string{user.Username})
	if err != nil {
		return false, Error.Wrap(err)
	}
	for i := range namespaces {
		// deleteOne refuses when the root namespace is not empty.
		if err := api.namespaces.deleteOne(ctx, &namespaces[i]); err != nil {
			return false, err
		}
	}

	affected, err := c.tx.TagValues().DeleteByCreator(ctx, user.ID)
	if err != nil {
		return false, Error.Wrap(err)
	}
	err = c.deleteSystemValues(ctx, user.ObjectID,
		tagstore.UserUsernameTagPath, tagstore.UserNameTagPath, tagstore.UserEmailTagPath)
	if err != nil {
		return false, err
	}
	if err := c.tx.Users().Delete(ctx, user.ID); err != nil {
		return false, err
	}
	if err := c.dirty(ctx, append(affected, user.ObjectID)...); err != nil {
		return false, err
	}
	return len(affected) > 0, nil
}

// load returns the users with the given usernames, failing when any is
// missing.
func (api *UserAPI) load(ctx context.Context, usernames []string) ([]tagstore.User, error) {
	if len(usernames) == 0 {
		return nil, tagstore.ErrBadRequest.New("no users requested")
	}
	users, err := api.core.tx.Users().GetByUsernames(ctx, usernames)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byName := make(map[string]bool, len(users))
	for _, user := range users {
		byName[user.Username] = true
	}
	for _, username := range usernames {
		if !byName[username] {
			return nil, tagstore.ErrUnknownUser.New("%q", username)
		}
	}
	return users, nil
}

func isSystemUsername(username string) bool {
	return username == tagstore.SystemUsername || username == tagstore.AnonymousUsername
}
