// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/tagstore"
	"storj.io/tagstore/model"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/tagstoredb/testdb"
	"storj.io/tagstore/value"
)

// run opens a migrated database and calls test with a model bound to a
// single transaction, the way the facade builds one per request.
func run(t *testing.T, test func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model)) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		err := db.WithTx(ctx, func(_ context.Context, tx tagstore.DBTx) error {
			test(ctx, t, tx, model.New(zaptest.NewLogger(t), tx, model.TestPasswordCost))
			return nil
		})
		require.NoError(t, err)
	})
}

// inTx runs fn in a transaction of its own, the way one failing request
// rolls back without taking the rest of the test with it.
func inTx(ctx *testcontext.Context, t *testing.T, db tagstore.DB, fn func(m *model.Model) error) error {
	return db.WithTx(ctx, func(_ context.Context, tx tagstore.DBTx) error {
		return fn(model.New(zaptest.NewLogger(t), tx, model.TestPasswordCost))
	})
}

func createUser(ctx *testcontext.Context, t *testing.T, m *model.Model, username string) *tagstore.User {
	_, err := m.Users.Create(ctx, []model.CreateUser{{
		Username: username,
		Password: "secret",
		FullName: "Test " + username,
		Email:    username + "@example.test",
	}})
	require.NoError(t, err)
	user, err := m.Users.Actor(ctx, username)
	require.NoError(t, err)
	return user
}

func TestUsers(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		objectIDs, err := m.Users.Create(ctx, []model.CreateUser{{
			Username: "alice",
			Password: "secret",
			FullName: "Alice Author",
			Email:    "alice@example.test",
		}})
		require.NoError(t, err)
		require.Len(t, objectIDs, 1)

		infos, err := m.Users.Get(ctx, []string{"alice"})
		require.NoError(t, err)
		info := infos["alice"]
		require.Equal(t, "Alice Author", info.FullName)
		require.Equal(t, "alice@example.test", info.Email)
		require.Equal(t, tagstore.RoleUser, info.Role)
		require.Equal(t, objectIDs[0], info.ObjectID)

		// The account is represented by an object carrying the user system
		// tags.
		about, err := m.Values.GetOne(ctx, info.ObjectID, tagstore.AboutTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString("@alice"), about)
		username, err := m.Values.GetOne(ctx, info.ObjectID, tagstore.UserUsernameTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString("alice"), username)

		// Creating the account created the root namespace.
		namespaces, err := m.Namespaces.Get(ctx, []string{"alice"}, model.NamespaceGetOptions{Descriptions: true})
		require.NoError(t, err)
		require.Equal(t, "Namespace for user alice", namespaces["alice"].Description)
	})
}

func TestUsersValidation(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		require.NoError(t, inTx(ctx, t, db, func(m *model.Model) error {
			createUser(ctx, t, m, "alice")
			return nil
		}))

		// A taken username aborts the transaction, so it gets one of its own.
		err := inTx(ctx, t, db, func(m *model.Model) error {
			_, err := m.Users.Create(ctx, []model.CreateUser{{Username: "alice", Password: "x"}})
			return err
		})
		require.True(t, tagstore.ErrDuplicatePath.Has(err))

		err = inTx(ctx, t, db, func(m *model.Model) error {
			_, err := m.Users.Create(ctx, []model.CreateUser{{Username: "Alice", Password: "x"}})
			require.True(t, tagstore.ErrInvalidUsername.Has(err))

			_, err = m.Users.Create(ctx, []model.CreateUser{{Username: "bob"}})
			require.True(t, tagstore.ErrBadRequest.Has(err))

			_, err = m.Users.Get(ctx, []string{"nosuch"})
			require.True(t, tagstore.ErrUnknownUser.Has(err))

			err = m.Users.Set(ctx, []model.UpdateUser{{Username: tagstore.SystemUsername}})
			require.True(t, tagstore.ErrBadRequest.Has(err))
			return m.Users.Delete(ctx, []string{tagstore.AnonymousUsername})
		})
		require.True(t, tagstore.ErrBadRequest.Has(err))
	})
}

func TestUsersAuthenticate(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		user, err := m.Users.Authenticate(ctx, "alice", "secret")
		require.NoError(t, err)
		require.Equal(t, alice.ID, user.ID)

		_, err = m.Users.Authenticate(ctx, "alice", "wrong")
		require.True(t, tagstore.ErrUnauthorized.Has(err))
		_, err = m.Users.Authenticate(ctx, "nosuch", "secret")
		require.True(t, tagstore.ErrUnauthorized.Has(err))
		// The anonymous account has no password.
		_, err = m.Users.Authenticate(ctx, tagstore.AnonymousUsername, "")
		require.True(t, tagstore.ErrUnauthorized.Has(err))

		actor, err := m.Users.Actor(ctx, "")
		require.NoError(t, err)
		require.Equal(t, tagstore.AnonymousUsername, actor.Username)
		require.Equal(t, tagstore.RoleAnonymous, actor.Role)

		_, err = m.Users.Actor(ctx, "nosuch")
		require.True(t, tagstore.ErrUnknownUser.Has(err))
	})
}

func TestUsersSet(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		fullName, email, password := "Alice B. Author", "new@example.test", "changed"
		role := tagstore.RoleUserManager
		require.NoError(t, m.Users.Set(ctx, []model.UpdateUser{{
			Username: "alice",
			Password: &password,
			FullName: &fullName,
			Email:    &email,
			Role:     &role,
		}}))

		infos, err := m.Users.Get(ctx, []string{"alice"})
		require.NoError(t, err)
		require.Equal(t, fullName, infos["alice"].FullName)
		require.Equal(t, email, infos["alice"].Email)
		require.Equal(t, tagstore.RoleUserManager, infos["alice"].Role)

		// The user system tags follow the account.
		stored, err := m.Values.GetOne(ctx, alice.ObjectID, tagstore.UserNameTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString(fullName), stored)

		_, err = m.Users.Authenticate(ctx, "alice", "changed")
		require.NoError(t, err)
		_, err = m.Users.Authenticate(ctx, "alice", "secret")
		require.True(t, tagstore.ErrUnauthorized.Has(err))

		badRole := tagstore.Role(9)
		err = m.Users.Set(ctx, []model.UpdateUser{{Username: "alice", Role: &badRole}})
		require.True(t, tagstore.ErrBadRequest.Has(err))
	})
}

func TestUsersDelete(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")
		bob := createUser(ctx, t, m, "bob")

		// bob wrote a value through alice's tag; deleting bob removes it.
		_, err := m.Tags.Create(ctx, alice, []model.CreateTag{{Path: "alice/books/rating", Description: "stars"}})
		require.NoError(t, err)
		objectID, err := m.Objects.Create(ctx, bob, "Moby Dick")
		require.NoError(t, err)
		require.NoError(t, m.Values.Set(ctx, bob, map[uuid.UUID]map[string]value.Value{
			objectID: {"alice/books/rating": value.NewInt(5)},
		}))

		require.NoError(t, m.Users.Delete(ctx, []string{"bob"}))

		_, err = m.Users.Get(ctx, []string{"bob"})
		require.True(t, tagstore.ErrUnknownUser.Has(err))
		_, err = m.Users.Actor(ctx, "bob")
		require.True(t, tagstore.ErrUnknownUser.Has(err))
		_, err = m.Namespaces.Get(ctx, []string{"bob"}, model.NamespaceGetOptions{})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))

		// The user object and its about value stay behind; the user system
		// tags are gone.
		ids, err := m.Objects.Get(ctx, []string{"@bob"})
		require.NoError(t, err)
		require.Equal(t, bob.ObjectID, ids["@bob"])
		_, err = m.Values.GetOne(ctx, bob.ObjectID, tagstore.UserUsernameTagPath)
		require.True(t, tagstore.ErrNoInstanceOnObject.Has(err))

		// bob's rating went with him.
		values, err := m.Values.Get(ctx, []uuid.UUID{objectID}, []string{"alice/books/rating"})
		require.NoError(t, err)
		require.Empty(t, values[objectID])

		// alice still owns a non-empty tree.
		err = m.Users.Delete(ctx, []string{"alice"})
		require.True(t, tagstore.ErrNamespaceNotEmpty.Has(err))
	})
}

func TestUsersDeleteKeepsForeignEntities(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		require.NoError(t, inTx(ctx, t, db, func(m *model.Model) error {
			alice := createUser(ctx, t, m, "alice")
			bob := createUser(ctx, t, m, "bob")

			// bob creates a tag inside alice's tree.
			_, err := m.Namespaces.Create(ctx, alice, []model.CreateNamespace{{Path: "alice/books", Description: "My books"}})
			require.NoError(t, err)
			_, err = m.Tags.Create(ctx, bob, []model.CreateTag{{Path: "alice/books/notes", Description: "by bob"}})
			require.NoError(t, err)
			return nil
		}))

		// bob cannot go while a foreign tag names him as creator.
		err := inTx(ctx, t, db, func(m *model.Model) error {
			return m.Users.Delete(ctx, []string{"bob"})
		})
		require.True(t, tagstore.ErrBadRequest.Has(err))
	})
}
