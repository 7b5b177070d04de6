// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/private/testrand"
	"storj.io/tagstore/tagstoredb/testdb"
)

func TestUsers(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		users := db.Users()

		alice, err := users.Create(ctx, tagstore.CreateUser{
			Username:     "alice",
			PasswordHash: []byte("hash"),
			FullName:     "Alice",
			Email:        "alice@example.test",
			Role:         tagstore.RoleUser,
			ObjectID:     testrand.UUID(),
		})
		require.NoError(t, err)
		require.NotZero(t, alice.ID)
		require.False(t, alice.CreatedAt.IsZero())

		_, err = users.Create(ctx, tagstore.CreateUser{
			Username: "alice",
			Role:     tagstore.RoleUser,
			ObjectID: testrand.UUID(),
		})
		require.True(t, tagstore.ErrDuplicatePath.Has(err))

		found, err := users.GetByUsernames(ctx, []string{"alice", "nobody"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, alice.ID, found[0].ID)
		require.Equal(t, []byte("hash"), found[0].PasswordHash)
		require.Equal(t, tagstore.RoleUser, found[0].Role)
		require.Equal(t, alice.ObjectID, found[0].ObjectID)

		byID, err := users.GetByIDs(ctx, []int{alice.ID})
		require.NoError(t, err)
		require.Len(t, byID, 1)
		require.Equal(t, "alice", byID[0].Username)

		// Only the non-nil fields change.
		fullName := "Alice Liddell"
		manager := tagstore.RoleUserManager
		require.NoError(t, users.Update(ctx, alice.ID, tagstore.UpdateUser{
			FullName: &fullName,
			Role:     &manager,
		}))
		found, err = users.GetByUsernames(ctx, []string{"alice"})
		require.NoError(t, err)
		require.Equal(t, "Alice Liddell", found[0].FullName)
		require.Equal(t, "alice@example.test", found[0].Email)
		require.Equal(t, tagstore.RoleUserManager, found[0].Role)
		require.Equal(t, []byte("hash"), found[0].PasswordHash)

		require.True(t, tagstore.ErrUnknownUser.Has(users.Update(ctx, alice.ID+1000, tagstore.UpdateUser{})))

		require.NoError(t, users.Delete(ctx, alice.ID))
		require.True(t, tagstore.ErrUnknownUser.Has(users.Delete(ctx, alice.ID)))

		found, err = users.GetByUsernames(ctx, []string{"alice"})
		require.NoError(t, err)
		require.Empty(t, found)
	})
}
