// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/permission"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/tagstoredb/testdb"
)

func TestPermissions(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		permissions := db.Permissions()
		alice := createTestUser(ctx, t, db, "alice")
		bob := createTestUser(ctx, t, db, "bob")
		root := createTestNamespace(ctx, t, db, alice, "alice", nil)
		rating := createTestTag(ctx, t, db, alice, root, "alice/rating")

		require.NoError(t, permissions.SetNamespace(ctx, root.ID, permission.NamespaceDefaults(alice.ID)))
		require.NoError(t, permissions.SetTag(ctx, rating.ID, permission.TagDefaults(alice.ID)))

		sets, err := permissions.GetNamespace(ctx, []int{root.ID, root.ID + 1000})
		require.NoError(t, err)
		require.Len(t, sets, 1)
		set := sets[root.ID]
		require.Len(t, set, len(tagstore.NamespaceOperations()))
		require.Equal(t, tagstore.PolicyOpen, set[tagstore.OpListNamespace].Policy)
		require.Empty(t, set[tagstore.OpListNamespace].Exceptions)
		require.Equal(t, tagstore.PolicyClosed, set[tagstore.OpCreateNamespace].Policy)
		require.Equal(t, []int{alice.ID}, set[tagstore.OpCreateNamespace].Exceptions)

		tagSets, err := permissions.GetTag(ctx, []int{rating.ID})
		require.NoError(t, err)
		require.Len(t, tagSets[rating.ID], len(tagstore.TagOperations()))

		// Updating a single operation leaves the rest of the set alone.
		require.NoError(t, permissions.UpdateNamespace(ctx, root.ID, tagstore.OpCreateNamespace, tagstore.Permission{
			Policy:     tagstore.PolicyClosed,
			Exceptions: []int{alice.ID, bob.ID},
		}))
		sets, err = permissions.GetNamespace(ctx, []int{root.ID})
		require.NoError(t, err)
		set = sets[root.ID]
		require.Equal(t, []int{alice.ID, bob.ID}, set[tagstore.OpCreateNamespace].Exceptions)
		require.Equal(t, tagstore.PolicyOpen, set[tagstore.OpListNamespace].Policy)

		require.NoError(t, permissions.UpdateTag(ctx, rating.ID, tagstore.OpReadTagValue, tagstore.Permission{
			Policy:     tagstore.PolicyClosed,
			Exceptions: []int{},
		}))
		tagSets, err = permissions.GetTag(ctx, []int{rating.ID})
		require.NoError(t, err)
		require.Equal(t, tagstore.PolicyClosed, tagSets[rating.ID][tagstore.OpReadTagValue].Policy)
		require.Empty(t, tagSets[rating.ID][tagstore.OpReadTagValue].Exceptions)

		// Updating permissions of something that does not exist fails.
		err = permissions.UpdateNamespace(ctx, root.ID+1000, tagstore.OpCreateNamespace, tagstore.Permission{Policy: tagstore.PolicyOpen})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))
		err = permissions.UpdateTag(ctx, rating.ID+1000, tagstore.OpReadTagValue, tagstore.Permission{Policy: tagstore.PolicyOpen})
		require.True(t, tagstore.ErrUnknownTag.Has(err))

		// Deleting the namespace and tag removes their permission rows.
		require.NoError(t, db.Tags().Delete(ctx, []int{rating.ID}))
		require.NoError(t, db.Namespaces().Delete(ctx, []int{root.ID}))
		sets, err = permissions.GetNamespace(ctx, []int{root.ID})
		require.NoError(t, err)
		require.Empty(t, sets)
		tagSets, err = permissions.GetTag(ctx, []int{rating.ID})
		require.NoError(t, err)
		require.Empty(t, tagSets)
	})
}
