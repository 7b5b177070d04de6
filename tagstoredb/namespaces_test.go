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

func TestNamespaces(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		namespaces := db.Namespaces()
		alice := createTestUser(ctx, t, db, "alice")

		root := createTestNamespace(ctx, t, db, alice, "alice", nil)
		require.Nil(t, root.ParentID)

		books := createTestNamespace(ctx, t, db, alice, "alice/books", root)
		games := createTestNamespace(ctx, t, db, alice, "alice/games", root)
		require.Equal(t, root.ID, *books.ParentID)

		_, err := namespaces.Create(ctx, tagstore.CreateNamespace{
			Path:      "alice/books",
			Name:      "books",
			ParentID:  &root.ID,
			CreatorID: alice.ID,
			ObjectID:  testrand.UUID(),
		})
		require.True(t, tagstore.ErrDuplicatePath.Has(err))

		found, err := namespaces.GetByPaths(ctx, []string{"alice", "alice/books", "alice/missing"})
		require.NoError(t, err)
		require.Len(t, found, 2)

		names, err := namespaces.ChildNames(ctx, root.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"books", "games"}, names)

		children, err := namespaces.HasChildren(ctx, []int{root.ID, books.ID})
		require.NoError(t, err)
		require.True(t, children[root.ID])
		require.False(t, children[books.ID])

		require.NoError(t, namespaces.Delete(ctx, []int{books.ID, games.ID}))
		names, err = namespaces.ChildNames(ctx, root.ID)
		require.NoError(t, err)
		require.Empty(t, names)
	})
}

func TestTags(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		tags := db.Tags()
		alice := createTestUser(ctx, t, db, "alice")
		root := createTestNamespace(ctx, t, db, alice, "alice", nil)

		rating := createTestTag(ctx, t, db, alice, root, "alice/rating")
		createTestTag(ctx, t, db, alice, root, "alice/comment")

		_, err := tags.Create(ctx, tagstore.CreateTag{
			Path:        "alice/rating",
			Name:        "rating",
			NamespaceID: root.ID,
			CreatorID:   alice.ID,
			ObjectID:    testrand.UUID(),
		})
		require.True(t, tagstore.ErrDuplicatePath.Has(err))

		found, err := tags.GetByPaths(ctx, []string{"alice/rating", "alice/missing"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, rating.ID, found[0].ID)
		require.Equal(t, root.ID, found[0].NamespaceID)

		names, err := tags.NamesByNamespace(ctx, root.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"comment", "rating"}, names)

		hasTags, err := tags.HasTags(ctx, []int{root.ID, root.ID + 1000})
		require.NoError(t, err)
		require.True(t, hasTags[root.ID])
		require.False(t, hasTags[root.ID+1000])

		require.NoError(t, tags.Delete(ctx, []int{rating.ID}))
		names, err = tags.NamesByNamespace(ctx, root.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"comment"}, names)
	})
}
