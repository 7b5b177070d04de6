// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/model"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/value"
)

func TestTags(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		objectIDs, err := m.Tags.Create(ctx, alice, []model.CreateTag{
			{Path: "alice/books/rating", Description: "stars"},
		})
		require.NoError(t, err)
		require.Len(t, objectIDs, 1)

		// The containing namespace came into being on the way.
		namespaces, err := m.Namespaces.Get(ctx, []string{"alice/books"}, model.NamespaceGetOptions{Descriptions: true})
		require.NoError(t, err)
		require.Equal(t, "Namespace created implicitly", namespaces["alice/books"].Description)

		infos, err := m.Tags.Get(ctx, []string{"alice/books/rating"}, true)
		require.NoError(t, err)
		require.Equal(t, "stars", infos["alice/books/rating"].Description)
		require.Equal(t, objectIDs[0], infos["alice/books/rating"].ObjectID)

		about, err := m.Values.GetOne(ctx, objectIDs[0], tagstore.AboutTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString("Object for the attribute alice/books/rating"), about)

		require.NoError(t, m.Tags.Set(ctx, map[string]string{"alice/books/rating": "out of five"}))
		infos, err = m.Tags.Get(ctx, []string{"alice/books/rating"}, true)
		require.NoError(t, err)
		require.Equal(t, "out of five", infos["alice/books/rating"].Description)
	})
}

func TestTagsDelete(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		objectIDs, err := m.Tags.Create(ctx, alice, []model.CreateTag{
			{Path: "alice/cover", Description: "cover image"},
		})
		require.NoError(t, err)

		bookID, err := m.Objects.Create(ctx, alice, "Moby Dick")
		require.NoError(t, err)
		cover := value.NewOpaque("image/png", []byte("png-bytes"))
		require.NoError(t, m.Values.Set(ctx, alice, map[uuid.UUID]map[string]value.Value{
			bookID: {"alice/cover": cover},
		}))

		require.NoError(t, m.Tags.Delete(ctx, []string{"alice/cover"}))

		_, err = m.Tags.Get(ctx, []string{"alice/cover"}, false)
		require.True(t, tagstore.ErrUnknownTag.Has(err))
		_, err = m.Values.Get(ctx, []uuid.UUID{bookID}, []string{"alice/cover"})
		require.True(t, tagstore.ErrUnknownTag.Has(err))

		// The last link is gone, so the blob was swept.
		blobs, err := tx.OpaqueValues().Get(ctx, []string{value.FileID([]byte("png-bytes"))})
		require.NoError(t, err)
		require.Empty(t, blobs)

		// The tag object survives; re-creating the path finds it again.
		created, err := m.Tags.Create(ctx, alice, []model.CreateTag{
			{Path: "alice/cover", Description: "back again"},
		})
		require.NoError(t, err)
		require.Equal(t, objectIDs[0], created[0])
	})
}

func TestTagsErrors(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		_, err := m.Tags.Create(ctx, nil, []model.CreateTag{{Path: "alice/rating"}})
		require.True(t, tagstore.ErrUnauthorized.Has(err))
		_, err = m.Tags.Create(ctx, alice, nil)
		require.True(t, tagstore.ErrBadRequest.Has(err))
		_, err = m.Tags.Create(ctx, alice, []model.CreateTag{{Path: "alice"}})
		require.True(t, tagstore.ErrBadRequest.Has(err))
		_, err = m.Tags.Create(ctx, alice, []model.CreateTag{{Path: "carol/rating"}})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))

		_, err = m.Tags.Create(ctx, alice, []model.CreateTag{{Path: "alice/rating", Description: "stars"}})
		require.NoError(t, err)
		_, err = m.Tags.Create(ctx, alice, []model.CreateTag{{Path: "alice/rating"}})
		require.True(t, tagstore.ErrDuplicatePath.Has(err))

		_, err = m.Tags.Get(ctx, []string{"alice/nosuch"}, false)
		require.True(t, tagstore.ErrUnknownTag.Has(err))
		err = m.Tags.Set(ctx, map[string]string{"alice/nosuch": "x"})
		require.True(t, tagstore.ErrUnknownTag.Has(err))
		err = m.Tags.Delete(ctx, []string{"alice/nosuch"})
		require.True(t, tagstore.ErrUnknownTag.Has(err))

		// A namespace path cannot be deleted as a tag.
		err = m.Tags.Delete(ctx, []string{"alice"})
		require.True(t, tagstore.ErrUnknownTag.Has(err))
	})
}
