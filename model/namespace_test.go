// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/model"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/value"
)

func TestNamespaces(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		objectIDs, err := m.Namespaces.Create(ctx, alice, []model.CreateNamespace{
			{Path: "alice/books", Description: "My books"},
		})
		require.NoError(t, err)
		require.Len(t, objectIDs, 1)

		infos, err := m.Namespaces.Get(ctx, []string{"alice/books"}, model.NamespaceGetOptions{Descriptions: true})
		require.NoError(t, err)
		require.Equal(t, "My books", infos["alice/books"].Description)
		require.Equal(t, objectIDs[0], infos["alice/books"].ObjectID)

		// The namespace is an object carrying the namespace system tags.
		about, err := m.Values.GetOne(ctx, objectIDs[0], tagstore.AboutTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString("Object for the namespace alice/books"), about)
		path, err := m.Values.GetOne(ctx, objectIDs[0], tagstore.NamespacePathTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString("alice/books"), path)

		require.NoError(t, m.Namespaces.Set(ctx, map[string]string{"alice/books": "Books I read"}))
		infos, err = m.Namespaces.Get(ctx, []string{"alice/books"}, model.NamespaceGetOptions{Descriptions: true})
		require.NoError(t, err)
		require.Equal(t, "Books I read", infos["alice/books"].Description)
	})
}

func TestNamespacesImplicitAncestors(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		_, err := m.Namespaces.Create(ctx, alice, []model.CreateNamespace{
			{Path: "alice/media/film/cast", Description: "Cast lists"},
		})
		require.NoError(t, err)

		// The missing levels were created on the way with a generic
		// description.
		infos, err := m.Namespaces.Get(ctx,
			[]string{"alice/media", "alice/media/film", "alice/media/film/cast"},
			model.NamespaceGetOptions{Descriptions: true})
		require.NoError(t, err)
		require.Equal(t, "Namespace created implicitly", infos["alice/media"].Description)
		require.Equal(t, "Namespace created implicitly", infos["alice/media/film"].Description)
		require.Equal(t, "Cast lists", infos["alice/media/film/cast"].Description)

		infos, err = m.Namespaces.Get(ctx, []string{"alice"}, model.NamespaceGetOptions{Namespaces: true})
		require.NoError(t, err)
		require.Equal(t, []string{"media"}, infos["alice"].Namespaces)
	})
}

func TestNamespacesContents(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		_, err := m.Namespaces.Create(ctx, alice, []model.CreateNamespace{
			{Path: "alice/books", Description: "My books"},
			{Path: "alice/films", Description: "My films"},
		})
		require.NoError(t, err)
		_, err = m.Tags.Create(ctx, alice, []model.CreateTag{
			{Path: "alice/books/rating", Description: "stars"},
			{Path: "alice/books/comment", Description: "text"},
		})
		require.NoError(t, err)

		infos, err := m.Namespaces.Get(ctx, []string{"alice", "alice/books"},
			model.NamespaceGetOptions{Namespaces: true, Tags: true})
		require.NoError(t, err)
		require.Equal(t, []string{"books", "films"}, infos["alice"].Namespaces)
		require.Empty(t, infos["alice"].Tags)
		require.Empty(t, infos["alice/books"].Namespaces)
		require.Equal(t, []string{"comment", "rating"}, infos["alice/books"].Tags)
	})
}

func TestNamespacesDelete(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		objectIDs, err := m.Namespaces.Create(ctx, alice, []model.CreateNamespace{
			{Path: "alice/books", Description: "My books"},
			{Path: "alice/books/old", Description: "Read long ago"},
		})
		require.NoError(t, err)

		err = m.Namespaces.Delete(ctx, []string{"alice/books"})
		require.True(t, tagstore.ErrNamespaceNotEmpty.Has(err))

		// One batch removes the whole subtree, children first.
		require.NoError(t, m.Namespaces.Delete(ctx, []string{"alice/books", "alice/books/old"}))
		_, err = m.Namespaces.Get(ctx, []string{"alice/books"}, model.NamespaceGetOptions{})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))

		// The object survives the path; re-creating finds it again.
		ids, err := m.Objects.Get(ctx, []string{"Object for the namespace alice/books"})
		require.NoError(t, err)
		require.Equal(t, objectIDs[0], ids["Object for the namespace alice/books"])

		created, err := m.Namespaces.Create(ctx, alice, []model.CreateNamespace{
			{Path: "alice/books", Description: "Back again"},
		})
		require.NoError(t, err)
		require.Equal(t, objectIDs[0], created[0])
	})
}

func TestNamespacesErrors(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		_, err := m.Namespaces.Create(ctx, nil, []model.CreateNamespace{{Path: "alice/books"}})
		require.True(t, tagstore.ErrUnauthorized.Has(err))
		_, err = m.Namespaces.Create(ctx, alice, nil)
		require.True(t, tagstore.ErrBadRequest.Has(err))
		_, err = m.Namespaces.Create(ctx, alice, []model.CreateNamespace{{Path: "alice//books"}})
		require.True(t, paths.Error.Has(err))

		// Roots only appear when their user is created.
		_, err = m.Namespaces.Create(ctx, alice, []model.CreateNamespace{{Path: "carol/books"}})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))

		_, err = m.Namespaces.Create(ctx, alice, []model.CreateNamespace{{Path: "alice/books", Description: "My books"}})
		require.NoError(t, err)
		_, err = m.Namespaces.Create(ctx, alice, []model.CreateNamespace{{Path: "alice/books"}})
		require.True(t, tagstore.ErrDuplicatePath.Has(err))

		_, err = m.Namespaces.Get(ctx, []string{"alice/nosuch"}, model.NamespaceGetOptions{})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))
		err = m.Namespaces.Set(ctx, map[string]string{"alice/nosuch": "x"})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))
		err = m.Namespaces.Delete(ctx, []string{"alice/nosuch"})
		require.True(t, tagstore.ErrUnknownNamespace.Has(err))
	})
}
