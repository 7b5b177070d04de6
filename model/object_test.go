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

func TestObjects(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")

		// An empty about mints a fresh anonymous object every time.
		first, err := m.Objects.Create(ctx, alice, "")
		require.NoError(t, err)
		second, err := m.Objects.Create(ctx, alice, "")
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		// A claimed about always resolves to the same object, whatever the
		// case of the request.
		serra, err := m.Objects.Create(ctx, alice, "éric serra")
		require.NoError(t, err)
		again, err := m.Objects.Create(ctx, alice, "éric serra")
		require.NoError(t, err)
		require.Equal(t, serra, again)

		ids, err := m.Objects.Get(ctx, []string{"éric serra", "ÉRIC SERRA", "unclaimed"})
		require.NoError(t, err)
		require.Equal(t, serra, ids["éric serra"])
		require.Equal(t, serra, ids["ÉRIC SERRA"])
		require.NotContains(t, ids, "unclaimed")

		about, err := m.Values.GetOne(ctx, serra, tagstore.AboutTagPath)
		require.NoError(t, err)
		require.Equal(t, value.NewString("éric serra"), about)

		// URLs keep their exact spelling when compared.
		lower, err := m.Objects.Create(ctx, alice, "http://example.test/Path")
		require.NoError(t, err)
		upper, err := m.Objects.Create(ctx, alice, "http://example.test/PATH")
		require.NoError(t, err)
		require.NotEqual(t, lower, upper)

		_, err = m.Objects.Create(ctx, nil, "x")
		require.True(t, tagstore.ErrUnauthorized.Has(err))
	})
}

func TestObjectsAboutsAndPaths(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")
		book, err := m.Objects.Create(ctx, alice, "Moby Dick")
		require.NoError(t, err)
		bare, err := m.Objects.Create(ctx, alice, "")
		require.NoError(t, err)
		require.NoError(t, m.Values.Set(ctx, alice, map[uuid.UUID]map[string]value.Value{
			book: {"alice/rating": value.NewInt(5), "alice/comment": value.NewString("x")},
		}))

		abouts, err := m.Objects.Abouts(ctx, []uuid.UUID{book, bare})
		require.NoError(t, err)
		require.Equal(t, "Moby Dick", abouts[book])
		require.NotContains(t, abouts, bare)

		tagPaths, err := m.Objects.TagPaths(ctx, []uuid.UUID{book, bare})
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"fluiddb/about", "alice/rating", "alice/comment"}, tagPaths[book])
		require.NotContains(t, tagPaths, bare)
	})
}

func TestActivity(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, tx tagstore.DBTx, m *model.Model) {
		alice := createUser(ctx, t, m, "alice")
		bob := createUser(ctx, t, m, "bob")
		book, err := m.Objects.Create(ctx, alice, "Moby Dick")
		require.NoError(t, err)

		require.NoError(t, m.Values.Set(ctx, alice, map[uuid.UUID]map[string]value.Value{
			book: {"alice/rating": value.NewInt(5)},
		}))
		require.NoError(t, m.Values.Set(ctx, bob, map[uuid.UUID]map[string]value.Value{
			book: {"bob/opinion": value.NewString("overrated")},
		}))

		recent, err := m.Activity.GetForObjects(ctx, []uuid.UUID{book})
		require.NoError(t, err)
		require.NotEmpty(t, recent)
		for _, activity := range recent {
			require.Equal(t, book, activity.ObjectID)
			require.Equal(t, "Moby Dick", activity.About)
		}

		recent, err = m.Activity.GetForUsers(ctx, []string{"bob"})
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, "bob/opinion", recent[0].Path)
		require.Equal(t, "bob", recent[0].Username)
		require.Equal(t, value.NewString("overrated"), recent[0].Value)

		_, err = m.Activity.GetForUsers(ctx, []string{"nosuch"})
		require.True(t, tagstore.ErrUnknownUser.Has(err))

		recent, err = m.Activity.GetForObjects(ctx, nil)
		require.NoError(t, err)
		require.Empty(t, recent)
	})
}
