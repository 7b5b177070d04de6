// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/private/testrand"
	"storj.io/tagstore/tagstoredb/testdb"
	"storj.io/tagstore/value"
)

func TestTagValues(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		tagvalues := db.TagValues()
		alice := createTestUser(ctx, t, db, "alice")
		root := createTestNamespace(ctx, t, db, alice, "alice", nil)

		tagNull := createTestTag(ctx, t, db, alice, root, "alice/seen")
		tagBool := createTestTag(ctx, t, db, alice, root, "alice/liked")
		tagInt := createTestTag(ctx, t, db, alice, root, "alice/rating")
		tagFloat := createTestTag(ctx, t, db, alice, root, "alice/price")
		tagString := createTestTag(ctx, t, db, alice, root, "alice/comment")
		tagSet := createTestTag(ctx, t, db, alice, root, "alice/keywords")
		tagOpaque := createTestTag(ctx, t, db, alice, root, "alice/image")

		objectID := testrand.UUID()
		opaque := value.NewOpaque("image/png", []byte("png-bytes"))
		require.NoError(t, tagvalues.Set(ctx, []tagstore.SetTagValue{
			{ObjectID: objectID, TagID: tagNull.ID, Value: value.Null(), CreatorID: alice.ID},
			{ObjectID: objectID, TagID: tagBool.ID, Value: value.NewBool(true), CreatorID: alice.ID},
			{ObjectID: objectID, TagID: tagInt.ID, Value: value.NewInt(5), CreatorID: alice.ID},
			{ObjectID: objectID, TagID: tagFloat.ID, Value: value.NewFloat(2.5), CreatorID: alice.ID},
			{ObjectID: objectID, TagID: tagString.ID, Value: value.NewString("great"), CreatorID: alice.ID},
			{ObjectID: objectID, TagID: tagSet.ID, Value: value.NewSet([]string{"b", "a"}), CreatorID: alice.ID},
			{ObjectID: objectID, TagID: tagOpaque.ID, Value: opaque, CreatorID: alice.ID},
		}))

		allTags := []int{tagNull.ID, tagBool.ID, tagInt.ID, tagFloat.ID, tagString.ID, tagSet.ID, tagOpaque.ID}
		values, err := tagvalues.Get(ctx, []uuid.UUID{objectID}, allTags)
		require.NoError(t, err)
		require.Len(t, values, 7)

		byTag := map[int]value.Value{}
		for _, tv := range values {
			require.Equal(t, objectID, tv.ObjectID)
			require.Equal(t, alice.ID, tv.CreatorID)
			byTag[tv.TagID] = tv.Value
		}
		require.Equal(t, value.Null(), byTag[tagNull.ID])
		require.Equal(t, value.NewBool(true), byTag[tagBool.ID])
		require.Equal(t, value.NewInt(5), byTag[tagInt.ID])
		require.Equal(t, value.NewFloat(2.5), byTag[tagFloat.ID])
		require.Equal(t, value.NewString("great"), byTag[tagString.ID])
		require.True(t, value.NewSet([]string{"a", "b"}).Equal(byTag[tagSet.ID]))

		// Opaque values come back as metadata; contents live in the blob
		// store.
		stored := byTag[tagOpaque.ID]
		require.Equal(t, value.TypeOpaque, stored.Type)
		require.Equal(t, "image/png", stored.Opaque.MIMEType)
		require.Equal(t, opaque.Opaque.Size, stored.Opaque.Size)
		require.Nil(t, stored.Opaque.Contents)

		// A second write replaces the value and its type.
		require.NoError(t, tagvalues.Set(ctx, []tagstore.SetTagValue{
			{ObjectID: objectID, TagID: tagInt.ID, Value: value.NewString("changed"), CreatorID: alice.ID},
		}))
		values, err = tagvalues.Get(ctx, []uuid.UUID{objectID}, []int{tagInt.ID})
		require.NoError(t, err)
		require.Len(t, values, 1)
		require.Equal(t, value.NewString("changed"), values[0].Value)

		objectPaths, err := tagvalues.Paths(ctx, []uuid.UUID{objectID})
		require.NoError(t, err)
		require.Len(t, objectPaths, 7)
		require.Equal(t, "alice/comment", objectPaths[0].Path)

		ids, err := tagvalues.ObjectIDs(ctx, tagInt.ID, 10)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{objectID}, ids)

		// The limit caps the result.
		other := testrand.UUID()
		require.NoError(t, tagvalues.Set(ctx, []tagstore.SetTagValue{
			{ObjectID: other, TagID: tagInt.ID, Value: value.NewInt(1), CreatorID: alice.ID},
		}))
		ids, err = tagvalues.ObjectIDs(ctx, tagInt.ID, 1)
		require.NoError(t, err)
		require.Len(t, ids, 1)
	})
}

func TestTagValuesDelete(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		tagvalues := db.TagValues()
		alice := createTestUser(ctx, t, db, "alice")
		bob := createTestUser(ctx, t, db, "bob")
		root := createTestNamespace(ctx, t, db, alice, "alice", nil)
		rating := createTestTag(ctx, t, db, alice, root, "alice/rating")
		comment := createTestTag(ctx, t, db, alice, root, "alice/comment")

		first, second := testrand.UUID(), testrand.UUID()
		require.NoError(t, tagvalues.Set(ctx, []tagstore.SetTagValue{
			{ObjectID: first, TagID: rating.ID, Value: value.NewInt(5), CreatorID: alice.ID},
			{ObjectID: first, TagID: comment.ID, Value: value.NewString("x"), CreatorID: bob.ID},
			{ObjectID: second, TagID: rating.ID, Value: value.NewInt(3), CreatorID: bob.ID},
		}))

		// Deleting reports only the rows that existed.
		deleted, err := tagvalues.Delete(ctx, []tagstore.TagValueRef{
			{ObjectID: first, TagID: rating.ID},
			{ObjectID: second, TagID: comment.ID},
		})
		require.NoError(t, err)
		require.Equal(t, []tagstore.TagValueRef{{ObjectID: first, TagID: rating.ID}}, deleted)

		objects, err := tagvalues.DeleteByTags(ctx, []int{rating.ID})
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{second}, objects)

		objects, err = tagvalues.DeleteByCreator(ctx, bob.ID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{first}, objects)

		values, err := tagvalues.Get(ctx, []uuid.UUID{first, second}, []int{rating.ID, comment.ID})
		require.NoError(t, err)
		require.Empty(t, values)
	})
}

func TestTagValuesRecent(t *testing.T) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		tagvalues := db.TagValues()
		alice := createTestUser(ctx, t, db, "alice")
		bob := createTestUser(ctx, t, db, "bob")
		root := createTestNamespace(ctx, t, db, alice, "alice", nil)
		rating := createTestTag(ctx, t, db, alice, root, "alice/rating")
		comment := createTestTag(ctx, t, db, alice, root, "alice/comment")

		objectID := testrand.UUID()
		aboutOwner, err := db.Objects().Create(ctx, objectID, "Moby Dick", "moby dick")
		require.NoError(t, err)
		require.Equal(t, objectID, aboutOwner)

		require.NoError(t, tagvalues.Set(ctx, []tagstore.SetTagValue{
			{ObjectID: objectID, TagID: rating.ID, Value: value.NewInt(5), CreatorID: alice.ID},
		}))
		// created_at has microsecond resolution; keep the writes apart.
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, tagvalues.Set(ctx, []tagstore.SetTagValue{
			{ObjectID: objectID, TagID: comment.ID, Value: value.NewString("classic"), CreatorID: bob.ID},
		}))

		recent, err := tagvalues.RecentByObjects(ctx, []uuid.UUID{objectID}, 20)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		require.Equal(t, "alice/comment", recent[0].Path)
		require.Equal(t, "bob", recent[0].Username)
		require.Equal(t, "Moby Dick", recent[0].About)
		require.Equal(t, value.NewString("classic"), recent[0].Value)
		require.Equal(t, "alice/rating", recent[1].Path)

		recent, err = tagvalues.RecentByObjects(ctx, []uuid.UUID{objectID}, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, "alice/comment", recent[0].Path)

		recent, err = tagvalues.RecentByUsers(ctx, []int{alice.ID}, 20)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, "alice/rating", recent[0].Path)
		require.Equal(t, "alice", recent[0].Username)
	})
}
