// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/private/testrand"
)

func createTestUser(ctx *testcontext.Context, t *testing.T, db tagstore.DB, username string) *tagstore.User {
	user, err := db.Users().Create(ctx, tagstore.CreateUser{
		Username: username,
		Role:     tagstore.RoleUser,
		ObjectID: testrand.UUID(),
	})
	require.NoError(t, err)
	return user
}

func createTestNamespace(ctx *testcontext.Context, t *testing.T, db tagstore.DB, creator *tagstore.User, path string, parent *tagstore.Namespace) *tagstore.Namespace {
	create := tagstore.CreateNamespace{
		Path:      path,
		Name:      paths.Name(path),
		CreatorID: creator.ID,
		ObjectID:  testrand.UUID(),
	}
	if parent != nil {
		create.ParentID = &parent.ID
	}
	ns, err := db.Namespaces().Create(ctx, create)
	require.NoError(t, err)
	return ns
}

func createTestTag(ctx *testcontext.Context, t *testing.T, db tagstore.DB, creator *tagstore.User, ns *tagstore.Namespace, path string) *tagstore.Tag {
	tag, err := db.Tags().Create(ctx, tagstore.CreateTag{
		Path:        path,
		Name:        paths.Name(path),
		NamespaceID: ns.ID,
		CreatorID:   creator.ID,
		ObjectID:    testrand.UUID(),
	})
	require.NoError(t, err)
	return tag
}
