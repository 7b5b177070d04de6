// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package permission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"storj.io/tagstore"
	"storj.io/tagstore/permission"
	"storj.io/tagstore/private/testcontext"
)

type fakeSource struct {
	namespaces map[string]tagstore.PermissionSet
	tags       map[string]tagstore.PermissionSet
}

func (s *fakeSource) NamespacePermissions(ctx context.Context, paths []string) (map[string]tagstore.PermissionSet, error) {
	return filter(s.namespaces, paths), nil
}

func (s *fakeSource) TagPermissions(ctx context.Context, paths []string) (map[string]tagstore.PermissionSet, error) {
	return filter(s.tags, paths), nil
}

func filter(sets map[string]tagstore.PermissionSet, paths []string) map[string]tagstore.PermissionSet {
	out := map[string]tagstore.PermissionSet{}
	for _, path := range paths {
		if set, ok := sets[path]; ok {
			out[path] = set
		}
	}
	return out
}

var (
	superuser = &tagstore.User{ID: 1, Username: "fluiddb", Role: tagstore.RoleSuperuser}
	anonymous = &tagstore.User{ID: 2, Username: "anon", Role: tagstore.RoleAnonymous}
	alice     = &tagstore.User{ID: 3, Username: "alice", Role: tagstore.RoleUser}
	bob       = &tagstore.User{ID: 4, Username: "bob", Role: tagstore.RoleUser}
	manager   = &tagstore.User{ID: 5, Username: "manager", Role: tagstore.RoleUserManager}
)

func pairs(ops ...tagstore.PathOperation) []tagstore.PathOperation { return ops }

func TestNamespaceDefaults(t *testing.T) {
	set := permission.NamespaceDefaults(alice.ID)
	require.Len(t, set, len(tagstore.NamespaceOperations()))

	require.True(t, set[tagstore.OpListNamespace].Allows(bob.ID))
	require.True(t, set[tagstore.OpCreateNamespace].Allows(alice.ID))
	require.False(t, set[tagstore.OpCreateNamespace].Allows(bob.ID))
	require.False(t, set[tagstore.OpControlNamespace].Allows(bob.ID))
}

func TestTagDefaults(t *testing.T) {
	set := permission.TagDefaults(alice.ID)
	require.Len(t, set, len(tagstore.TagOperations()))

	require.True(t, set[tagstore.OpReadTagValue].Allows(bob.ID))
	require.True(t, set[tagstore.OpWriteTagValue].Allows(alice.ID))
	require.False(t, set[tagstore.OpWriteTagValue].Allows(bob.ID))
}

func TestInheritNamespace(t *testing.T) {
	parent := permission.NamespaceDefaults(alice.ID)
	parent[tagstore.OpCreateNamespace] = tagstore.Permission{
		Policy:     tagstore.PolicyClosed,
		Exceptions: []int{alice.ID, bob.ID},
	}
	parent[tagstore.OpListNamespace] = tagstore.Permission{
		Policy:     tagstore.PolicyOpen,
		Exceptions: []int{bob.ID},
	}

	child := permission.InheritNamespace(parent, bob.ID)

	// Copied verbatim, except that the creator keeps access.
	require.True(t, child[tagstore.OpCreateNamespace].Allows(alice.ID))
	require.True(t, child[tagstore.OpCreateNamespace].Allows(bob.ID))
	require.True(t, child[tagstore.OpListNamespace].Allows(bob.ID))
	require.False(t, child[tagstore.OpUpdateNamespace].Allows(bob.ID))
}

func TestInheritTag(t *testing.T) {
	parent := permission.NamespaceDefaults(alice.ID)
	set := permission.InheritTag(parent, alice.ID)
	require.Len(t, set, len(tagstore.TagOperations()))

	// Writing follows the parent's create permission, reading its listing.
	require.True(t, set[tagstore.OpWriteTagValue].Allows(alice.ID))
	require.False(t, set[tagstore.OpWriteTagValue].Allows(bob.ID))
	require.True(t, set[tagstore.OpReadTagValue].Allows(bob.ID))
	require.False(t, set[tagstore.OpControlTagValue].Allows(bob.ID))
}

func TestCheckerRoles(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	checker := permission.NewChecker(&fakeSource{})

	denied, err := checker.Check(ctx, superuser, pairs(
		tagstore.PathOperation{Path: "alice/books", Operation: tagstore.OpDeleteNamespace},
		tagstore.PathOperation{Path: "alice", Operation: tagstore.OpCreateNamespace},
	))
	require.NoError(t, err)
	require.Empty(t, denied)

	denied, err = checker.Check(ctx, anonymous, pairs(
		tagstore.PathOperation{Path: "alice/rating", Operation: tagstore.OpWriteTagValue},
		tagstore.PathOperation{Path: "", Operation: tagstore.OpCreateObject},
	))
	require.NoError(t, err)
	require.Len(t, denied, 2)

	denied, err = checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "", Operation: tagstore.OpCreateObject},
	))
	require.NoError(t, err)
	require.Empty(t, denied)

	_, err = checker.Check(ctx, nil, nil)
	require.True(t, tagstore.ErrUnauthorized.Has(err))
}

func TestCheckerUserOperations(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	checker := permission.NewChecker(&fakeSource{})

	denied, err := checker.Check(ctx, manager, pairs(
		tagstore.PathOperation{Path: "carol", Operation: tagstore.OpCreateUser},
		tagstore.PathOperation{Path: "alice", Operation: tagstore.OpDeleteUser},
	))
	require.NoError(t, err)
	require.Empty(t, denied)

	denied, err = checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "alice", Operation: tagstore.OpUpdateUser},
		tagstore.PathOperation{Path: "bob", Operation: tagstore.OpUpdateUser},
		tagstore.PathOperation{Path: "carol", Operation: tagstore.OpCreateUser},
	))
	require.NoError(t, err)
	require.Equal(t, pairs(
		tagstore.PathOperation{Path: "bob", Operation: tagstore.OpUpdateUser},
		tagstore.PathOperation{Path: "carol", Operation: tagstore.OpCreateUser},
	), denied)
}

func TestCheckerPolicies(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	source := &fakeSource{
		namespaces: map[string]tagstore.PermissionSet{
			"alice":       permission.NamespaceDefaults(alice.ID),
			"alice/books": permission.NamespaceDefaults(alice.ID),
		},
		tags: map[string]tagstore.PermissionSet{
			"alice/books/rating": permission.TagDefaults(alice.ID),
		},
	}
	checker := permission.NewChecker(source)

	// The creator passes closed lists, everyone passes open ones.
	denied, err := checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "alice/books", Operation: tagstore.OpDeleteNamespace},
		tagstore.PathOperation{Path: "alice/books/rating", Operation: tagstore.OpWriteTagValue},
	))
	require.NoError(t, err)
	require.Empty(t, denied)

	denied, err = checker.Check(ctx, bob, pairs(
		tagstore.PathOperation{Path: "alice/books", Operation: tagstore.OpListNamespace},
		tagstore.PathOperation{Path: "alice/books/rating", Operation: tagstore.OpReadTagValue},
		tagstore.PathOperation{Path: "alice/books/rating", Operation: tagstore.OpWriteTagValue},
	))
	require.NoError(t, err)
	require.Equal(t, pairs(
		tagstore.PathOperation{Path: "alice/books/rating", Operation: tagstore.OpWriteTagValue},
	), denied)

	// An exception on a closed list allows exactly the listed users.
	source.tags["alice/books/rating"][tagstore.OpWriteTagValue] = tagstore.Permission{
		Policy:     tagstore.PolicyClosed,
		Exceptions: []int{alice.ID, bob.ID},
	}
	denied, err = checker.Check(ctx, bob, pairs(
		tagstore.PathOperation{Path: "alice/books/rating", Operation: tagstore.OpWriteTagValue},
	))
	require.NoError(t, err)
	require.Empty(t, denied)

	// An empty closed list denies everyone, even the one-time creator.
	source.tags["alice/books/rating"][tagstore.OpWriteTagValue] = tagstore.Permission{
		Policy: tagstore.PolicyClosed,
	}
	denied, err = checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "alice/books/rating", Operation: tagstore.OpWriteTagValue},
	))
	require.NoError(t, err)
	require.Len(t, denied, 1)
}

func TestCheckerUnknownPaths(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	checker := permission.NewChecker(&fakeSource{
		namespaces: map[string]tagstore.PermissionSet{
			"alice": permission.NamespaceDefaults(alice.ID),
		},
	})

	_, err := checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "alice/missing", Operation: tagstore.OpListNamespace},
	))
	require.True(t, tagstore.ErrUnknownNamespace.Has(err))

	_, err = checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "alice/missing", Operation: tagstore.OpReadTagValue},
	))
	require.True(t, tagstore.ErrUnknownTag.Has(err))

	// A write of a missing tag under a missing user has no ancestor at all.
	_, err = checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "nobody/rating", Operation: tagstore.OpWriteTagValue},
	))
	require.True(t, tagstore.ErrUnknownNamespace.Has(err))
}

func TestCheckerImplicitCreation(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	checker := permission.NewChecker(&fakeSource{
		namespaces: map[string]tagstore.PermissionSet{
			"alice": permission.NamespaceDefaults(alice.ID),
		},
	})

	// Writing a missing tag, several levels down, consults the create
	// permission of the nearest existing ancestor namespace.
	denied, err := checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "alice/books/scifi/rating", Operation: tagstore.OpWriteTagValue},
		tagstore.PathOperation{Path: "alice/books/scifi", Operation: tagstore.OpCreateNamespace},
	))
	require.NoError(t, err)
	require.Empty(t, denied)

	denied, err = checker.Check(ctx, bob, pairs(
		tagstore.PathOperation{Path: "alice/books/scifi/rating", Operation: tagstore.OpWriteTagValue},
	))
	require.NoError(t, err)
	require.Len(t, denied, 1)
}

func TestCheckerRootNamespaces(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	checker := permission.NewChecker(&fakeSource{
		namespaces: map[string]tagstore.PermissionSet{
			"alice": permission.NamespaceDefaults(alice.ID),
		},
	})

	// Root namespaces belong to the user lifecycle; even their owner cannot
	// create or delete them directly.
	denied, err := checker.Check(ctx, alice, pairs(
		tagstore.PathOperation{Path: "carol", Operation: tagstore.OpCreateNamespace},
		tagstore.PathOperation{Path: "alice", Operation: tagstore.OpDeleteNamespace},
	))
	require.NoError(t, err)
	require.Len(t, denied, 2)
}

func TestCheckerVirtualIDTag(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	checker := permission.NewChecker(&fakeSource{})

	denied, err := checker.Check(ctx, anonymous, pairs(
		tagstore.PathOperation{Path: tagstore.IDTagPath, Operation: tagstore.OpReadTagValue},
	))
	require.NoError(t, err)
	require.Empty(t, denied)
}

func TestFilterReadable(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	closedSet := permission.TagDefaults(alice.ID)
	closedSet[tagstore.OpReadTagValue] = tagstore.Permission{
		Policy:     tagstore.PolicyClosed,
		Exceptions: []int{alice.ID},
	}
	checker := permission.NewChecker(&fakeSource{
		tags: map[string]tagstore.PermissionSet{
			"alice/books/rating": permission.TagDefaults(alice.ID),
			"alice/books/secret": closedSet,
		},
	})

	readable, err := checker.FilterReadable(ctx, bob, []string{
		tagstore.IDTagPath, "alice/books/rating", "alice/books/secret", "alice/gone",
	})
	require.NoError(t, err)
	require.Equal(t, []string{tagstore.IDTagPath, "alice/books/rating"}, readable)

	readable, err = checker.FilterReadable(ctx, alice, []string{"alice/books/secret"})
	require.NoError(t, err)
	require.Equal(t, []string{"alice/books/secret"}, readable)
}

func TestValidateExceptions(t *testing.T) {
	err := permission.ValidateExceptions(tagstore.OpWriteTagValue, []tagstore.User{*alice, *bob})
	require.NoError(t, err)

	err = permission.ValidateExceptions(tagstore.OpWriteTagValue, []tagstore.User{*superuser})
	require.True(t, tagstore.ErrUserNotAllowedInException.Has(err))

	err = permission.ValidateExceptions(tagstore.OpWriteTagValue, []tagstore.User{*anonymous})
	require.True(t, tagstore.ErrUserNotAllowedInException.Has(err))

	err = permission.ValidateExceptions(tagstore.OpReadTagValue, []tagstore.User{*anonymous})
	require.NoError(t, err)
}
