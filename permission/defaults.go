// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package permission

import (
	"storj.io/tagstore"
)

// NamespaceDefaults returns the permission set of a fresh root namespace:
// everything closed to the creator alone, except listing, which is open.
func NamespaceDefaults(creatorID int) tagstore.PermissionSet {
	set := make(tagstore.PermissionSet)
	for _, op := range tagstore.NamespaceOperations() {
		set[op] = closedTo(creatorID)
	}
	set[tagstore.OpListNamespace] = open()
	return set
}

// TagDefaults returns the permission set of a fresh tag when there is no
// parent to inherit from: everything closed to the creator alone, except
// reading values, which is open.
func TagDefaults(creatorID int) tagstore.PermissionSet {
	set := make(tagstore.PermissionSet)
	for _, op := range tagstore.TagOperations() {
		set[op] = closedTo(creatorID)
	}
	set[tagstore.OpReadTagValue] = open()
	return set
}

// InheritNamespace derives a child namespace's permission set from its
// parent's, copying every operation verbatim and then making sure the
// creator keeps access to what it created.
func InheritNamespace(parent tagstore.PermissionSet, creatorID int) tagstore.PermissionSet {
	set := make(tagstore.PermissionSet, len(parent))
	for _, op := range tagstore.NamespaceOperations() {
		set[op] = withCreator(parent[op], creatorID)
	}
	return set
}

// InheritTag derives a tag's permission set from its parent namespace's.
// Writing operations follow the parent's create permission, reading follows
// listing and control follows control.
func InheritTag(parent tagstore.PermissionSet, creatorID int) tagstore.PermissionSet {
	set := make(tagstore.PermissionSet)
	for op, from := range map[tagstore.Operation]tagstore.Operation{
		tagstore.OpUpdateTag:       tagstore.OpCreateNamespace,
		tagstore.OpDeleteTag:       tagstore.OpCreateNamespace,
		tagstore.OpWriteTagValue:   tagstore.OpCreateNamespace,
		tagstore.OpDeleteTagValue:  tagstore.OpCreateNamespace,
		tagstore.OpReadTagValue:    tagstore.OpListNamespace,
		tagstore.OpControlTag:      tagstore.OpControlNamespace,
		tagstore.OpControlTagValue: tagstore.OpControlNamespace,
	} {
		set[op] = withCreator(parent[from], creatorID)
	}
	return set
}

// withCreator adds the creator to closed exception lists and removes it from
// open ones, so a creator is never locked out of its own entity on creation.
func withCreator(perm tagstore.Permission, creatorID int) tagstore.Permission {
	exceptions := make([]int, 0, len(perm.Exceptions)+1)
	for _, id := range perm.Exceptions {
		if id != creatorID {
			exceptions = append(exceptions, id)
		}
	}
	if perm.Policy == tagstore.PolicyClosed {
		exceptions = append(exceptions, creatorID)
	}
	return tagstore.Permission{Policy: perm.Policy, Exceptions: exceptions}
}

func open() tagstore.Permission {
	return tagstore.Permission{Policy: tagstore.PolicyOpen, Exceptions: []int{}}
}

func closedTo(creatorID int) tagstore.Permission {
	return tagstore.Permission{Policy: tagstore.PolicyClosed, Exceptions: []int{creatorID}}
}
