// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"
)

// Operation enumerates everything a user can ask the system to do. The
// numeric values are stored in permission rows and in the cache, so they must
// never be renumbered.
type Operation int

const (
	// OpCreateNamespace is creating a child namespace under a namespace.
	OpCreateNamespace Operation = 1
	// OpUpdateNamespace is changing the description of a namespace.
	OpUpdateNamespace Operation = 2
	// OpDeleteNamespace is deleting a namespace.
	OpDeleteNamespace Operation = 3
	// OpListNamespace is listing the contents of a namespace.
	OpListNamespace Operation = 4
	// OpControlNamespace is reading or changing the permissions of a namespace.
	OpControlNamespace Operation = 5

	// OpUpdateTag is changing the description of a tag.
	OpUpdateTag Operation = 6
	// OpDeleteTag is deleting a tag together with all its values.
	OpDeleteTag Operation = 7
	// OpControlTag is reading or changing the tag permissions of a tag.
	OpControlTag Operation = 8

	// OpWriteTagValue is putting a value of a tag onto an object.
	OpWriteTagValue Operation = 9
	// OpReadTagValue is reading the value of a tag on an object.
	OpReadTagValue Operation = 10
	// OpDeleteTagValue is removing the value of a tag from an object.
	OpDeleteTagValue Operation = 11
	// OpControlTagValue is reading or changing the tag-value permissions of a tag.
	OpControlTagValue Operation = 12

	// OpCreateUser, OpDeleteUser and OpUpdateUser manage user accounts. They
	// are decided by role alone and have no permission rows.
	OpCreateUser Operation = 13
	// OpDeleteUser is deleting a user account.
	OpDeleteUser Operation = 14
	// OpUpdateUser is changing a user account.
	OpUpdateUser Operation = 15

	// OpCreateObject is minting a new object. Granted to every
	// authenticated role; it has no permission rows.
	OpCreateObject Operation = 16
)

// NamespaceOperations returns the operations that have a permission row on
// every namespace.
func NamespaceOperations() []Operation {
	return []Operation{
		OpCreateNamespace, OpUpdateNamespace, OpDeleteNamespace,
		OpListNamespace, OpControlNamespace,
	}
}

// TagOperations returns the operations that have a permission row on every
// tag. Tag-value operations are permissioned on the tag they belong to.
func TagOperations() []Operation {
	return []Operation{
		OpUpdateTag, OpDeleteTag, OpControlTag,
		OpWriteTagValue, OpReadTagValue, OpDeleteTagValue, OpControlTagValue,
	}
}

// OnNamespace reports whether the operation is checked against namespace
// permissions.
func (op Operation) OnNamespace() bool {
	switch op {
	case OpCreateNamespace, OpUpdateNamespace, OpDeleteNamespace, OpListNamespace, OpControlNamespace:
		return true
	}
	return false
}

// OnTag reports whether the operation is checked against tag permissions.
func (op Operation) OnTag() bool {
	switch op {
	case OpUpdateTag, OpDeleteTag, OpControlTag,
		OpWriteTagValue, OpReadTagValue, OpDeleteTagValue, OpControlTagValue:
		return true
	}
	return false
}

// OnUser reports whether the operation manages user accounts.
func (op Operation) OnUser() bool {
	switch op {
	case OpCreateUser, OpDeleteUser, OpUpdateUser:
		return true
	}
	return false
}

// AllowsAnonymous reports whether the anonymous user may ever perform the
// operation, and with it whether the anonymous user may appear on the
// operation's exception lists.
func (op Operation) AllowsAnonymous() bool {
	return op == OpListNamespace || op == OpReadTagValue
}

// Control returns the control operation guarding reads and writes of the
// permission for op, or zero when op has no permission rows.
func (op Operation) Control() Operation {
	switch {
	case op.OnNamespace():
		return OpControlNamespace
	case op == OpUpdateTag || op == OpDeleteTag || op == OpControlTag:
		return OpControlTag
	case op.OnTag():
		return OpControlTagValue
	}
	return 0
}

// String implements fmt.Stringer.
func (op Operation) String() string {
	switch op {
	case OpCreateNamespace:
		return "create-namespace"
	case OpUpdateNamespace:
		return "update-namespace"
	case OpDeleteNamespace:
		return "delete-namespace"
	case OpListNamespace:
		return "list-namespace"
	case OpControlNamespace:
		return "control-namespace"
	case OpUpdateTag:
		return "update-tag"
	case OpDeleteTag:
		return "delete-tag"
	case OpControlTag:
		return "control-tag"
	case OpWriteTagValue:
		return "write-tag-value"
	case OpReadTagValue:
		return "read-tag-value"
	case OpDeleteTagValue:
		return "delete-tag-value"
	case OpControlTagValue:
		return "control-tag-value"
	case OpCreateUser:
		return "create-user"
	case OpDeleteUser:
		return "delete-user"
	case OpUpdateUser:
		return "update-user"
	case OpCreateObject:
		return "create-object"
	}
	return "unknown-operation"
}

// Policy decides how an exception list is read: an open operation is allowed
// to everyone except the listed users, a closed one only to them. The numeric
// values are stored in permission rows and in the cache.
type Policy int

const (
	// PolicyOpen allows everyone except the exception list.
	PolicyOpen Policy = 1
	// PolicyClosed allows only the exception list.
	PolicyClosed Policy = 2
)

// Valid reports whether the policy is one of the two known policies.
func (p Policy) Valid() bool {
	return p == PolicyOpen || p == PolicyClosed
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case PolicyOpen:
		return "open"
	case PolicyClosed:
		return "closed"
	}
	return "unknown-policy"
}

// Permission is the stored permission of one operation on one entity.
type Permission struct {
	Policy     Policy
	Exceptions []int // user ids
}

// Allows reports whether the permission allows the given user.
func (p Permission) Allows(userID int) bool {
	for _, id := range p.Exceptions {
		if id == userID {
			return p.Policy == PolicyClosed
		}
	}
	return p.Policy == PolicyOpen
}

// PermissionSet holds the full set of permissions of one namespace or tag.
type PermissionSet map[Operation]Permission

// Clone returns a deep copy of the set.
func (set PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(set))
	for op, perm := range set {
		exceptions := make([]int, len(perm.Exceptions))
		copy(exceptions, perm.Exceptions)
		out[op] = Permission{Policy: perm.Policy, Exceptions: exceptions}
	}
	return out
}

// PathOperation names one operation on one path, the unit the permission
// engine checks and denies.
type PathOperation struct {
	Path      string
	Operation Operation
}

// Permissions exposes methods to manage the permission rows of namespaces
// and tags.
//
// architecture: Database
type Permissions interface {
	// GetNamespace returns the permission sets of the given namespaces.
	GetNamespace(ctx context.Context, namespaceIDs []int) (map[int]PermissionSet, error)
	// GetTag returns the permission sets of the given tags.
	GetTag(ctx context.Context, tagIDs []int) (map[int]PermissionSet, error)
	// SetNamespace stores a full permission set for a namespace.
	SetNamespace(ctx context.Context, namespaceID int, set PermissionSet) error
	// SetTag stores a full permission set for a tag.
	SetTag(ctx context.Context, tagID int, set PermissionSet) error
	// UpdateNamespace replaces the permission of a single operation on a
	// namespace.
	UpdateNamespace(ctx context.Context, namespaceID int, op Operation, perm Permission) error
	// UpdateTag replaces the permission of a single operation on a tag.
	UpdateTag(ctx context.Context, tagID int, op Operation, perm Permission) error
}
