// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role decides the shortcut layer of the permission engine. The numeric
// values are stored in the users table.
type Role int

const (
	// RoleAnonymous is the unauthenticated identity; it may only list
	// namespaces and read tag values.
	RoleAnonymous Role = 1
	// RoleUser is a regular account.
	RoleUser Role = 2
	// RoleUserManager may additionally create, update and delete users.
	RoleUserManager Role = 3
	// RoleSuperuser passes every permission check.
	RoleSuperuser Role = 4
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAnonymous, RoleUser, RoleUserManager, RoleSuperuser:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleAnonymous:
		return "anonymous"
	case RoleUser:
		return "user"
	case RoleUserManager:
		return "user-manager"
	case RoleSuperuser:
		return "superuser"
	}
	return "unknown-role"
}

// ParseRole parses a role name as produced by Role.String.
func ParseRole(name string) (Role, error) {
	switch name {
	case "anonymous":
		return RoleAnonymous, nil
	case "user":
		return RoleUser, nil
	case "user-manager":
		return RoleUserManager, nil
	case "superuser":
		return RoleSuperuser, nil
	}
	return 0, ErrBadRequest.New("unknown role %q", name)
}

// User is an account. Every user owns the root namespace named after it and
// is represented by an object whose about value is "@" + username.
type User struct {
	ID           int
	Username     string
	PasswordHash []byte
	FullName     string
	Email        string
	Role         Role
	ObjectID     uuid.UUID
	CreatedAt    time.Time
}

// CreateUser contains the row to insert for a new user.
type CreateUser struct {
	Username     string
	PasswordHash []byte
	FullName     string
	Email        string
	Role         Role
	ObjectID     uuid.UUID
}

// Verify checks that the request is structurally complete.
func (c CreateUser) Verify() error {
	switch {
	case c.Username == "":
		return ErrBadRequest.New("username missing")
	case !c.Role.Valid():
		return ErrBadRequest.New("role missing")
	case c.ObjectID == uuid.Nil:
		return ErrBadRequest.New("object id missing")
	}
	return nil
}

// UpdateUser contains the changes to apply to a user. Nil fields are left
// unchanged.
type UpdateUser struct {
	PasswordHash []byte
	FullName     *string
	Email        *string
	Role         *Role
}

// Users exposes methods to manage the users table.
//
// architecture: Database
type Users interface {
	// Create inserts a new user. A taken username fails with
	// ErrDuplicatePath.
	Create(ctx context.Context, user CreateUser) (*User, error)
	// GetByUsernames returns the users with the given usernames; missing
	// usernames are skipped, not errors.
	GetByUsernames(ctx context.Context, usernames []string) ([]User, error)
	// GetByIDs returns the users with the given ids; missing ids are
	// skipped.
	GetByIDs(ctx context.Context, ids []int) ([]User, error)
	// Update applies the non-nil fields of update to a user.
	Update(ctx context.Context, id int, update UpdateUser) error
	// Delete removes a user row.
	Delete(ctx context.Context, id int) error
}
