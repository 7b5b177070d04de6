// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package tagstore contains the domain entities of the tag store and the
// interfaces to its main database.
//
// Objects are anonymous UUIDs. Everything known about an object is expressed
// as tag values; tags live under hierarchical, user-owned namespace paths,
// and every operation on a namespace, tag or tag value is guarded by a
// per-path permission.
package tagstore

import (
	"context"
)

// System entities created by the bootstrap migration. The fluiddb user owns
// the system namespaces and tags; the anon user is the identity of
// unauthenticated requests.
const (
	SystemUsername    = "fluiddb"
	AnonymousUsername = "anon"
)

// System tag paths. About and ID are special: about values are kept in their
// own table for uniqueness, and ID is virtual (readable on every object,
// never stored).
const (
	AboutTagPath = "fluiddb/about"
	IDTagPath    = "fluiddb/id"

	NamespacePathTagPath        = "fluiddb/namespaces/path"
	NamespaceDescriptionTagPath = "fluiddb/namespaces/description"
	TagPathTagPath              = "fluiddb/tags/path"
	TagDescriptionTagPath       = "fluiddb/tags/description"
	UserUsernameTagPath         = "fluiddb/users/username"
	UserNameTagPath             = "fluiddb/users/name"
	UserEmailTagPath            = "fluiddb/users/email"
)

// Tables groups the collection interfaces of the main store. The same set is
// available on the database itself and inside a transaction.
type Tables interface {
	Users() Users
	Namespaces() Namespaces
	Tags() Tags
	TagValues() TagValues
	Permissions() Permissions
	Objects() Objects
	OpaqueValues() OpaqueValues
	DirtyObjects() DirtyObjects
}

// DBTx is the view of the main store bound to a single transaction.
type DBTx interface {
	Tables
}

// DB is the main store.
//
// architecture: Master Database
type DB interface {
	Tables

	// WithTx runs fn inside a transaction. The transaction is committed when
	// fn returns nil and rolled back otherwise; serialization failures are
	// retried, so fn must be idempotent apart from its database writes.
	WithTx(ctx context.Context, fn func(context.Context, DBTx) error) error

	// MigrateToLatest migrates the database schema to the latest version.
	MigrateToLatest(ctx context.Context) error

	// PingContext verifies the database connection.
	PingContext(ctx context.Context) error

	Close() error
}
