// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package dbutil contains generic database utilities.
package dbutil

import (
	"time"

	"github.com/zeebo/errs"

	"storj.io/tagstore/private/tagsql"
)

// TempDatabase is a database (or a unique schema within one) created for
// testing, with a cleanup function that removes it again.
type TempDatabase struct {
	tagsql.DB
	ConnStr string
	Schema  string
	Driver  string
	Cleanup func(tagsql.DB) error
}

// Close closes the database and deletes the temporary schema.
func (db *TempDatabase) Close() error {
	return errs.Combine(
		db.Cleanup(db.DB),
		db.DB.Close(),
	)
}

// Configure sets the connection pool limits.
func Configure(db tagsql.DB, maxConns int) {
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
}
