// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package pgutil

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zeebo/errs"
)

// IsConstraintError checks if given error is about constraint violation.
func IsConstraintError(err error) bool {
	return errs.IsFunc(err, func(err error) bool {
		if e, ok := err.(*pgconn.PgError); ok {
			if len(e.Code) >= 2 && e.Code[:2] == "23" {
				return true
			}
		}
		return false
	})
}

// IsUniqueViolation checks if given error is a unique constraint violation
// (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	return ErrCode(err) == "23505"
}

// ErrCode returns the SQLSTATE code associated with any postgres error in
// the chain of errors walked by unwrapping, or empty when there is none.
func ErrCode(err error) (code string) {
	errs.IsFunc(err, func(err error) bool {
		if pgerr, ok := err.(*pgconn.PgError); ok {
			code = pgerr.Code
			return true
		}
		return false
	})
	return code
}

// ConstraintName returns the violated constraint name associated with any
// postgres error in the chain, or empty when there is none.
func ConstraintName(err error) (name string) {
	errs.IsFunc(err, func(err error) bool {
		if pgerr, ok := err.(*pgconn.PgError); ok {
			name = pgerr.ConstraintName
			return true
		}
		return false
	})
	return name
}
