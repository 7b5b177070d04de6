// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package permission

import (
	"storj.io/tagstore"
)

// ValidateExceptions checks the users named on an exception list for op. A
// superuser never appears on one, since it passes every check anyway, and
// the anonymous user only for the operations it may perform at all.
func ValidateExceptions(op tagstore.Operation, users []tagstore.User) error {
	for _, user := range users {
		switch {
		case user.Role == tagstore.RoleSuperuser:
			return tagstore.ErrUserNotAllowedInException.New("%q is a superuser", user.Username)
		case user.Role == tagstore.RoleAnonymous && !op.AllowsAnonymous():
			return tagstore.ErrUserNotAllowedInException.New("%q is anonymous and cannot %v", user.Username, op)
		}
	}
	return nil
}
