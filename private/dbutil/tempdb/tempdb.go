// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package tempdb creates unique temporary databases for tests.
package tempdb

import (
	"context"
	"strings"

	"github.com/zeebo/errs"

	"storj.io/tagstore/private/dbutil"
	"storj.io/tagstore/private/dbutil/pgutil"
)

// OpenUnique opens a temporary, uniquely named database (or isolated schema)
// for testing purposes. It is expected that this will normally be used by
// way of testdb.Run() instead of calling it directly.
func OpenUnique(ctx context.Context, connURL string, namePrefix string) (*dbutil.TempDatabase, error) {
	if strings.HasPrefix(connURL, "postgres://") || strings.HasPrefix(connURL, "postgresql://") {
		return pgutil.OpenUnique(ctx, connURL, namePrefix)
	}
	return nil, errs.New("unsupported database URL %q; only postgres is supported", connURL)
}
