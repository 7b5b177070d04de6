// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testdb runs data layer tests against a real postgres database.
package testdb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil/pgtest"
	"storj.io/tagstore/private/dbutil/tempdb"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/tagstoredb"
)

// Run opens a migrated database in a unique schema of the postgres picked by
// the test flags and calls test with it. The test is skipped when no
// database is configured.
func Run(t *testing.T, test func(ctx *testcontext.Context, t *testing.T, db tagstore.DB)) {
	connstr := pgtest.PickPostgres(t)

	t.Parallel()

	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	tempDB, err := tempdb.OpenUnique(ctx, connstr, "tagstore")
	require.NoError(t, err)
	defer ctx.Check(tempDB.Close)

	db := tagstoredb.New(zaptest.NewLogger(t), tempDB.DB)
	require.NoError(t, db.MigrateToLatest(ctx))

	test(ctx, t, db)
}
