// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package pgutil contains helpers for working with PostgreSQL through the
// pgx stdlib driver.
package pgutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers pgx as a tagsql driver.
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/tagstore/private/dbutil"
	"storj.io/tagstore/private/tagsql"
)

var mon = monkit.Package()

// Driver is the database/sql driver name registered by pgx stdlib.
const Driver = "pgx"

// OpenUnique opens a postgres database with a temporary unique schema, which
// will be cleaned up when closed. It is expected that this should normally be
// used by way of "storj.io/tagstore/private/dbutil/tempdb".OpenUnique()
// instead of calling it directly.
func OpenUnique(ctx context.Context, connstr string, schemaPrefix string) (_ *dbutil.TempDatabase, err error) {
	defer mon.Task()(&ctx)(&err)

	schemaName := schemaPrefix + "-" + CreateRandomTestingSchemaName(8)
	connStrWithSchema := ConnstrWithSchema(connstr, schemaName)

	db, err := tagsql.Open(ctx, Driver, connStrWithSchema)
	if err != nil {
		return nil, errs.New("failed to connect to %q with driver %s: %v", connStrWithSchema, Driver, err)
	}

	if err := CreateSchema(ctx, db, schemaName); err != nil {
		return nil, errs.Combine(err, db.Close())
	}

	cleanup := func(cleanupDB tagsql.DB) error {
		return DropSchema(context.Background(), cleanupDB, schemaName)
	}

	return &dbutil.TempDatabase{
		DB:      db,
		ConnStr: connStrWithSchema,
		Schema:  schemaName,
		Driver:  Driver,
		Cleanup: cleanup,
	}, nil
}

// CreateRandomTestingSchemaName creates a random schema name string.
func CreateRandomTestingSchemaName(n int) string {
	data := make([]byte, n)
	_, _ = rand.Read(data)
	return hex.EncodeToString(data)
}

// ConnstrWithSchema adds schema to a connection string.
func ConnstrWithSchema(connstr, schema string) string {
	if strings.Contains(connstr, "?") {
		connstr += "&search_path="
	} else {
		connstr += "?search_path="
	}
	return connstr + url.QueryEscape(QuoteSchema(schema))
}

// QuoteSchema quotes a schema name for inclusion in SQL or a search_path.
func QuoteSchema(schema string) string {
	return `"` + strings.ReplaceAll(schema, `"`, `""`) + `"`
}

// CreateSchema creates a schema if it doesn't exist.
func CreateSchema(ctx context.Context, db tagsql.DB, schema string) (err error) {
	defer mon.Task()(&ctx)(&err)
	_, err = db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+QuoteSchema(schema)+`;`)
	return err
}

// DropSchema drops the named schema.
func DropSchema(ctx context.Context, db tagsql.DB, schema string) (err error) {
	defer mon.Task()(&ctx)(&err)
	_, err = db.ExecContext(ctx, `DROP SCHEMA `+QuoteSchema(schema)+` CASCADE;`)
	return err
}

// CheckApplicationName ensures that the connection string contains an
// application name, so server-side logs can attribute connections.
func CheckApplicationName(s string) (r string) {
	if !strings.Contains(s, "application_name") {
		if !strings.Contains(s, "?") {
			return s + "?application_name=tagstore"
		}
		return s + "&application_name=tagstore"
	}
	return s
}
