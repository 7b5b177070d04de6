// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/tagstore/private/cfgstruct"
	"storj.io/tagstore/private/fpath"
	"storj.io/tagstore/private/kvstore/redis"
	"storj.io/tagstore/private/kvstore/storelogger"
	"storj.io/tagstore/private/logging"
	"storj.io/tagstore/private/process"
	"storj.io/tagstore/tagstored"
	"storj.io/tagstore/tagstoredb"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tagstore",
		Short: "Tag store server",
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the tag store server",
		RunE:  cmdRun,
	}
	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "Create config files",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}
	migrationCmd = &cobra.Command{
		Use:   "migration",
		Short: "Main store schema related commands",
	}
	migrationRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Migrate the main store schema to the latest version",
		RunE:  cmdMigrationRun,
	}
	batchIndexCmd = &cobra.Command{
		Use:   "batch-index",
		Short: "Queue object ids from a file for re-indexing",
		RunE:  cmdBatchIndex,
	}

	runCfg   tagstored.Config
	setupCfg tagstored.Config

	migrationCfg struct {
		Storage tagstoredb.Config
	}
	batchIndexCfg struct {
		Storage   tagstoredb.Config
		File      string        `help:"path of a file listing one object id per line" default:""`
		Interval  time.Duration `help:"how long to sleep between batches" default:"5s"`
		BatchSize int           `help:"how many object ids to queue per batch" default:"100"`
	}

	confDir string
)

func init() {
	defaultConfDir := fpath.ApplicationDir("tagstore")
	cfgstruct.SetupFlag(zap.L(), rootCmd, &confDir, "config-dir", defaultConfDir, "main directory for tagstore configuration")
	defaults := cfgstruct.DefaultsFlag(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(migrationCmd)
	migrationCmd.AddCommand(migrationRunCmd)
	rootCmd.AddCommand(batchIndexCmd)

	process.Bind(runCmd, &runCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(setupCmd, &setupCfg, defaults, cfgstruct.ConfDir(confDir), cfgstruct.SetupMode())
	process.Bind(migrationRunCmd, &migrationCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(batchIndexCmd, &batchIndexCfg, defaults, cfgstruct.ConfDir(confDir))
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	ctx := process.Ctx(cmd)
	log := zap.L()

	db, err := tagstoredb.Open(ctx, log.Named("db"), runCfg.Storage)
	if err != nil {
		return errs.New("error starting main store: %+v", err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()
	log.Info("connected to the main store", zap.String("url", logging.Redacted(runCfg.Storage.URL)))

	cacheClient, err := redis.OpenClientFrom(ctx, runCfg.Cache.URL, runCfg.Cache.ExpireTimeout)
	if err != nil {
		return errs.New("error opening cache store: %+v", err)
	}
	defer func() { err = errs.Combine(err, cacheClient.Close()) }()
	log.Info("connected to the cache store", zap.String("url", logging.Redacted(runCfg.Cache.URL)))

	peer, err := tagstored.New(log, db, storelogger.New(log.Named("cache:store"), cacheClient), &runCfg)
	if err != nil {
		return err
	}

	runError := peer.Run(ctx)
	closeError := peer.Close()
	return errs.Combine(runError, closeError)
}

func cmdSetup(cmd *cobra.Command, args []string) (err error) {
	setupDir, err := filepath.Abs(confDir)
	if err != nil {
		return err
	}

	valid, _ := fpath.IsValidSetupDir(setupDir)
	if !valid {
		return fmt.Errorf("tagstore configuration already exists (%v)", setupDir)
	}

	if err := os.MkdirAll(setupDir, 0700); err != nil {
		return err
	}

	return process.SaveConfigWithAllDefaults(cmd.Flags(), filepath.Join(setupDir, process.DefaultCfgFilename), nil)
}

func cmdMigrationRun(cmd *cobra.Command, args []string) (err error) {
	ctx := process.Ctx(cmd)
	log := zap.L()

	db, err := tagstoredb.Open(ctx, log.Named("migration"), migrationCfg.Storage)
	if err != nil {
		return errs.New("error connecting to main store: %+v", err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()

	if err := db.MigrateToLatest(ctx); err != nil {
		return err
	}
	log.Info("main store schema is up to date")
	return nil
}

// cmdBatchIndex re-queues object ids for the index import chore. It exists
// for recovery: after an index rebuild or a lost dirty log, feeding every
// known id back in re-indexes the store without touching tag values.
func cmdBatchIndex(cmd *cobra.Command, args []string) (err error) {
	ctx := process.Ctx(cmd)
	log := zap.L()

	if batchIndexCfg.File == "" {
		return errs.New("--file is required")
	}
	ids, err := readObjectIDs(batchIndexCfg.File)
	if err != nil {
		return err
	}
	if batchIndexCfg.BatchSize <= 0 {
		return errs.New("--batch-size must be positive")
	}

	db, err := tagstoredb.Open(ctx, log.Named("db"), batchIndexCfg.Storage)
	if err != nil {
		return errs.New("error connecting to main store: %+v", err)
	}
	defer func() { err = errs.Combine(err, db.Close()) }()

	dirty := db.DirtyObjects()
	for start := 0; start < len(ids); start += batchIndexCfg.BatchSize {
		end := min(start+batchIndexCfg.BatchSize, len(ids))
		if err := dirty.Add(ctx, ids[start:end]); err != nil {
			return err
		}
		log.Info("queued objects for re-indexing", zap.Int("queued", end), zap.Int("total", len(ids)))

		if end < len(ids) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(batchIndexCfg.Interval):
			}
		}
	}
	return nil
}

func readObjectIDs(path string) (_ []uuid.UUID, err error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { err = errs.Combine(err, fh.Close()) }()

	var ids []uuid.UUID
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := uuid.Parse(line)
		if err != nil {
			return nil, errs.New("invalid object id %q: %v", line, err)
		}
		ids = append(ids, id)
	}
	return ids, errs.Wrap(scanner.Err())
}

func main() {
	process.Exec(rootCmd)
}
