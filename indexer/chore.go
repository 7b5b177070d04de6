// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storj.io/tagstore"
	"storj.io/tagstore/private/sync2"
)

// Chore periodically imports changed objects into the full-text index.
//
// architecture: Chore
type Chore struct {
	log    *zap.Logger
	client *Client
	dirty  tagstore.DirtyObjects
	config Config

	Loop *sync2.Cycle
}

// NewChore creates a new index import chore.
func NewChore(log *zap.Logger, client *Client, dirty tagstore.DirtyObjects, config Config) *Chore {
	return &Chore{
		log:    log,
		client: client,
		dirty:  dirty,
		config: config,

		Loop: sync2.NewCycle(config.SyncInterval),
	}
}

// Run starts the import loop. An unreachable index is logged and retried on
// the next cycle instead of stopping the loop: queries degrade, writes keep
// working.
func (chore *Chore) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	if !chore.config.SyncEnabled {
		return nil
	}
	return chore.Loop.Run(ctx, func(ctx context.Context) error {
		if err := chore.RunOnce(ctx); err != nil {
			chore.log.Error("index import failed", zap.Error(err))
		}
		return nil
	})
}

// Close stops the import loop.
func (chore *Chore) Close() error {
	chore.Loop.Close()
	return nil
}

// RunOnce imports the objects currently marked changed and waits for the
// import to finish. It is a no-op when nothing changed.
func (chore *Chore) RunOnce(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	pending, err := chore.dirty.CountPending(ctx)
	if err != nil {
		return err
	}
	mon.IntVal("index_pending_objects").Observe(pending)
	if pending == 0 {
		return nil
	}

	chore.log.Debug("importing changed objects", zap.Int64("pending", pending))
	if err := chore.client.DataImport(ctx, false); err != nil {
		return err
	}
	return chore.waitIdle(ctx)
}

// RunClean rebuilds the index from scratch: every document is deleted and a
// clean import of all objects runs.
func (chore *Chore) RunClean(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	chore.log.Info("rebuilding the index")
	if err := chore.client.DeleteAll(ctx); err != nil {
		return err
	}
	if err := chore.client.Commit(ctx); err != nil {
		return err
	}
	if err := chore.client.DataImport(ctx, true); err != nil {
		return err
	}
	return chore.waitIdle(ctx)
}

func (chore *Chore) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(chore.config.StatusInterval)
	defer ticker.Stop()

	for {
		status, err := chore.client.Status(ctx)
		if err != nil {
			return err
		}
		if !status.Busy() {
			chore.log.Debug("import finished", zap.String("message", status.Message()))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
