// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package facade is the entry surface for frontends. Every operation binds
// an acting user by username, runs in its own main-store transaction on a
// bounded worker pool and fails with an error carrying a stable taxonomy
// code. Cache work collected during a request is flushed only after the
// transaction commits.
package facade

import (
	"context"
	"strings"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/tagstore"
	"storj.io/tagstore/cache"
	"storj.io/tagstore/indexer"
	"storj.io/tagstore/model"
	"storj.io/tagstore/private/errs2"
	"storj.io/tagstore/private/slices2"
	"storj.io/tagstore/private/sync2"
	"storj.io/tagstore/security"
)

var (
	mon = monkit.Package()

	// Error is the error class for facade failures outside the taxonomy.
	Error = errs.Class("facade")
)

// Config configures the facade.
type Config struct {
	Concurrency  int `help:"how many requests may run store operations at once" default:"32"`
	PasswordCost int `help:"password hashing cost (0=automatic)" default:"0"`
}

// Service exposes the operations of the store to frontends.
//
// architecture: Service
type Service struct {
	log     *zap.Logger
	db      tagstore.DB
	cache   *cache.Cache
	index   *indexer.Client
	config  Config
	limiter *sync2.Limiter
}

// New constructs the facade over the shared database, cache and index
// client.
func New(log *zap.Logger, db tagstore.DB, cache *cache.Cache, index *indexer.Client, config Config) *Service {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 32
	}
	return &Service{
		log:     log,
		db:      db,
		cache:   cache,
		index:   index,
		config:  config,
		limiter: sync2.NewLimiter(concurrency),
	}
}

// Close waits for running requests to finish and refuses new ones.
func (service *Service) Close() error {
	service.limiter.Wait()
	return nil
}

// request runs fn as username on the worker pool and translates its
// failure. An empty username acts anonymously.
func (service *Service) request(ctx context.Context, username string, fn func(ctx context.Context, sec *security.Security) error) error {
	done := make(chan error, 1)
	ok := service.limiter.Go(ctx, func() {
		done <- service.transact(ctx, username, fn)
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return Error.New("service closed")
	}
	return service.translate(<-done)
}

// transact opens the request's transaction, binds the acting user and runs
// fn over a fresh layer stack. Collected cache fills and invalidations are
// flushed only after commit, so other requests never observe uncommitted
// state through the cache.
func (service *Service) transact(ctx context.Context, username string, fn func(ctx context.Context, sec *security.Security) error) error {
	var layer *cache.Layer
	err := service.db.WithTx(ctx, func(ctx context.Context, tx tagstore.DBTx) error {
		layer = cache.NewLayer(service.cache, model.New(service.log.Named("model"), tx, service.config.PasswordCost))
		user, err := layer.Users.Actor(ctx, username)
		if err != nil {
			return err
		}
		return fn(ctx, security.New(user, layer))
	})
	if err != nil {
		return err
	}
	layer.Flush(ctx)
	return nil
}

// translate wraps err with its taxonomy code. Cancellation passes through
// untranslated; failures outside the taxonomy are logged here, since the
// frontend only reports the opaque internal code.
func (service *Service) translate(err error) error {
	if err == nil || errs2.IsCanceled(err) {
		return err
	}
	code, known := codeOf(err)
	if !known {
		service.log.Error("internal error", zap.Error(err))
	}
	return &CodedError{Code: code, Err: err}
}

// cleanPath strips the surrounding slashes URL splitting leaves on paths.
// Everything else is the model's to validate.
func cleanPath(path string) string {
	return strings.Trim(path, "/")
}

func cleanPaths(tagPaths []string) []string {
	if tagPaths == nil {
		return nil
	}
	return slices2.Map(tagPaths, cleanPath)
}

func cleanKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for path, v := range m {
		out[cleanPath(path)] = v
	}
	return out
}

// Authenticate verifies a username and password and returns the stored
// user. It binds no acting user; frontends call it to establish one.
func (service *Service) Authenticate(ctx context.Context, username, password string) (_ *tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)

	var user *tagstore.User
	err = service.request(ctx, "", func(ctx context.Context, sec *security.Security) error {
		var err error
		user, err = sec.Users.Authenticate(ctx, username, password)
		return err
	})
	return user, err
}
