// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package tagstored composes the tag store server process: the main store,
// the write-through cache, the full-text index client with its import chore,
// the facade and the optional health check listener.
package tagstored

import (
	"context"
	"net"
	"runtime/pprof"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/tagstore"
	"storj.io/tagstore/cache"
	"storj.io/tagstore/facade"
	"storj.io/tagstore/indexer"
	"storj.io/tagstore/private/healthcheck"
	"storj.io/tagstore/private/kvstore"
	"storj.io/tagstore/private/lifecycle"
	"storj.io/tagstore/tagstoredb"
)

var mon = monkit.Package()

// Config is the composed configuration of every subsystem of the peer. Flag
// and config file sections follow the field names: storage, cache, index,
// service, health.
type Config struct {
	Storage tagstoredb.Config
	Cache   cache.Config
	Index   indexer.Config
	Service facade.Config
	Health  healthcheck.Config
}

// Peer is the tag store process.
//
// architecture: Peer
type Peer struct {
	Log *zap.Logger
	DB  tagstore.DB

	Servers  *lifecycle.Group
	Services *lifecycle.Group

	Cache struct {
		Store kvstore.Store
		Cache *cache.Cache
	}

	Index struct {
		Client *indexer.Client
		Chore  *indexer.Chore
	}

	Facade struct {
		Service *facade.Service
	}

	HealthCheck struct {
		Listener net.Listener
		Server   *healthcheck.Server
	}
}

// New assembles a peer over an open main store and cache store. The caller
// keeps ownership of both handles and closes them after the peer.
func New(log *zap.Logger, db tagstore.DB, cacheStore kvstore.Store, config *Config) (*Peer, error) {
	peer := &Peer{
		Log: log,
		DB:  db,

		Servers:  lifecycle.NewGroup(log.Named("servers")),
		Services: lifecycle.NewGroup(log.Named("services")),
	}

	{ // setup cache
		peer.Cache.Store = cacheStore
		peer.Cache.Cache = cache.New(log.Named("cache"), cacheStore)
	}

	{ // setup index
		peer.Index.Client = indexer.NewClient(log.Named("indexer"), config.Index)
		peer.Index.Chore = indexer.NewChore(log.Named("indexer:chore"), peer.Index.Client, db.DirtyObjects(), config.Index)

		peer.Services.Add(lifecycle.Item{
			Name:  "indexer:chore",
			Run:   peer.Index.Chore.Run,
			Close: peer.Index.Chore.Close,
		})
	}

	{ // setup facade
		peer.Facade.Service = facade.New(log.Named("facade"), db, peer.Cache.Cache, peer.Index.Client, config.Service)

		peer.Services.Add(lifecycle.Item{
			Name:  "facade",
			Close: peer.Facade.Service.Close,
		})
	}

	{ // setup health check
		if config.Health.Enabled {
			listener, err := net.Listen("tcp", config.Health.Address)
			if err != nil {
				return nil, errs.Combine(err, peer.Close())
			}
			peer.HealthCheck.Listener = listener
			peer.HealthCheck.Server = healthcheck.NewServer(log.Named("healthcheck:server"), listener,
				pingCheck{name: "database", ping: db.PingContext},
				pingCheck{name: "cache", ping: peer.Cache.Cache.Ping},
				indexCheck{client: peer.Index.Client},
			)

			peer.Servers.Add(lifecycle.Item{
				Name:  "healthcheck",
				Run:   peer.HealthCheck.Server.Run,
				Close: peer.HealthCheck.Server.Close,
			})
		}
	}

	return peer, nil
}

// Run runs the peer until it's either closed or it errors.
func (peer *Peer) Run(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	group, ctx := errgroup.WithContext(ctx)

	pprof.Do(ctx, pprof.Labels("subsystem", "tagstore"), func(ctx context.Context) {
		peer.Servers.Run(ctx, group)
		peer.Services.Run(ctx, group)

		pprof.Do(ctx, pprof.Labels("name", "subsystem-wait"), func(ctx context.Context) {
			err = group.Wait()
		})
	})
	return err
}

// Close closes all the resources.
func (peer *Peer) Close() error {
	return errs.Combine(
		peer.Servers.Close(),
		peer.Services.Close(),
	)
}

// pingCheck reports a subsystem healthy while its ping succeeds.
type pingCheck struct {
	name string
	ping func(ctx context.Context) error
}

func (check pingCheck) Name() string { return check.name }

func (check pingCheck) Healthy(ctx context.Context) bool { return check.ping(ctx) == nil }

// indexCheck reports the index healthy while its status endpoint answers.
type indexCheck struct {
	client *indexer.Client
}

func (check indexCheck) Name() string { return "index" }

func (check indexCheck) Healthy(ctx context.Context) bool {
	_, err := check.client.Status(ctx)
	return err == nil
}
