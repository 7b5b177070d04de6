// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package search resolves queries into the sets of objects matching them.
// Queries a local lookup can answer never reach the index: about and id
// equalities resolve against the main store and bare has-queries against
// the tag value table. Everything else is translated into the index's
// boolean syntax.
package search

import (
	"context"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/tagstore"
	"storj.io/tagstore/indexer"
	"storj.io/tagstore/query"
	"storj.io/tagstore/security"
	"storj.io/tagstore/value"
)

var (
	mon = monkit.Package()

	// ErrSearch is returned for well-formed queries that cannot be
	// resolved: malformed object ids, operator arguments of the wrong type
	// and index failures.
	ErrSearch = errs.Class("search failed")
)

// hasLimit caps how many objects a bare has-query returns from the main
// store.
const hasLimit = 10000

// Options control query resolution.
type Options struct {
	// CreateMissing creates the object of a standalone about equality when
	// no object claims the about value yet.
	CreateMissing bool
}

// Resolver resolves queries within one request. Like the security layer it
// wraps it is bound to one transaction and not safe for concurrent use.
type Resolver struct {
	sec   *security.Security
	index *indexer.Client
}

// NewResolver constructs a Resolver over the request's security layer and
// the shared index client.
func NewResolver(sec *security.Security, index *indexer.Client) *Resolver {
	return &Resolver{sec: sec, index: index}
}

// Resolve resolves each query into the ids of the objects matching it,
// keyed by query text. The acting user needs read permission on every path
// any query references; referencing a path that does not exist fails the
// whole resolution.
func (res *Resolver) Resolve(ctx context.Context, queries []string, opts Options) (_ map[string][]uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	exprs := make(map[string]query.Expr, len(queries))
	var tagPaths []string
	seen := map[string]bool{}
	for _, text := range queries {
		if _, ok := exprs[text]; ok {
			continue
		}
		expr, err := query.Parse(text)
		if err != nil {
			return nil, err
		}
		if err := legal(expr); err != nil {
			return nil, err
		}
		exprs[text] = expr
		for _, path := range query.Paths(expr) {
			if !seen[path] {
				seen[path] = true
				tagPaths = append(tagPaths, path)
			}
		}
	}
	if len(exprs) == 0 {
		return map[string][]uuid.UUID{}, nil
	}
	if err := res.sec.CheckRead(ctx, tagPaths); err != nil {
		return nil, err
	}

	result := make(map[string][]uuid.UUID, len(exprs))
	for text, expr := range exprs {
		ids, err := res.resolve(ctx, expr, opts)
		if err != nil {
			return nil, err
		}
		result[text] = ids
	}
	return result, nil
}

// resolve answers an expression locally when it has one of the special
// shapes and sends everything else to the index.
func (res *Resolver) resolve(ctx context.Context, expr query.Expr, opts Options) ([]uuid.UUID, error) {
	switch e := expr.(type) {
	case query.Has:
		return res.sec.Values.ObjectIDs(ctx, e.Path, hasLimit)
	case query.Compare:
		if e.Op == query.OpEq && e.Value.Type == value.TypeString {
			switch e.Path {
			case tagstore.AboutTagPath:
				return res.resolveAbout(ctx, e.Value.String, opts)
			case tagstore.IDTagPath:
				id, err := uuid.Parse(e.Value.String)
				if err != nil {
					return nil, ErrSearch.New("%q is not an object id", e.Value.String)
				}
				return []uuid.UUID{id}, nil
			}
		}
	}

	translated, err := Translate(expr)
	if err != nil {
		return nil, err
	}
	ids, err := res.index.Select(ctx, translated)
	if err != nil {
		return nil, ErrSearch.Wrap(err)
	}
	return ids, nil
}

func (res *Resolver) resolveAbout(ctx context.Context, about string, opts Options) ([]uuid.UUID, error) {
	found, err := res.sec.Objects.Get(ctx, []string{about})
	if err != nil {
		return nil, err
	}
	if id, ok := found[about]; ok {
		return []uuid.UUID{id}, nil
	}
	if !opts.CreateMissing {
		return nil, nil
	}
	id, err := res.sec.Objects.Create(ctx, about)
	if err != nil {
		return nil, err
	}
	return []uuid.UUID{id}, nil
}

// legal refuses has-queries on the about and id tags at any depth. Every
// object has an id and nearly every object an about value, so both would
// select the whole universe.
func legal(expr query.Expr) error {
	switch e := expr.(type) {
	case query.Has:
		if e.Path == tagstore.AboutTagPath || e.Path == tagstore.IDTagPath {
			return query.ErrIllegal.New("has %s", e.Path)
		}
	case query.And:
		return errs.Combine(legal(e.Left), legal(e.Right))
	case query.Or:
		return errs.Combine(legal(e.Left), legal(e.Right))
	case query.Except:
		return errs.Combine(legal(e.Left), legal(e.Right))
	}
	return nil
}
