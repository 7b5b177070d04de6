// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package facade

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/search"
	"storj.io/tagstore/security"
	"storj.io/tagstore/value"
)

// ResolveQueries resolves each query into the ids of the objects matching
// it, keyed by query text.
func (service *Service) ResolveQueries(ctx context.Context, username string, queries []string) (_ map[string][]uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[string][]uuid.UUID
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = search.NewResolver(sec, service.index).Resolve(ctx, queries, search.Options{})
		return err
	})
	return result, err
}

// QueryValues resolves the queries and returns the values of the given
// paths on every matched object. With a nil path list the readable paths
// are returned instead.
func (service *Service) QueryValues(ctx context.Context, username string, queries []string, tagPaths []string) (_ map[uuid.UUID]map[string]value.Value, err error) {
	defer mon.Task()(&ctx)(&err)

	tagPaths = cleanPaths(tagPaths)
	var result map[uuid.UUID]map[string]value.Value
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		resolved, err := search.NewResolver(sec, service.index).Resolve(ctx, queries, search.Options{})
		if err != nil {
			return err
		}
		objectIDs := unionIDs(resolved)
		if len(objectIDs) == 0 {
			result = map[uuid.UUID]map[string]value.Value{}
			return nil
		}
		result, err = sec.Values.Get(ctx, objectIDs, tagPaths)
		return err
	})
	return result, err
}

// SetQueryValues resolves each query and writes its values onto every
// matched object. A standalone about equality matching no object creates
// and claims the object first, so writes keyed by about values land on
// fresh objects.
func (service *Service) SetQueryValues(ctx context.Context, username string, writes map[string]map[string]value.Value) (err error) {
	defer mon.Task()(&ctx)(&err)

	cleaned := make(map[string]map[string]value.Value, len(writes))
	queries := make([]string, 0, len(writes))
	for text, byPath := range writes {
		cleaned[text] = cleanKeys(byPath)
		queries = append(queries, text)
	}
	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		resolved, err := search.NewResolver(sec, service.index).Resolve(ctx, queries, search.Options{CreateMissing: true})
		if err != nil {
			return err
		}
		expanded := make(map[uuid.UUID]map[string]value.Value)
		for text, byPath := range cleaned {
			for _, objectID := range resolved[text] {
				inner := expanded[objectID]
				if inner == nil {
					inner = make(map[string]value.Value, len(byPath))
					expanded[objectID] = inner
				}
				for path, v := range byPath {
					inner[path] = v
				}
			}
		}
		if len(expanded) == 0 {
			return nil
		}
		return sec.Values.Set(ctx, expanded)
	})
}

// DeleteQueryValues resolves the queries and removes the values of the
// given paths from every matched object.
func (service *Service) DeleteQueryValues(ctx context.Context, username string, queries []string, tagPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	tagPaths = cleanPaths(tagPaths)
	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		resolved, err := search.NewResolver(sec, service.index).Resolve(ctx, queries, search.Options{})
		if err != nil {
			return err
		}
		var refs []tagstore.ObjectPath
		for _, objectID := range unionIDs(resolved) {
			for _, path := range tagPaths {
				refs = append(refs, tagstore.ObjectPath{ObjectID: objectID, Path: path})
			}
		}
		if len(refs) == 0 {
			return nil
		}
		return sec.Values.Delete(ctx, refs)
	})
}

func unionIDs(resolved map[string][]uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, matched := range resolved {
		for _, id := range matched {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
