// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package search_test

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/tagstore"
	"storj.io/tagstore/cache"
	"storj.io/tagstore/indexer"
	"storj.io/tagstore/model"
	"storj.io/tagstore/private/httpmock"
	"storj.io/tagstore/private/kvstore/teststore"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/private/testrand"
	"storj.io/tagstore/query"
	"storj.io/tagstore/search"
	"storj.io/tagstore/security"
	"storj.io/tagstore/tagstoredb/testdb"
	"storj.io/tagstore/value"
)

type env struct {
	db        tagstore.DB
	cache     *cache.Cache
	index     *indexer.Client
	transport *httpmock.Transport
}

func run(t *testing.T, test func(ctx *testcontext.Context, t *testing.T, env *env)) {
	testdb.Run(t, func(ctx *testcontext.Context, t *testing.T, db tagstore.DB) {
		index := indexer.NewClient(zaptest.NewLogger(t), indexer.Config{URL: "http://index"})
		httpClient, transport := httpmock.NewClient()
		index.TestingSetHTTPClient(httpClient)
		test(ctx, t, &env{
			db:        db,
			cache:     cache.New(zaptest.NewLogger(t), teststore.New()),
			index:     index,
			transport: transport,
		})
	})
}

// as runs fn as username inside one request, an empty username acting
// anonymously.
func (env *env) as(ctx *testcontext.Context, t *testing.T, username string, fn func(sec *security.Security, res *search.Resolver) error) error {
	var layer *cache.Layer
	err := env.db.WithTx(ctx, func(_ context.Context, tx tagstore.DBTx) error {
		layer = cache.NewLayer(env.cache, model.New(zaptest.NewLogger(t), tx, model.TestPasswordCost))
		user, err := layer.Users.Actor(ctx, username)
		if err != nil {
			return err
		}
		sec := security.New(user, layer)
		return fn(sec, search.NewResolver(sec, env.index))
	})
	if err == nil {
		layer.Flush(ctx)
	}
	return err
}

func (env *env) createUsers(ctx *testcontext.Context, t *testing.T, usernames ...string) {
	err := env.as(ctx, t, tagstore.SystemUsername, func(sec *security.Security, _ *search.Resolver) error {
		reqs := make([]model.CreateUser, 0, len(usernames))
		for _, username := range usernames {
			reqs = append(reqs, model.CreateUser{
				Username: username,
				Password: "secret",
				FullName: "Test " + username,
				Email:    username + "@example.test",
			})
		}
		_, err := sec.Users.Create(ctx, reqs)
		return err
	})
	require.NoError(t, err)
}

// addSelect registers an index response for exactly the given translated
// query, so a select with any other translation misses and fails.
func (env *env) addSelect(translated string, ids ...uuid.UUID) {
	params := url.Values{}
	params.Set("q", translated)
	params.Set("wt", "json")
	params.Set("fl", indexer.IDField)
	params.Set("rows", "10000000")
	docs := make([]string, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, `{"fluiddb/id":"`+id.String()+`"}`)
	}
	env.transport.AddResponse("http://index/select?"+params.Encode(), httpmock.Response{
		StatusCode: 200,
		Body: `{"response":{"numFound":` + strconv.Itoa(len(ids)) +
			`,"docs":[` + strings.Join(docs, ",") + `]}}`,
	})
}

func TestAboutAndIDQueries(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, env *env) {
		env.createUsers(ctx, t, "alice")

		var objectID uuid.UUID
		require.NoError(t, env.as(ctx, t, "alice", func(sec *security.Security, _ *search.Resolver) error {
			var err error
			objectID, err = sec.Objects.Create(ctx, "Moby Dick")
			return err
		}))

		require.NoError(t, env.as(ctx, t, "alice", func(_ *security.Security, res *search.Resolver) error {
			result, err := res.Resolve(ctx, []string{
				`fluiddb/about = "Moby Dick"`,
				`fluiddb/about = "unclaimed"`,
				`fluiddb/id = "` + objectID.String() + `"`,
			}, search.Options{})
			require.NoError(t, err)
			require.Len(t, result, 3)
			require.Equal(t, []uuid.UUID{objectID}, result[`fluiddb/about = "Moby Dick"`])
			require.Empty(t, result[`fluiddb/about = "unclaimed"`])
			require.Equal(t, []uuid.UUID{objectID}, result[`fluiddb/id = "`+objectID.String()+`"`])
			return nil
		}))

		err := env.as(ctx, t, "alice", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`fluiddb/id = "not-an-id"`}, search.Options{})
			return err
		})
		require.True(t, search.ErrSearch.Has(err), "got %v", err)

		// About and id equalities resolve locally.
		require.Empty(t, env.transport.Requests())
	})
}

func TestAboutImplicitCreate(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, env *env) {
		env.createUsers(ctx, t, "alice")

		var created uuid.UUID
		require.NoError(t, env.as(ctx, t, "alice", func(_ *security.Security, res *search.Resolver) error {
			result, err := res.Resolve(ctx, []string{`fluiddb/about = "fresh"`}, search.Options{CreateMissing: true})
			require.NoError(t, err)
			require.Len(t, result[`fluiddb/about = "fresh"`], 1)
			created = result[`fluiddb/about = "fresh"`][0]
			return nil
		}))

		// The created object claims the about value durably.
		require.NoError(t, env.as(ctx, t, "alice", func(sec *security.Security, res *search.Resolver) error {
			found, err := sec.Objects.Get(ctx, []string{"fresh"})
			require.NoError(t, err)
			require.Equal(t, created, found["fresh"])

			result, err := res.Resolve(ctx, []string{`fluiddb/about = "fresh"`}, search.Options{CreateMissing: true})
			require.NoError(t, err)
			require.Equal(t, []uuid.UUID{created}, result[`fluiddb/about = "fresh"`])
			return nil
		}))

		// Anonymous requests cannot create objects, even implicitly.
		err := env.as(ctx, t, "", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`fluiddb/about = "other"`}, search.Options{CreateMissing: true})
			return err
		})
		require.True(t, tagstore.ErrPermissionDenied.Has(err), "got %v", err)
		var pde *tagstore.PermissionDeniedError
		require.True(t, errors.As(err, &pde))
		require.Equal(t, []tagstore.PathOperation{{Operation: tagstore.OpCreateObject}}, pde.Denied)
	})
}

func TestHasQueries(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, env *env) {
		env.createUsers(ctx, t, "alice", "bob")

		var first, second uuid.UUID
		require.NoError(t, env.as(ctx, t, "alice", func(sec *security.Security, _ *search.Resolver) error {
			var err error
			if first, err = sec.Objects.Create(ctx, "first"); err != nil {
				return err
			}
			if second, err = sec.Objects.Create(ctx, "second"); err != nil {
				return err
			}
			return sec.Values.Set(ctx, map[uuid.UUID]map[string]value.Value{
				first:  {"alice/rating": value.NewInt(5)},
				second: {"alice/rating": value.NewInt(3)},
			})
		}))

		require.NoError(t, env.as(ctx, t, "bob", func(_ *security.Security, res *search.Resolver) error {
			result, err := res.Resolve(ctx, []string{`has alice/rating`}, search.Options{})
			require.NoError(t, err)
			require.ElementsMatch(t, []uuid.UUID{first, second}, result[`has alice/rating`])
			return nil
		}))

		err := env.as(ctx, t, "bob", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`has alice/nothere`}, search.Options{})
			return err
		})
		require.True(t, tagstore.ErrUnknownTag.Has(err), "got %v", err)

		err = env.as(ctx, t, "bob", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`has fluiddb/about`}, search.Options{})
			return err
		})
		require.True(t, query.ErrIllegal.Has(err), "got %v", err)

		err = env.as(ctx, t, "bob", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`has alice/rating and has fluiddb/id`}, search.Options{})
			return err
		})
		require.True(t, query.ErrIllegal.Has(err), "got %v", err)

		err = env.as(ctx, t, "bob", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`has alice/rating and`}, search.Options{})
			return err
		})
		require.True(t, query.ErrParse.Has(err), "got %v", err)

		// Bare has-queries resolve from the main store.
		require.Empty(t, env.transport.Requests())
	})
}

func TestQueryPermissions(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, env *env) {
		env.createUsers(ctx, t, "alice", "bob")

		require.NoError(t, env.as(ctx, t, "alice", func(sec *security.Security, _ *search.Resolver) error {
			objectID, err := sec.Objects.Create(ctx, "guarded")
			if err != nil {
				return err
			}
			if err := sec.Values.Set(ctx, map[uuid.UUID]map[string]value.Value{
				objectID: {
					"alice/secret": value.NewInt(1),
					"alice/public": value.NewInt(2),
				},
			}); err != nil {
				return err
			}
			return sec.Permissions.Set(ctx, []model.PathPermission{{
				Path:       "alice/secret",
				Operation:  tagstore.OpReadTagValue,
				Policy:     tagstore.PolicyClosed,
				Exceptions: []string{"alice"},
			}})
		}))

		err := env.as(ctx, t, "bob", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`has alice/public and has alice/secret`}, search.Options{})
			return err
		})
		require.True(t, tagstore.ErrPermissionDenied.Has(err), "got %v", err)
		var pde *tagstore.PermissionDeniedError
		require.True(t, errors.As(err, &pde))
		require.Equal(t, []tagstore.PathOperation{
			{Path: "alice/secret", Operation: tagstore.OpReadTagValue},
		}, pde.Denied)

		// The owner still resolves it.
		require.NoError(t, env.as(ctx, t, "alice", func(_ *security.Security, res *search.Resolver) error {
			result, err := res.Resolve(ctx, []string{`has alice/secret`}, search.Options{})
			require.NoError(t, err)
			require.Len(t, result[`has alice/secret`], 1)
			return nil
		}))
	})
}

func TestIndexQueries(t *testing.T) {
	run(t, func(ctx *testcontext.Context, t *testing.T, env *env) {
		env.createUsers(ctx, t, "alice")

		require.NoError(t, env.as(ctx, t, "alice", func(sec *security.Security, _ *search.Resolver) error {
			_, err := sec.Tags.Create(ctx, []model.CreateTag{
				{Path: "alice/rating", Description: "stars"},
				{Path: "alice/title", Description: "title"},
			})
			return err
		}))

		one, two := testrand.UUID(), testrand.UUID()
		env.addSelect(`alice\/rating_tag_number:[* TO 5]`, one, two)
		env.addSelect(`(alice\/rating_tag_number:{3 TO *} AND alice\/title_tag_raw_str:Dune)`, two)

		require.NoError(t, env.as(ctx, t, "alice", func(_ *security.Security, res *search.Resolver) error {
			result, err := res.Resolve(ctx, []string{
				`alice/rating <= 5`,
				`alice/rating > 3 and alice/title = "Dune"`,
			}, search.Options{})
			require.NoError(t, err)
			require.Equal(t, []uuid.UUID{one, two}, result[`alice/rating <= 5`])
			require.Equal(t, []uuid.UUID{two}, result[`alice/rating > 3 and alice/title = "Dune"`])
			return nil
		}))
		require.Len(t, env.transport.Requests(), 2)

		// An index failure surfaces as a search failure, not as an empty
		// result.
		err := env.as(ctx, t, "alice", func(_ *security.Security, res *search.Resolver) error {
			_, err := res.Resolve(ctx, []string{`alice/title matches "whale"`}, search.Options{})
			return err
		})
		require.True(t, search.ErrSearch.Has(err), "got %v", err)
	})
}
