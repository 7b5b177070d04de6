// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/tagstore/indexer"
	"storj.io/tagstore/private/httpmock"
	"storj.io/tagstore/private/testcontext"
	"storj.io/tagstore/private/testrand"
	"storj.io/tagstore/value"
)

func newTestClient(t *testing.T) (*indexer.Client, *httpmock.Transport) {
	client := indexer.NewClient(zaptest.NewLogger(t), indexer.Config{
		URL: "http://index",
	})
	httpClient, transport := httpmock.NewClient()
	client.TestingSetHTTPClient(httpClient)
	return client, transport
}

func TestBuildDocument(t *testing.T) {
	id := testrand.UUID()
	doc := indexer.BuildDocument(id, map[string]value.Value{
		"alice/rating": value.NewInt(5),
		"alice/weight": value.NewFloat(1.5),
		"alice/title":  value.NewString("Dune"),
		"alice/genres": value.NewSet([]string{"sf", "fantasy"}),
		"alice/seen":   value.Null(),
		"alice/done":   value.NewBool(true),
		"alice/cover":  value.NewOpaque("image/png", []byte("png")),
	})

	require.Equal(t, id.String(), doc[indexer.IDField])
	require.ElementsMatch(t, []string{
		"alice/rating", "alice/weight", "alice/title", "alice/genres",
		"alice/seen", "alice/done", "alice/cover",
	}, doc[indexer.PathsField])

	require.Equal(t, int64(5), doc["alice/rating"+indexer.SuffixNumber])
	require.Equal(t, 1.5, doc["alice/weight"+indexer.SuffixNumber])
	require.Equal(t, "Dune", doc["alice/title"+indexer.SuffixRawString])
	require.Equal(t, "Dune", doc["alice/title"+indexer.SuffixFullText])
	require.Equal(t, []string{"sf", "fantasy"}, doc["alice/genres"+indexer.SuffixStringSet])
	require.Equal(t, "sf fantasy", doc["alice/genres"+indexer.SuffixFullText])
	require.Equal(t, false, doc["alice/seen"+indexer.SuffixNull])
	require.Equal(t, true, doc["alice/done"+indexer.SuffixBool])
	require.Equal(t, value.FileID([]byte("png")), doc["alice/cover"+indexer.SuffixBinary])
}

func TestEscaping(t *testing.T) {
	require.Equal(t, `a\:b\*c\ d`, indexer.EscapeTerm("a:b*c d"))
	require.Equal(t, `"say \"hi\" \\"`, indexer.QuoteTerm(`say "hi" \`))
	require.Equal(t, `alice\/books\/rating`, indexer.EscapeField("alice/books/rating"))
}

func TestClientSelect(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	client, transport := newTestClient(t)

	one, two := testrand.UUID(), testrand.UUID()
	params := url.Values{}
	params.Set("q", `paths:"alice/rating"`)
	params.Set("wt", "json")
	params.Set("fl", indexer.IDField)
	params.Set("rows", "10000000")
	transport.AddResponse("http://index/select?"+params.Encode(), httpmock.Response{
		StatusCode: 200,
		Body: `{"response":{"numFound":2,"docs":[` +
			`{"fluiddb/id":"` + one.String() + `"},` +
			`{"fluiddb/id":"` + two.String() + `"}]}}`,
	})

	ids, err := client.Select(ctx, `paths:"alice/rating"`)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{one, two}, ids)

	// An unreachable index surfaces as an error, not as an empty result.
	_, err = client.Select(ctx, `other`)
	require.Error(t, err)
}

func TestClientUpdate(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	client, transport := newTestClient(t)
	transport.AddResponse("http://index/update", httpmock.Response{StatusCode: 200, Body: `{}`})
	transport.AddResponse("http://index/update", httpmock.Response{StatusCode: 200, Body: `{}`})
	transport.AddResponse("http://index/update", httpmock.Response{StatusCode: 200, Body: `{}`})

	id := testrand.UUID()
	err := client.Update(ctx, []indexer.Document{
		indexer.BuildDocument(id, map[string]value.Value{"alice/rating": value.NewInt(5)}),
	})
	require.NoError(t, err)

	require.NoError(t, client.Commit(ctx))
	require.NoError(t, client.DeleteAll(ctx))

	requests := transport.Requests()
	require.Len(t, requests, 3)
	require.Contains(t, requests[0].Body, id.String())
	require.Contains(t, requests[0].Body, `"alice/rating_tag_number":5`)
	require.Equal(t, `{"commit":{}}`, requests[1].Body)
	require.Equal(t, `{"delete":{"query":"*:*"}}`, requests[2].Body)
}

func TestClientStatus(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	client, transport := newTestClient(t)
	transport.AddResponse("http://index/dataimport?command=status", httpmock.Response{
		StatusCode: 200,
		Body:       `{"status":"busy","statusMessages":{}}`,
	})
	transport.AddResponse("http://index/dataimport?command=status", httpmock.Response{
		StatusCode: 200,
		Body:       `{"status":"idle","statusMessages":{"":"Indexing completed. Added/Updated: 2 documents."}}`,
	})

	status, err := client.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Busy())

	status, err = client.Status(ctx)
	require.NoError(t, err)
	require.False(t, status.Busy())
	require.Contains(t, status.Message(), "Indexing completed")
}

type fakeDirty struct {
	pending int64
}

func (f *fakeDirty) Add(ctx context.Context, objectIDs []uuid.UUID) error { return nil }

func (f *fakeDirty) CountPending(ctx context.Context) (int64, error) { return f.pending, nil }

func choreConfig() indexer.Config {
	return indexer.Config{
		URL:            "http://index",
		SyncEnabled:    true,
		SyncInterval:   time.Hour,
		StatusInterval: time.Millisecond,
	}
}

func TestChoreRunOnce(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)
	client := indexer.NewClient(log, choreConfig())
	httpClient, transport := httpmock.NewClient()
	client.TestingSetHTTPClient(httpClient)

	transport.AddResponse("http://index/dataimport?clean=false&command=full-import&commit=true",
		httpmock.Response{StatusCode: 200, Body: `{}`})
	transport.AddResponse("http://index/dataimport?command=status",
		httpmock.Response{StatusCode: 200, Body: `{"status":"busy"}`})
	transport.AddResponse("http://index/dataimport?command=status",
		httpmock.Response{StatusCode: 200, Body: `{"status":"idle","statusMessages":{"":"done"}}`})

	chore := indexer.NewChore(log, client, &fakeDirty{pending: 3}, choreConfig())
	require.NoError(t, chore.RunOnce(ctx))

	var imports, polls int
	for _, req := range transport.Requests() {
		switch {
		case strings.Contains(req.URL, "full-import"):
			imports++
		case strings.Contains(req.URL, "command=status"):
			polls++
		}
	}
	require.Equal(t, 1, imports)
	require.Equal(t, 2, polls)
}

func TestChoreRunOnceNothingPending(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)
	client := indexer.NewClient(log, choreConfig())
	httpClient, transport := httpmock.NewClient()
	client.TestingSetHTTPClient(httpClient)

	chore := indexer.NewChore(log, client, &fakeDirty{pending: 0}, choreConfig())
	require.NoError(t, chore.RunOnce(ctx))
	require.Empty(t, transport.Requests())
}

func TestChoreRunClean(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	log := zaptest.NewLogger(t)
	client := indexer.NewClient(log, choreConfig())
	httpClient, transport := httpmock.NewClient()
	client.TestingSetHTTPClient(httpClient)

	transport.AddResponse("http://index/update", httpmock.Response{StatusCode: 200, Body: `{}`})
	transport.AddResponse("http://index/update", httpmock.Response{StatusCode: 200, Body: `{}`})
	transport.AddResponse("http://index/dataimport?clean=true&command=full-import&commit=true",
		httpmock.Response{StatusCode: 200, Body: `{}`})
	transport.AddResponse("http://index/dataimport?command=status",
		httpmock.Response{StatusCode: 200, Body: `{"status":"idle"}`})

	chore := indexer.NewChore(log, client, &fakeDirty{pending: 0}, choreConfig())
	require.NoError(t, chore.RunClean(ctx))

	requests := transport.Requests()
	require.Len(t, requests, 4)
	require.Equal(t, `{"delete":{"query":"*:*"}}`, requests[0].Body)
	require.Equal(t, `{"commit":{}}`, requests[1].Body)
}