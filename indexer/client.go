// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	mon = monkit.Package()

	// Error is the error class for index client failures.
	Error = errs.Class("index client")
)

// selectRows bounds how many documents a single select may return. The
// index defaults to ten, which is useless for resolving queries.
const selectRows = 10000000

// Config configures the connection to the full-text index and the import of
// changed objects.
type Config struct {
	URL            string        `help:"base url of the full-text index core" default:"http://localhost:8983/solr/tagstore"`
	Shards         string        `help:"comma separated shard addresses for distributed selects" default:""`
	RequestTimeout time.Duration `help:"timeout of a single index request" default:"1m0s"`
	SyncEnabled    bool          `help:"set if the periodic import of changed objects is enabled" default:"true"`
	SyncInterval   time.Duration `help:"the time between imports of changed objects" releaseDefault:"1m0s" devDefault:"10s"`
	StatusInterval time.Duration `help:"the time between polls of a running import" default:"1s"`
}

// Client wraps the index's JSON/HTTP protocol.
//
// architecture: Client
type Client struct {
	log    *zap.Logger
	config Config
	http   *http.Client
}

// NewClient constructs an index client.
func NewClient(log *zap.Logger, config Config) *Client {
	return &Client{
		log:    log,
		config: config,
		http:   &http.Client{Timeout: config.RequestTimeout},
	}
}

// TestingSetHTTPClient replaces the underlying http client, for tests.
func (client *Client) TestingSetHTTPClient(httpClient *http.Client) {
	client.http = httpClient
}

// Update posts documents into the index. They become visible to selects
// after the next Commit.
func (client *Client) Update(ctx context.Context, docs []Document) (err error) {
	defer mon.Task()(&ctx)(&err)

	body, err := json.Marshal(docs)
	if err != nil {
		return Error.Wrap(err)
	}
	return client.post(ctx, body)
}

// Commit makes every previous update visible to selects.
func (client *Client) Commit(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.post(ctx, []byte(`{"commit":{}}`))
}

// DeleteAll removes every document from the index. The deletion becomes
// visible after the next Commit.
func (client *Client) DeleteAll(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.post(ctx, []byte(`{"delete":{"query":"*:*"}}`))
}

// Select runs a query in the index's boolean syntax and returns the ids of
// the matching objects.
func (client *Client) Select(ctx context.Context, query string) (ids []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	params := url.Values{}
	params.Set("q", query)
	params.Set("wt", "json")
	params.Set("fl", IDField)
	params.Set("rows", strconv.Itoa(selectRows))
	if client.config.Shards != "" {
		params.Set("shards", client.config.Shards)
	}

	var response struct {
		Response struct {
			Docs []map[string]interface{} `json:"docs"`
		} `json:"response"`
	}
	if err := client.get(ctx, "/select?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	ids = make([]uuid.UUID, 0, len(response.Response.Docs))
	for _, doc := range response.Response.Docs {
		raw, ok := doc[IDField].(string)
		if !ok {
			return nil, Error.New("document without %s field", IDField)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DataImport asks the index to import objects from the main store: all of
// them when clean, otherwise only the ones marked changed. The import runs
// in the background; poll Status for completion.
func (client *Client) DataImport(ctx context.Context, clean bool) (err error) {
	defer mon.Task()(&ctx)(&err)

	params := url.Values{}
	params.Set("command", "full-import")
	params.Set("clean", strconv.FormatBool(clean))
	params.Set("commit", "true")
	return client.get(ctx, "/dataimport?"+params.Encode(), nil)
}

// Status is the state of the index's import handler.
type Status struct {
	State    string            `json:"status"`
	Messages map[string]string `json:"statusMessages"`
}

// Busy reports whether an import is still running.
func (s Status) Busy() bool { return s.State == "busy" }

// Message returns the import handler's completion message, when present.
func (s Status) Message() string { return s.Messages[""] }

// Status returns the state of the import handler.
func (client *Client) Status(ctx context.Context) (status Status, err error) {
	defer mon.Task()(&ctx)(&err)

	err = client.get(ctx, "/dataimport?command=status", &status)
	return status, err
}

func (client *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.config.URL+"/update", bytes.NewReader(body))
	if err != nil {
		return Error.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return client.do(req, nil)
}

func (client *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.config.URL+path, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	return client.do(req, out)
}

func (client *Client) do(req *http.Request, out interface{}) error {
	resp, err := client.http.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Error.Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return Error.New("%s: unexpected status %d: %s", req.URL.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return Error.Wrap(json.Unmarshal(body, out))
}
