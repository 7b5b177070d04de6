// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package httpmock provides a mock http transport for tests.
package httpmock

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// Response represents a mocked HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Request records a request the transport served.
type Request struct {
	Method string
	URL    string
	Body   string
}

// Transport is a custom HTTP transport for handling mocked responses.
type Transport struct {
	responses map[string][]Response
	requests  []Request
	mutex     sync.RWMutex
}

// NewTransport creates a new instance of Transport.
func NewTransport() *Transport {
	return &Transport{
		responses: make(map[string][]Response),
	}
}

// AddResponse registers a response for a given URL.
// Multiple responses for the same URL will be returned in sequence.
func (t *Transport) AddResponse(url string, response Response) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.responses[url] = append(t.responses[url], response)
}

// Requests returns all requests served so far.
func (t *Transport) Requests() []Request {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return append([]Request{}, t.requests...)
}

// RoundTrip implements the http.RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var body string
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(data)
	}
	t.requests = append(t.requests, Request{
		Method: req.Method,
		URL:    req.URL.String(),
		Body:   body,
	})

	if responses, ok := t.responses[req.URL.String()]; ok && len(responses) > 0 {
		response := responses[0]
		// Remove the first response after using it
		t.responses[req.URL.String()] = responses[1:]

		headers := make(http.Header)
		for key, value := range response.Headers {
			headers.Set(key, value)
		}

		return &http.Response{
			StatusCode: response.StatusCode,
			Header:     headers,
			Body:       io.NopCloser(strings.NewReader(response.Body)),
			Request:    req,
		}, nil
	}

	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("Not Found")),
		Request:    req,
	}, nil
}

// NewClient creates an *http.Client configured to use the Transport.
func NewClient() (*http.Client, *Transport) {
	transport := NewTransport()
	client := &http.Client{Transport: transport}
	return client, transport
}
