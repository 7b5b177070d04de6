// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testredis provides an in-process redis server for tests.
package testredis

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// Server is an in-process redis server for testing.
type Server interface {
	// Addr returns the host:port the server listens on.
	Addr() string
	// FastForward advances the server clock, expiring entries.
	FastForward(d time.Duration)
	// Close shuts the server down.
	Close() error
}

type server struct {
	mini *miniredis.Miniredis
}

// Start starts an in-process redis server.
func Start(ctx context.Context) (Server, error) {
	mini, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	return &server{mini: mini}, nil
}

func (srv *server) Addr() string { return srv.mini.Addr() }

func (srv *server) FastForward(d time.Duration) { srv.mini.FastForward(d) }

func (srv *server) Close() error {
	srv.mini.Close()
	return nil
}
