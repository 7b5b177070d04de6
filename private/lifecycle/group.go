// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package lifecycle allows controlling a group of items.
package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"runtime"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/tagstore/private/errs2"
)

var mon = monkit.Package()

// Group implements a collection of items that have a
// concurrent start and are closed in reverse order.
type Group struct {
	log   *zap.Logger
	items []Item
}

// Item is the lifecycle item that group runs and closes.
type Item struct {
	Name  string
	Run   func(ctx context.Context) error
	Close func() error
}

// NewGroup creates a new lifecycle group.
func NewGroup(log *zap.Logger) *Group {
	return &Group{log: log}
}

// Add adds item to the group.
func (group *Group) Add(item Item) {
	group.items = append(group.items, item)
}

// Run starts all items concurrently under group g.
func (group *Group) Run(ctx context.Context, g *errgroup.Group) {
	defer mon.Task()(&ctx)(nil)

	var started []string
	for _, item := range group.items {
		item := item
		started = append(started, item.Name)
		if item.Run == nil {
			continue
		}

		shutdownCtx, shutdownFinished := context.WithCancel(context.Background())
		go func() {
			select {
			case <-ctx.Done():
			case <-shutdownCtx.Done():
				return
			}

			t := time.NewTicker(15 * time.Second)
			defer t.Stop()
			select {
			case <-t.C:
				buf := make([]byte, 1024*1024)
				n := runtime.Stack(buf, true)
				group.log.Warn("service takes long to shutdown",
					zap.String("name", item.Name),
					zap.ByteString("stack", condenseStack(buf[:n])))
			case <-shutdownCtx.Done():
			}
		}()

		g.Go(func() error {
			defer shutdownFinished()

			err := errs2.IgnoreCanceled(item.Run(ctx))
			if err != nil {
				group.log.Error("unexpected shutdown of a runner",
					zap.String("name", item.Name),
					zap.Error(err))
			}
			return err
		})
	}

	group.log.Debug("started", zap.Strings("items", started))
}

// Close closes all items in reverse order.
func (group *Group) Close() error {
	var errlist errs.Group

	for i := len(group.items) - 1; i >= 0; i-- {
		item := group.items[i]
		if item.Close == nil {
			continue
		}
		errlist.Add(item.Close())
	}

	return errlist.Err()
}

// condenseStack shrinks a full goroutine dump to one line per frame so the
// slow-shutdown warning stays readable. If parsing fails for any reason the
// original dump is returned; too big is better than nothing.
func condenseStack(buf []byte) (out []byte) {
	defer func() {
		if recover() != nil {
			out = buf
		}
	}()

	lines := bufio.NewScanner(bytes.NewReader(buf))
	skipNext := false

	for lines.Scan() {
		if skipNext {
			skipNext = false
			continue
		}

		switch line := lines.Bytes(); {
		case len(line) == 0:
			out = append(out, '\n')

		case bytes.HasPrefix(line, []byte(`goroutine `)):
			const gi = len("goroutine ")
			line = line[:gi+bytes.IndexByte(line[gi:], ' ')]
			out = append(out, line...)
			out = append(out, '\n')

		case line[0] == '\t':
			line = line[bytes.LastIndexByte(line, ':')+1:]
			if n := bytes.IndexByte(line, ' '); n >= 0 {
				line = line[:n]
			}
			out = append(out, line...)
			out = append(out, '\n')

		case bytes.HasPrefix(line, []byte(`created by`)):
			skipNext = true

		default:
			line = line[:bytes.LastIndexByte(line, '(')]
			out = append(out, '\t')
			out = append(out, line...)
			out = append(out, ':')
		}
	}

	if lines.Err() != nil {
		return buf
	}

	return out
}
