// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package errs2 collects common error handling functions.
package errs2

import (
	"context"
	"errors"
)

// IsCanceled returns true, when the error is a cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IgnoreCanceled returns nil, when the operation was about canceling.
func IgnoreCanceled(err error) error {
	if IsCanceled(err) {
		return nil
	}
	return err
}
