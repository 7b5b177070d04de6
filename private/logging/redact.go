// Copyright (C) 2024 Storj Labs, Inc.
// See LICENSE for copying information.

// Package logging provides helpers for safe log output.
package logging

import "net/url"

// Redacted hides the password of a connection URL so it can be logged.
// Strings that do not parse as URLs are returned unchanged.
func Redacted(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return parsed.Redacted()
}
