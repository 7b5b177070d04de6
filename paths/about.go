// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package paths

import "strings"

// Canonical about values for the objects backing namespaces, tags and
// users. Tags are called attributes in about values for compatibility with
// existing data.

// AboutNamespace returns the canonical about value for a namespace object.
func AboutNamespace(path string) string {
	return "Object for the namespace " + path
}

// AboutTag returns the canonical about value for a tag object.
func AboutTag(path string) string {
	return "Object for the attribute " + path
}

// AboutUser returns the canonical about value for a user object.
func AboutUser(username string) string {
	return "@" + username
}

// AboutIsURL reports whether the about value is a URL. URLs keep their
// exact spelling when compared for uniqueness; everything else is compared
// case folded.
func AboutIsURL(about string) bool {
	lower := strings.ToLower(about)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://")
}

// FoldAbout returns the form of the about value used for uniqueness
// comparisons. The original spelling is preserved for display.
func FoldAbout(about string) string {
	if AboutIsURL(about) {
		return about
	}
	return strings.ToLower(about)
}
