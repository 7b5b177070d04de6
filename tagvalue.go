// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storj.io/tagstore/value"
)

// TagValue is one typed value of one tag on one object.
type TagValue struct {
	ObjectID  uuid.UUID
	TagID     int
	Value     value.Value
	CreatorID int
	CreatedAt time.Time
}

// SetTagValue contains one row to insert or replace in the tag values table.
type SetTagValue struct {
	ObjectID  uuid.UUID
	TagID     int
	Value     value.Value
	CreatorID int
}

// Verify checks that the request is structurally complete.
func (s SetTagValue) Verify() error {
	switch {
	case s.ObjectID == uuid.Nil:
		return ErrBadRequest.New("object id missing")
	case s.TagID == 0:
		return ErrBadRequest.New("tag missing")
	}
	return nil
}

// TagValueRef identifies one tag value row.
type TagValueRef struct {
	ObjectID uuid.UUID
	TagID    int
}

// ObjectPath is one tag path present on one object.
type ObjectPath struct {
	ObjectID uuid.UUID
	Path     string
}

// Activity is one tag-value write as shown in recent-activity listings.
type Activity struct {
	Path      string
	ObjectID  uuid.UUID
	About     string // empty when the object has no about value
	Value     value.Value
	Username  string
	CreatedAt time.Time
}

// TagValues exposes methods to manage the tag values table.
//
// architecture: Database
type TagValues interface {
	// Set inserts the rows, replacing existing values of the same
	// (object, tag) pairs.
	Set(ctx context.Context, values []SetTagValue) error
	// Get returns the values of the given tags on the given objects.
	// Missing combinations are skipped, not errors.
	Get(ctx context.Context, objectIDs []uuid.UUID, tagIDs []int) ([]TagValue, error)
	// Delete removes the given rows; missing rows are not an error. It
	// returns the refs actually removed.
	Delete(ctx context.Context, refs []TagValueRef) ([]TagValueRef, error)
	// DeleteByTags removes all values of the given tags and returns the ids
	// of the objects that carried one.
	DeleteByTags(ctx context.Context, tagIDs []int) ([]uuid.UUID, error)
	// DeleteByCreator removes all values written by the user and returns
	// the ids of the objects that carried one.
	DeleteByCreator(ctx context.Context, creatorID int) ([]uuid.UUID, error)
	// ObjectIDs returns up to limit ids of objects carrying a value of the
	// tag.
	ObjectIDs(ctx context.Context, tagID int, limit int) ([]uuid.UUID, error)
	// Paths returns the tag paths present on the given objects.
	Paths(ctx context.Context, objectIDs []uuid.UUID) ([]ObjectPath, error)
	// RecentByObjects returns the newest writes onto the given objects,
	// newest first.
	RecentByObjects(ctx context.Context, objectIDs []uuid.UUID, limit int) ([]Activity, error)
	// RecentByUsers returns the newest writes by the given users, newest
	// first.
	RecentByUsers(ctx context.Context, userIDs []int, limit int) ([]Activity, error)
}
