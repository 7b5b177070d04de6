// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package model

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
)

// activityLimit is how many writes a recent-activity listing returns at
// most.
const activityLimit = 20

// ActivityAPI implements recent-activity listings.
type ActivityAPI struct {
	core *core
}

// GetForObjects returns the newest tag-value writes onto the given objects,
// newest first.
func (api *ActivityAPI) GetForObjects(ctx context.Context, objectIDs []uuid.UUID) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(objectIDs) == 0 {
		return nil, nil
	}
	recent, err := api.core.tx.TagValues().RecentByObjects(ctx, objectIDs, activityLimit)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return recent, nil
}

// GetForUsers returns the newest tag-value writes by the given users, newest
// first. Every username must exist.
func (api *ActivityAPI) GetForUsers(ctx context.Context, usernames []string) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(usernames) == 0 {
		return nil, nil
	}
	users, err := api.core.tx.Users().GetByUsernames(ctx, usernames)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	byName := make(map[string]int, len(users))
	for _, user := range users {
		byName[user.Username] = user.ID
	}
	userIDs := make([]int, 0, len(usernames))
	for _, username := range usernames {
		id, ok := byName[username]
		if !ok {
			return nil, tagstore.ErrUnknownUser.New("%q", username)
		}
		userIDs = append(userIDs, id)
	}

	recent, err := api.core.tx.TagValues().RecentByUsers(ctx, userIDs, activityLimit)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return recent, nil
}
