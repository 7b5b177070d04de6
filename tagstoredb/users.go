// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"

	"storj.io/tagstore"
	"storj.io/tagstore/private/dbutil/pgutil"
	"storj.io/tagstore/private/tagsql"
)

// users implements tagstore.Users.
type users struct {
	q queryer
}

var _ tagstore.Users = (*users)(nil)

// Create inserts a new user.
func (users *users) Create(ctx context.Context, user tagstore.CreateUser) (_ *tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)

	if err := user.Verify(); err != nil {
		return nil, err
	}

	created := &tagstore.User{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		FullName:     user.FullName,
		Email:        user.Email,
		Role:         user.Role,
		ObjectID:     user.ObjectID,
	}
	err = users.q.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, fullname, email, role, object_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, user.FullName, user.Email, int(user.Role), user.ObjectID,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return nil, tagstore.ErrDuplicatePath.New("username %q is taken", user.Username)
		}
		return nil, Error.Wrap(err)
	}
	return created, nil
}

// GetByUsernames returns the users with the given usernames.
func (users *users) GetByUsernames(ctx context.Context, usernames []string) (_ []tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(usernames) == 0 {
		return nil, nil
	}
	return users.list(ctx, `
		SELECT id, username, password_hash, fullname, email, role, object_id, created_at
		FROM users
		WHERE username = ANY($1::text[])
	`, usernames)
}

// GetByIDs returns the users with the given ids.
func (users *users) GetByIDs(ctx context.Context, ids []int) (_ []tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)

	if len(ids) == 0 {
		return nil, nil
	}
	return users.list(ctx, `
		SELECT id, username, password_hash, fullname, email, role, object_id, created_at
		FROM users
		WHERE id = ANY($1::int4[])
	`, pgutil.Int4Array(ids))
}

func (users *users) list(ctx context.Context, query string, arg interface{}) (_ []tagstore.User, err error) {
	var out []tagstore.User
	err = withRows(users.q.QueryContext(ctx, query, arg))(func(rows tagsql.Rows) error {
		for rows.Next() {
			var user tagstore.User
			err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash,
				&user.FullName, &user.Email, &user.Role, &user.ObjectID, &user.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, user)
		}
		return nil
	})
	return out, Error.Wrap(err)
}

// Update applies the non-nil fields of update to a user.
func (users *users) Update(ctx context.Context, id int, update tagstore.UpdateUser) (err error) {
	defer mon.Task()(&ctx)(&err)

	var role *int
	if update.Role != nil {
		r := int(*update.Role)
		role = &r
	}
	result, err := users.q.ExecContext(ctx, `
		UPDATE users SET
			password_hash = coalesce($2, password_hash),
			fullname = coalesce($3, fullname),
			email = coalesce($4, email),
			role = coalesce($5, role)
		WHERE id = $1
	`, id, update.PasswordHash, update.FullName, update.Email, role)
	if err != nil {
		return Error.Wrap(err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return Error.Wrap(err)
	}
	if count == 0 {
		return tagstore.ErrUnknownUser.New("id %d", id)
	}
	return nil
}

// Delete removes a user row. The row cannot go while namespaces or tags
// still name the user as their creator.
func (users *users) Delete(ctx context.Context, id int) (err error) {
	defer mon.Task()(&ctx)(&err)

	result, err := users.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if pgutil.ErrCode(err) == "23503" {
			return tagstore.ErrBadRequest.New("user %d still owns namespaces or tags", id)
		}
		return Error.Wrap(err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return Error.Wrap(err)
	}
	if count == 0 {
		return tagstore.ErrUnknownUser.New("id %d", id)
	}
	return nil
}
