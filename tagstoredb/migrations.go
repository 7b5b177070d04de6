// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tagstoredb

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/permission"
	"storj.io/tagstore/private/migrate"
	"storj.io/tagstore/private/tagsql"
	"storj.io/tagstore/value"
)

// Migration returns the migration steps of the main store.
func (db *DB) Migration() *migrate.Migration {
	return &migrate.Migration{
		Table: "versions",
		Steps: []*migrate.Step{
			{
				DB:          db.db,
				Description: "Initial setup",
				Version:     0,
				Action: migrate.SQL{
					`CREATE TABLE users (
						id serial PRIMARY KEY,
						username text NOT NULL UNIQUE,
						password_hash bytea,
						fullname text NOT NULL DEFAULT '',
						email text NOT NULL DEFAULT '',
						role integer NOT NULL,
						object_id uuid NOT NULL,
						created_at timestamptz NOT NULL DEFAULT now()
					)`,
					`CREATE TABLE namespaces (
						id serial PRIMARY KEY,
						path text NOT NULL UNIQUE,
						name text NOT NULL,
						parent_id integer REFERENCES namespaces (id),
						creator_id integer NOT NULL REFERENCES users (id),
						object_id uuid NOT NULL,
						created_at timestamptz NOT NULL DEFAULT now()
					)`,
					`CREATE INDEX namespaces_parent_id_index ON namespaces (parent_id)`,
					`CREATE TABLE tags (
						id serial PRIMARY KEY,
						path text NOT NULL UNIQUE,
						name text NOT NULL,
						namespace_id integer NOT NULL REFERENCES namespaces (id),
						creator_id integer NOT NULL REFERENCES users (id),
						object_id uuid NOT NULL,
						created_at timestamptz NOT NULL DEFAULT now()
					)`,
					`CREATE INDEX tags_namespace_id_index ON tags (namespace_id)`,
					`CREATE TABLE tag_values (
						object_id uuid NOT NULL,
						tag_id integer NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
						value_type integer NOT NULL,
						value_bool boolean,
						value_int bigint,
						value_float double precision,
						value_string text,
						value_set text[],
						value_mime text,
						value_size bigint,
						creator_id integer NOT NULL REFERENCES users (id),
						created_at timestamptz NOT NULL DEFAULT now(),
						PRIMARY KEY (object_id, tag_id)
					)`,
					`CREATE INDEX tag_values_tag_id_index ON tag_values (tag_id)`,
					`CREATE INDEX tag_values_creator_id_created_at_index ON tag_values (creator_id, created_at DESC)`,
					`CREATE TABLE about_tag_values (
						object_id uuid NOT NULL UNIQUE,
						value text NOT NULL UNIQUE,
						folded text NOT NULL UNIQUE
					)`,
					`CREATE TABLE opaque_values (
						file_id text PRIMARY KEY,
						content bytea NOT NULL,
						size bigint NOT NULL
					)`,
					`CREATE TABLE opaque_value_links (
						object_id uuid NOT NULL,
						tag_id integer NOT NULL,
						file_id text NOT NULL REFERENCES opaque_values (file_id),
						PRIMARY KEY (object_id, tag_id),
						FOREIGN KEY (object_id, tag_id) REFERENCES tag_values (object_id, tag_id) ON DELETE CASCADE
					)`,
					`CREATE INDEX opaque_value_links_file_id_index ON opaque_value_links (file_id)`,
					`CREATE TABLE namespace_permissions (
						namespace_id integer NOT NULL REFERENCES namespaces (id) ON DELETE CASCADE,
						operation integer NOT NULL,
						policy integer NOT NULL,
						exceptions integer[] NOT NULL DEFAULT '{}',
						PRIMARY KEY (namespace_id, operation)
					)`,
					`CREATE TABLE tag_permissions (
						tag_id integer NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
						operation integer NOT NULL,
						policy integer NOT NULL,
						exceptions integer[] NOT NULL DEFAULT '{}',
						PRIMARY KEY (tag_id, operation)
					)`,
					`CREATE TABLE dirty_objects (
						id bigserial PRIMARY KEY,
						object_id uuid NOT NULL,
						created_at timestamptz NOT NULL DEFAULT now(),
						indexed boolean NOT NULL DEFAULT false
					)`,
					`CREATE INDEX dirty_objects_pending_index ON dirty_objects (object_id) WHERE indexed = false`,
				},
			},
			{
				DB:          db.db,
				Description: "Add the get_objects index import function",
				Version:     1,
				Action: migrate.SQL{
					`CREATE FUNCTION get_objects(clean boolean)
					RETURNS TABLE (object_id uuid, path_value_pair text) AS $$
					BEGIN
						IF clean THEN
							RETURN QUERY
								SELECT tv.object_id,
									t.path || ' ' || CASE tv.value_type
										WHEN 0 THEN 'null'
										WHEN 1 THEN to_json(tv.value_bool)::text
										WHEN 2 THEN to_json(tv.value_int)::text
										WHEN 3 THEN to_json(tv.value_float)::text
										WHEN 4 THEN to_json(tv.value_string)::text
										WHEN 5 THEN array_to_json(tv.value_set)::text
										WHEN 6 THEN json_build_object('mime-type', tv.value_mime, 'size', tv.value_size, 'file-id', ovl.file_id)::text
									END
								FROM tag_values tv
								JOIN tags t ON t.id = tv.tag_id
								LEFT JOIN opaque_value_links ovl ON ovl.object_id = tv.object_id AND ovl.tag_id = tv.tag_id;
						ELSE
							RETURN QUERY
								WITH marked AS (
									UPDATE dirty_objects d SET indexed = true
									WHERE d.indexed = false
									RETURNING d.object_id
								)
								SELECT tv.object_id,
									t.path || ' ' || CASE tv.value_type
										WHEN 0 THEN 'null'
										WHEN 1 THEN to_json(tv.value_bool)::text
										WHEN 2 THEN to_json(tv.value_int)::text
										WHEN 3 THEN to_json(tv.value_float)::text
										WHEN 4 THEN to_json(tv.value_string)::text
										WHEN 5 THEN array_to_json(tv.value_set)::text
										WHEN 6 THEN json_build_object('mime-type', tv.value_mime, 'size', tv.value_size, 'file-id', ovl.file_id)::text
									END
								FROM tag_values tv
								JOIN tags t ON t.id = tv.tag_id
								LEFT JOIN opaque_value_links ovl ON ovl.object_id = tv.object_id AND ovl.tag_id = tv.tag_id
								WHERE tv.object_id IN (SELECT m.object_id FROM marked m);
						END IF;
					END;
					$$ LANGUAGE plpgsql`,
				},
			},
			{
				DB:          db.db,
				Description: "Seed the system user, namespaces and tags",
				Version:     2,
				Action: migrate.Func(func(ctx context.Context, log *zap.Logger, _ tagsql.DB, tx tagsql.Tx) error {
					return seedSystemEntities(ctx, tables{q: tx})
				}),
			},
		},
	}
}

// seedSystemEntities creates the entities every installation starts with: the
// fluiddb superuser with its namespaces and tags, and the anon user. It is
// idempotent so the migration can be re-run against an already seeded
// database.
func seedSystemEntities(ctx context.Context, t tables) error {
	existing, err := t.Users().GetByUsernames(ctx, []string{tagstore.SystemUsername})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	superuser, err := t.Users().Create(ctx, tagstore.CreateUser{
		Username: tagstore.SystemUsername,
		Role:     tagstore.RoleSuperuser,
		ObjectID: uuid.New(),
	})
	if err != nil {
		return err
	}
	anon, err := t.Users().Create(ctx, tagstore.CreateUser{
		Username: tagstore.AnonymousUsername,
		Role:     tagstore.RoleAnonymous,
		ObjectID: uuid.New(),
	})
	if err != nil {
		return err
	}

	seeder := &systemSeeder{tables: t, creator: superuser.ID}

	root, err := seeder.namespace(ctx, tagstore.SystemUsername, nil,
		"Namespace for the tag store system tags")
	if err != nil {
		return err
	}
	namespaces, err := seeder.namespace(ctx, tagstore.SystemUsername+"/namespaces", root,
		"Namespace for tags about namespaces")
	if err != nil {
		return err
	}
	tags, err := seeder.namespace(ctx, tagstore.SystemUsername+"/tags", root,
		"Namespace for tags about tags")
	if err != nil {
		return err
	}
	users, err := seeder.namespace(ctx, tagstore.SystemUsername+"/users", root,
		"Namespace for tags about users")
	if err != nil {
		return err
	}

	for _, tag := range []struct {
		path        string
		parent      *tagstore.Namespace
		description string
	}{
		{tagstore.AboutTagPath, root, "The unique about value of an object"},
		{tagstore.NamespacePathTagPath, namespaces, "The full path of a namespace"},
		{tagstore.NamespaceDescriptionTagPath, namespaces, "The description of a namespace"},
		{tagstore.TagPathTagPath, tags, "The full path of a tag"},
		{tagstore.TagDescriptionTagPath, tags, "The description of a tag"},
		{tagstore.UserUsernameTagPath, users, "The username of a user"},
		{tagstore.UserNameTagPath, users, "The full name of a user"},
		{tagstore.UserEmailTagPath, users, "The email address of a user"},
	} {
		if err := seeder.tag(ctx, tag.path, tag.parent, tag.description); err != nil {
			return err
		}
	}

	// The namespaces and tags above were created before fluiddb/about and the
	// other system tags existed, so their objects are filled in afterwards.
	if err := seeder.describeEntities(ctx); err != nil {
		return err
	}
	for _, user := range []*tagstore.User{superuser, anon} {
		if err := seeder.describeUser(ctx, user); err != nil {
			return err
		}
	}
	return t.DirtyObjects().Add(ctx, seeder.objectIDs)
}

// systemSeeder accumulates the created entities so their system tag values
// can be written once all system tags exist.
type systemSeeder struct {
	tables

	creator    int
	created    []seededEntity
	objectIDs  []uuid.UUID
	tagsByPath map[string]int
}

type seededEntity struct {
	path        string
	description string
	objectID    uuid.UUID
	isNamespace bool
}

func (s *systemSeeder) namespace(ctx context.Context, path string, parent *tagstore.Namespace, description string) (*tagstore.Namespace, error) {
	create := tagstore.CreateNamespace{
		Path:      path,
		Name:      paths.Name(path),
		CreatorID: s.creator,
		ObjectID:  uuid.New(),
	}
	var perms tagstore.PermissionSet
	if parent == nil {
		perms = permission.NamespaceDefaults(s.creator)
	} else {
		create.ParentID = &parent.ID
		parentPerms, err := s.Permissions().GetNamespace(ctx, []int{parent.ID})
		if err != nil {
			return nil, err
		}
		perms = permission.InheritNamespace(parentPerms[parent.ID], s.creator)
	}

	ns, err := s.Namespaces().Create(ctx, create)
	if err != nil {
		return nil, err
	}
	if err := s.Permissions().SetNamespace(ctx, ns.ID, perms); err != nil {
		return nil, err
	}
	s.created = append(s.created, seededEntity{
		path:        path,
		description: description,
		objectID:    ns.ObjectID,
		isNamespace: true,
	})
	return ns, nil
}

func (s *systemSeeder) tag(ctx context.Context, path string, parent *tagstore.Namespace, description string) error {
	tag, err := s.Tags().Create(ctx, tagstore.CreateTag{
		Path:        path,
		Name:        paths.Name(path),
		NamespaceID: parent.ID,
		CreatorID:   s.creator,
		ObjectID:    uuid.New(),
	})
	if err != nil {
		return err
	}
	parentPerms, err := s.Permissions().GetNamespace(ctx, []int{parent.ID})
	if err != nil {
		return err
	}
	if err := s.Permissions().SetTag(ctx, tag.ID, permission.InheritTag(parentPerms[parent.ID], s.creator)); err != nil {
		return err
	}
	if s.tagsByPath == nil {
		s.tagsByPath = make(map[string]int)
	}
	s.tagsByPath[path] = tag.ID
	s.created = append(s.created, seededEntity{
		path:        path,
		description: description,
		objectID:    tag.ObjectID,
	})
	return nil
}

// describeEntities writes the about rows and system tag values of every
// seeded namespace and tag.
func (s *systemSeeder) describeEntities(ctx context.Context) error {
	for _, entity := range s.created {
		about := "Object for the attribute " + entity.path
		pathTag, descriptionTag := s.tagsByPath[tagstore.TagPathTagPath], s.tagsByPath[tagstore.TagDescriptionTagPath]
		if entity.isNamespace {
			about = "Object for the namespace " + entity.path
			pathTag, descriptionTag = s.tagsByPath[tagstore.NamespacePathTagPath], s.tagsByPath[tagstore.NamespaceDescriptionTagPath]
		}
		err := s.describe(ctx, entity.objectID, about, []tagstore.SetTagValue{
			{ObjectID: entity.objectID, TagID: pathTag, Value: value.NewString(entity.path), CreatorID: s.creator},
			{ObjectID: entity.objectID, TagID: descriptionTag, Value: value.NewString(entity.description), CreatorID: s.creator},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *systemSeeder) describeUser(ctx context.Context, user *tagstore.User) error {
	return s.describe(ctx, user.ObjectID, "@"+user.Username, []tagstore.SetTagValue{
		{ObjectID: user.ObjectID, TagID: s.tagsByPath[tagstore.UserUsernameTagPath], Value: value.NewString(user.Username), CreatorID: s.creator},
	})
}

func (s *systemSeeder) describe(ctx context.Context, objectID uuid.UUID, about string, values []tagstore.SetTagValue) error {
	if _, err := s.Objects().Create(ctx, objectID, about, paths.FoldAbout(about)); err != nil {
		return err
	}
	values = append(values, tagstore.SetTagValue{
		ObjectID:  objectID,
		TagID:     s.tagsByPath[tagstore.AboutTagPath],
		Value:     value.NewString(about),
		CreatorID: s.creator,
	})
	if err := s.TagValues().Set(ctx, values); err != nil {
		return err
	}
	s.objectIDs = append(s.objectIDs, objectID)
	return nil
}
