// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package facade

import (
	"context"

	"github.com/google/uuid"

	"storj.io/tagstore"
	"storj.io/tagstore/model"
	"storj.io/tagstore/security"
	"storj.io/tagstore/value"
)

// CreateNamespaces creates the namespaces in request order and returns the
// ids of their objects.
func (service *Service) CreateNamespaces(ctx context.Context, username string, reqs []model.CreateNamespace) (ids []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	reqs = append([]model.CreateNamespace(nil), reqs...)
	for i := range reqs {
		reqs[i].Path = cleanPath(reqs[i].Path)
	}
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		ids, err = sec.Namespaces.Create(ctx, reqs)
		return err
	})
	return ids, err
}

// GetNamespaces returns the requested namespaces with the optional fields
// opts selects.
func (service *Service) GetNamespaces(ctx context.Context, username string, nsPaths []string, opts model.NamespaceGetOptions) (_ map[string]model.NamespaceInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[string]model.NamespaceInfo
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Namespaces.Get(ctx, cleanPaths(nsPaths), opts)
		return err
	})
	return result, err
}

// SetNamespaces updates namespace descriptions.
func (service *Service) SetNamespaces(ctx context.Context, username string, descriptions map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Namespaces.Set(ctx, cleanKeys(descriptions))
	})
}

// DeleteNamespaces deletes the given namespaces. Namespaces with children
// are refused.
func (service *Service) DeleteNamespaces(ctx context.Context, username string, nsPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Namespaces.Delete(ctx, cleanPaths(nsPaths))
	})
}

// CreateTags creates the tags in request order and returns the ids of
// their objects.
func (service *Service) CreateTags(ctx context.Context, username string, reqs []model.CreateTag) (ids []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	reqs = append([]model.CreateTag(nil), reqs...)
	for i := range reqs {
		reqs[i].Path = cleanPath(reqs[i].Path)
	}
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		ids, err = sec.Tags.Create(ctx, reqs)
		return err
	})
	return ids, err
}

// GetTags returns the requested tags.
func (service *Service) GetTags(ctx context.Context, username string, tagPaths []string, withDescriptions bool) (_ map[string]model.TagInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[string]model.TagInfo
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Tags.Get(ctx, cleanPaths(tagPaths), withDescriptions)
		return err
	})
	return result, err
}

// SetTags updates tag descriptions.
func (service *Service) SetTags(ctx context.Context, username string, descriptions map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Tags.Set(ctx, cleanKeys(descriptions))
	})
}

// DeleteTags deletes the given tags and all their values.
func (service *Service) DeleteTags(ctx context.Context, username string, tagPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Tags.Delete(ctx, cleanPaths(tagPaths))
	})
}

// SetValues writes the given values, creating missing tags implicitly when
// the acting user may.
func (service *Service) SetValues(ctx context.Context, username string, writes map[uuid.UUID]map[string]value.Value) (err error) {
	defer mon.Task()(&ctx)(&err)

	cleaned := make(map[uuid.UUID]map[string]value.Value, len(writes))
	for objectID, byPath := range writes {
		cleaned[objectID] = cleanKeys(byPath)
	}
	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Values.Set(ctx, cleaned)
	})
}

// GetValues returns the values of the given paths on the given objects.
// With a nil path list the paths readable by the acting user are returned.
func (service *Service) GetValues(ctx context.Context, username string, objectIDs []uuid.UUID, tagPaths []string) (_ map[uuid.UUID]map[string]value.Value, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[uuid.UUID]map[string]value.Value
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Values.Get(ctx, objectIDs, cleanPaths(tagPaths))
		return err
	})
	return result, err
}

// GetValue returns the value of one tag on one object, loading opaque
// contents.
func (service *Service) GetValue(ctx context.Context, username string, objectID uuid.UUID, tagPath string) (_ value.Value, err error) {
	defer mon.Task()(&ctx)(&err)

	var result value.Value
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Values.GetOne(ctx, objectID, cleanPath(tagPath))
		return err
	})
	return result, err
}

// DeleteValues removes the given values. Pairs without a stored value are
// skipped.
func (service *Service) DeleteValues(ctx context.Context, username string, refs []tagstore.ObjectPath) (err error) {
	defer mon.Task()(&ctx)(&err)

	refs = append([]tagstore.ObjectPath(nil), refs...)
	for i := range refs {
		refs[i].Path = cleanPath(refs[i].Path)
	}
	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Values.Delete(ctx, refs)
	})
}

// GetPermissions returns the stored permission of each (path, operation)
// pair.
func (service *Service) GetPermissions(ctx context.Context, username string, pairs []tagstore.PathOperation) (_ []model.PathPermission, err error) {
	defer mon.Task()(&ctx)(&err)

	pairs = append([]tagstore.PathOperation(nil), pairs...)
	for i := range pairs {
		pairs[i].Path = cleanPath(pairs[i].Path)
	}
	var result []model.PathPermission
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Permissions.Get(ctx, pairs)
		return err
	})
	return result, err
}

// SetPermissions stores the given permissions.
func (service *Service) SetPermissions(ctx context.Context, username string, perms []model.PathPermission) (err error) {
	defer mon.Task()(&ctx)(&err)

	perms = append([]model.PathPermission(nil), perms...)
	for i := range perms {
		perms[i].Path = cleanPath(perms[i].Path)
	}
	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Permissions.Set(ctx, perms)
	})
}

// CreateObject returns the id of the object with the given about value,
// creating and claiming it when no object has it yet. An empty about
// allocates an anonymous object.
func (service *Service) CreateObject(ctx context.Context, username string, about string) (_ uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	var id uuid.UUID
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		id, err = sec.Objects.Create(ctx, about)
		return err
	})
	return id, err
}

// GetObjects resolves about values to object ids. Unclaimed about values
// are absent from the result.
func (service *Service) GetObjects(ctx context.Context, username string, abouts []string) (_ map[string]uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[string]uuid.UUID
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Objects.Get(ctx, abouts)
		return err
	})
	return result, err
}

// GetAbouts returns the about values of the given objects.
func (service *Service) GetAbouts(ctx context.Context, username string, objectIDs []uuid.UUID) (_ map[uuid.UUID]string, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[uuid.UUID]string
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Objects.Abouts(ctx, objectIDs)
		return err
	})
	return result, err
}

// GetObjectTagPaths returns the tag paths present on each object, filtered
// down to the ones the acting user may read.
func (service *Service) GetObjectTagPaths(ctx context.Context, username string, objectIDs []uuid.UUID) (_ map[uuid.UUID][]string, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[uuid.UUID][]string
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Objects.TagPaths(ctx, objectIDs)
		return err
	})
	return result, err
}

// CreateUsers creates the given user accounts.
func (service *Service) CreateUsers(ctx context.Context, username string, reqs []model.CreateUser) (ids []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		ids, err = sec.Users.Create(ctx, reqs)
		return err
	})
	return ids, err
}

// GetUsers returns public information on the given users.
func (service *Service) GetUsers(ctx context.Context, username string, usernames []string) (_ map[string]model.UserInfo, err error) {
	defer mon.Task()(&ctx)(&err)

	var result map[string]model.UserInfo
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Users.Get(ctx, usernames)
		return err
	})
	return result, err
}

// SetUsers applies the given user updates.
func (service *Service) SetUsers(ctx context.Context, username string, updates []model.UpdateUser) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Users.Set(ctx, updates)
	})
}

// DeleteUsers deletes the given user accounts with their root namespaces
// and values.
func (service *Service) DeleteUsers(ctx context.Context, username string, usernames []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		return sec.Users.Delete(ctx, usernames)
	})
}

// ObjectActivity returns the newest writes onto the given objects.
func (service *Service) ObjectActivity(ctx context.Context, username string, objectIDs []uuid.UUID) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)

	var result []tagstore.Activity
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Activity.GetForObjects(ctx, objectIDs)
		return err
	})
	return result, err
}

// UserActivity returns the newest writes by the given users.
func (service *Service) UserActivity(ctx context.Context, username string, usernames []string) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)

	var result []tagstore.Activity
	err = service.request(ctx, username, func(ctx context.Context, sec *security.Security) error {
		var err error
		result, err = sec.Activity.GetForUsers(ctx, usernames)
		return err
	})
	return result, err
}
