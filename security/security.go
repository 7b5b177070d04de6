// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package security enforces permissions around the cache layer. A Security
// is bound to the acting user of one request; every operation is checked
// before it reaches the layers below, and denials carry the exact
// (path, operation) pairs refused.
//
// Callers pass normalized paths; syntactic validation happens in the model
// and error taxonomy mapping in the facade.
package security

import (
	"context"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"storj.io/tagstore"
	"storj.io/tagstore/cache"
	"storj.io/tagstore/model"
	"storj.io/tagstore/permission"
	"storj.io/tagstore/value"
)

var (
	mon = monkit.Package()

	// Error is the error class for internal security layer failures.
	Error = errs.Class("security")
)

// Security wraps the cache layer of one request with permission checks for
// the acting user. Like the layers it wraps it is bound to one transaction
// and not safe for concurrent use.
type Security struct {
	user    *tagstore.User
	checker *permission.Checker
	layer   *cache.Layer

	Namespaces  *NamespaceGuard
	Tags        *TagGuard
	Values      *TagValueGuard
	Permissions *PermissionGuard
	Objects     *ObjectGuard
	Users       *UserGuard
	Activity    *ActivityGuard
}

// New constructs a Security for user over layer.
func New(user *tagstore.User, layer *cache.Layer) *Security {
	sec := &Security{
		user:    user,
		checker: permission.NewChecker(layer.Permissions),
		layer:   layer,
	}
	sec.Namespaces = &NamespaceGuard{sec: sec}
	sec.Tags = &TagGuard{sec: sec}
	sec.Values = &TagValueGuard{sec: sec}
	sec.Permissions = &PermissionGuard{sec: sec}
	sec.Objects = &ObjectGuard{sec: sec}
	sec.Users = &UserGuard{sec: sec}
	sec.Activity = &ActivityGuard{sec: sec}
	return sec
}

// User returns the acting user.
func (sec *Security) User() *tagstore.User { return sec.user }

// CheckRead refuses with ErrPermissionDenied unless the acting user may read
// the values of every given path. The query resolver uses it to vet all paths
// a query references in one batch.
func (sec *Security) CheckRead(ctx context.Context, tagPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)

	pairs := make([]tagstore.PathOperation, 0, len(tagPaths))
	for _, path := range tagPaths {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpReadTagValue})
	}
	return sec.check(ctx, pairs...)
}

// check refuses with ErrPermissionDenied when any of the pairs is denied to
// the acting user.
func (sec *Security) check(ctx context.Context, pairs ...tagstore.PathOperation) error {
	denied, err := sec.checker.Check(ctx, sec.user, pairs)
	if err != nil {
		return err
	}
	if len(denied) > 0 {
		return sec.deny(denied)
	}
	return nil
}

func (sec *Security) deny(denied []tagstore.PathOperation) error {
	return tagstore.ErrPermissionDenied.Wrap(&tagstore.PermissionDeniedError{
		Username: sec.user.Username,
		Denied:   denied,
	})
}

// NamespaceGuard checks namespace operations.
type NamespaceGuard struct {
	sec *Security
}

// Create requires create permission along each path; missing ancestors are
// covered by the nearest existing one.
func (guard *NamespaceGuard) Create(ctx context.Context, reqs []model.CreateNamespace) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(reqs))
	for _, req := range reqs {
		pairs = append(pairs, tagstore.PathOperation{Path: req.Path, Operation: tagstore.OpCreateNamespace})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return nil, err
	}
	return sec.layer.Namespaces.Create(ctx, sec.user, reqs)
}

// Get requires list permission on each namespace.
func (guard *NamespaceGuard) Get(ctx context.Context, nsPaths []string, opts model.NamespaceGetOptions) (_ map[string]model.NamespaceInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(nsPaths))
	for _, path := range nsPaths {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpListNamespace})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return nil, err
	}
	return sec.layer.Namespaces.Get(ctx, nsPaths, opts)
}

// Set requires update permission on each namespace.
func (guard *NamespaceGuard) Set(ctx context.Context, descriptions map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(descriptions))
	for path := range descriptions {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpUpdateNamespace})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Namespaces.Set(ctx, descriptions)
}

// Delete requires delete permission on each namespace. Root namespaces are
// refused for everyone below superuser.
func (guard *NamespaceGuard) Delete(ctx context.Context, nsPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(nsPaths))
	for _, path := range nsPaths {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpDeleteNamespace})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Namespaces.Delete(ctx, nsPaths)
}

// TagGuard checks tag operations.
type TagGuard struct {
	sec *Security
}

// Create requires create permission on the enclosing namespace; there is no
// separate create-tag operation.
func (guard *TagGuard) Create(ctx context.Context, reqs []model.CreateTag) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(reqs))
	for _, req := range reqs {
		pairs = append(pairs, tagstore.PathOperation{Path: req.Path, Operation: tagstore.OpCreateNamespace})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return nil, err
	}
	return sec.layer.Tags.Create(ctx, sec.user, reqs)
}

// Get requires read permission on each tag. Descriptions are as visible as
// the values they describe.
func (guard *TagGuard) Get(ctx context.Context, tagPaths []string, withDescriptions bool) (_ map[string]model.TagInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(tagPaths))
	for _, path := range tagPaths {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpReadTagValue})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return nil, err
	}
	return sec.layer.Tags.Get(ctx, tagPaths, withDescriptions)
}

// Set requires update permission on each tag.
func (guard *TagGuard) Set(ctx context.Context, descriptions map[string]string) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(descriptions))
	for path := range descriptions {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpUpdateTag})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Tags.Set(ctx, descriptions)
}

// Delete requires delete permission on each tag.
func (guard *TagGuard) Delete(ctx context.Context, tagPaths []string) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(tagPaths))
	for _, path := range tagPaths {
		pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpDeleteTag})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Tags.Delete(ctx, tagPaths)
}

// TagValueGuard checks tag value operations.
type TagValueGuard struct {
	sec *Security
}

// Set requires write permission on each distinct path; for tags that do not
// exist yet the enclosing namespace's create permission decides. The id tag
// is skipped here so the model refuses writing it as invalid rather than
// denied.
func (guard *TagValueGuard) Set(ctx context.Context, writes map[uuid.UUID]map[string]value.Value) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	var pairs []tagstore.PathOperation
	seen := map[string]bool{}
	for _, byPath := range writes {
		for path := range byPath {
			if !seen[path] && path != tagstore.IDTagPath {
				seen[path] = true
				pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpWriteTagValue})
			}
		}
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Values.Set(ctx, sec.user, writes)
}

// Get returns the values of the given paths on the given objects. Explicit
// paths require read permission on every one of them; with no paths given
// the paths present on the objects are listed and filtered down to the
// readable ones instead.
func (guard *TagValueGuard) Get(ctx context.Context, objectIDs []uuid.UUID, tagPaths []string) (_ map[uuid.UUID]map[string]value.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	if len(tagPaths) > 0 {
		pairs := make([]tagstore.PathOperation, 0, len(tagPaths))
		for _, path := range tagPaths {
			pairs = append(pairs, tagstore.PathOperation{Path: path, Operation: tagstore.OpReadTagValue})
		}
		if err := sec.check(ctx, pairs...); err != nil {
			return nil, err
		}
		return sec.layer.Values.Get(ctx, objectIDs, tagPaths)
	}

	present, err := sec.layer.Objects.TagPaths(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	var union []string
	seen := map[string]bool{}
	for _, onObject := range present {
		for _, path := range onObject {
			if !seen[path] {
				seen[path] = true
				union = append(union, path)
			}
		}
	}
	readable, err := sec.checker.FilterReadable(ctx, sec.user, union)
	if err != nil {
		return nil, err
	}
	if len(readable) == 0 {
		return map[uuid.UUID]map[string]value.Value{}, nil
	}
	return sec.layer.Values.Get(ctx, objectIDs, readable)
}

// GetOne requires read permission on the path.
func (guard *TagValueGuard) GetOne(ctx context.Context, objectID uuid.UUID, tagPath string) (_ value.Value, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	if err := sec.check(ctx, tagstore.PathOperation{Path: tagPath, Operation: tagstore.OpReadTagValue}); err != nil {
		return value.Value{}, err
	}
	return sec.layer.Values.GetOne(ctx, objectID, tagPath)
}

// ObjectIDs returns the ids of up to limit objects carrying a value of the
// tag. It requires read permission on the path.
func (guard *TagValueGuard) ObjectIDs(ctx context.Context, tagPath string, limit int) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	if err := sec.check(ctx, tagstore.PathOperation{Path: tagPath, Operation: tagstore.OpReadTagValue}); err != nil {
		return nil, err
	}
	return sec.layer.Values.ObjectIDs(ctx, tagPath, limit)
}

// Delete requires delete permission on each distinct path. The id tag is
// skipped here so the model refuses it as invalid rather than denied.
func (guard *TagValueGuard) Delete(ctx context.Context, refs []tagstore.ObjectPath) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	var pairs []tagstore.PathOperation
	seen := map[string]bool{}
	for _, ref := range refs {
		if !seen[ref.Path] && ref.Path != tagstore.IDTagPath {
			seen[ref.Path] = true
			pairs = append(pairs, tagstore.PathOperation{Path: ref.Path, Operation: tagstore.OpDeleteTagValue})
		}
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Values.Delete(ctx, refs)
}

// PermissionGuard checks permission reads and writes.
type PermissionGuard struct {
	sec *Security
}

// Get requires the control operation matching each requested operation;
// denials are reported on the control operation, not the one asked about.
func (guard *PermissionGuard) Get(ctx context.Context, pairs []tagstore.PathOperation) (_ []model.PathPermission, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	if err := sec.checkControl(ctx, pairs); err != nil {
		return nil, err
	}
	return sec.layer.Permissions.Get(ctx, pairs)
}

// Set requires the control operation matching each changed operation.
func (guard *PermissionGuard) Set(ctx context.Context, perms []model.PathPermission) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(perms))
	for _, perm := range perms {
		pairs = append(pairs, tagstore.PathOperation{Path: perm.Path, Operation: perm.Operation})
	}
	if err := sec.checkControl(ctx, pairs); err != nil {
		return err
	}
	return sec.layer.Permissions.Set(ctx, perms)
}

// checkControl maps each pair to its control operation before checking.
// Operations without one pass through for the model to refuse as invalid.
func (sec *Security) checkControl(ctx context.Context, pairs []tagstore.PathOperation) error {
	checks := make([]tagstore.PathOperation, 0, len(pairs))
	for _, pair := range pairs {
		if control := pair.Operation.Control(); control != 0 {
			checks = append(checks, tagstore.PathOperation{Path: pair.Path, Operation: control})
		}
	}
	return sec.check(ctx, checks...)
}

// ObjectGuard checks object operations. About values and ids are public;
// only creation and the listing of tag paths are restricted.
type ObjectGuard struct {
	sec *Security
}

// Create is open to every signed-in user.
func (guard *ObjectGuard) Create(ctx context.Context, about string) (_ uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	if err := sec.check(ctx, tagstore.PathOperation{Operation: tagstore.OpCreateObject}); err != nil {
		return uuid.Nil, err
	}
	return sec.layer.Objects.Create(ctx, sec.user, about)
}

// Get resolves about values to object ids.
func (guard *ObjectGuard) Get(ctx context.Context, abouts []string) (_ map[string]uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	return guard.sec.layer.Objects.Get(ctx, abouts)
}

// Abouts returns the about values of the given objects.
func (guard *ObjectGuard) Abouts(ctx context.Context, objectIDs []uuid.UUID) (_ map[uuid.UUID]string, err error) {
	defer mon.Task()(&ctx)(&err)
	return guard.sec.layer.Objects.Abouts(ctx, objectIDs)
}

// TagPaths returns the paths present on each object, filtered down to the
// ones the acting user may read.
func (guard *ObjectGuard) TagPaths(ctx context.Context, objectIDs []uuid.UUID) (_ map[uuid.UUID][]string, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	present, err := sec.layer.Objects.TagPaths(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	var union []string
	seen := map[string]bool{}
	for _, onObject := range present {
		for _, path := range onObject {
			if !seen[path] {
				seen[path] = true
				union = append(union, path)
			}
		}
	}
	readable, err := sec.checker.FilterReadable(ctx, sec.user, union)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(readable))
	for _, path := range readable {
		allowed[path] = true
	}

	result := make(map[uuid.UUID][]string, len(present))
	for objectID, onObject := range present {
		kept := make([]string, 0, len(onObject))
		for _, path := range onObject {
			if allowed[path] {
				kept = append(kept, path)
			}
		}
		if len(kept) > 0 {
			result[objectID] = kept
		}
	}
	return result, nil
}

// UserGuard checks user management, which is decided by role alone.
type UserGuard struct {
	sec *Security
}

// Create requires the user manager role.
func (guard *UserGuard) Create(ctx context.Context, reqs []model.CreateUser) (_ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(reqs))
	for _, req := range reqs {
		pairs = append(pairs, tagstore.PathOperation{Path: req.Username, Operation: tagstore.OpCreateUser})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return nil, err
	}
	return sec.layer.Users.Create(ctx, reqs)
}

// Get returns public user information.
func (guard *UserGuard) Get(ctx context.Context, usernames []string) (_ map[string]model.UserInfo, err error) {
	defer mon.Task()(&ctx)(&err)
	return guard.sec.layer.Users.Get(ctx, usernames)
}

// Authenticate verifies a username and password. It is open to everyone;
// callers use it to establish the acting user of later requests.
func (guard *UserGuard) Authenticate(ctx context.Context, username, password string) (_ *tagstore.User, err error) {
	defer mon.Task()(&ctx)(&err)
	return guard.sec.layer.Users.Authenticate(ctx, username, password)
}

// Set lets users update themselves and managers update anyone. Role changes
// are reserved to managers even on one's own account.
func (guard *UserGuard) Set(ctx context.Context, updates []model.UpdateUser) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(updates))
	for _, update := range updates {
		pairs = append(pairs, tagstore.PathOperation{Path: update.Username, Operation: tagstore.OpUpdateUser})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	if sec.user.Role != tagstore.RoleUserManager && sec.user.Role != tagstore.RoleSuperuser {
		for _, update := range updates {
			if update.Role != nil {
				return sec.deny([]tagstore.PathOperation{{Path: update.Username, Operation: tagstore.OpUpdateUser}})
			}
		}
	}
	return sec.layer.Users.Set(ctx, updates)
}

// Delete requires the user manager role.
func (guard *UserGuard) Delete(ctx context.Context, usernames []string) (err error) {
	defer mon.Task()(&ctx)(&err)
	sec := guard.sec

	pairs := make([]tagstore.PathOperation, 0, len(usernames))
	for _, username := range usernames {
		pairs = append(pairs, tagstore.PathOperation{Path: username, Operation: tagstore.OpDeleteUser})
	}
	if err := sec.check(ctx, pairs...); err != nil {
		return err
	}
	return sec.layer.Users.Delete(ctx, usernames)
}

// ActivityGuard serves recent-activity listings, which are public.
type ActivityGuard struct {
	sec *Security
}

// GetForObjects returns the newest writes onto the given objects.
func (guard *ActivityGuard) GetForObjects(ctx context.Context, objectIDs []uuid.UUID) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)
	return guard.sec.layer.Activity.GetForObjects(ctx, objectIDs)
}

// GetForUsers returns the newest writes by the given users.
func (guard *ActivityGuard) GetForUsers(ctx context.Context, usernames []string) (_ []tagstore.Activity, err error) {
	defer mon.Task()(&ctx)(&err)
	return guard.sec.layer.Activity.GetForUsers(ctx, usernames)
}
