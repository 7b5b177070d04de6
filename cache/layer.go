// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package cache

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/tagstore"
	"storj.io/tagstore/model"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/private/kvstore"
	"storj.io/tagstore/value"
)

// Layer mirrors the model API for one request, serving cached reads and
// collecting the cache writes the request makes necessary. Like the model it
// is bound to one transaction and not safe for concurrent use.
//
// Nothing touches the shared store until Flush, which must run after the
// transaction committed. Dropping keys earlier would let concurrent readers
// refill them from state the transaction has not committed yet, and filling
// earlier would publish reads of our own uncommitted writes.
//
// Creates never invalidate: absence is not cached, so there is no entry a
// new namespace, tag, user, object or value could make stale.
type Layer struct {
	cache *Cache
	model *model.Model

	fills   kvstore.Items
	pending kvstore.Keys

	Namespaces  *NamespaceCache
	Tags        *TagCache
	Values      *TagValueCache
	Permissions *PermissionCache
	Objects     *ObjectCache
	Users       *UserCache
	Activity    *ActivityCache
}

// NewLayer constructs a Layer over m.
func NewLayer(cache *Cache, m *model.Model) *Layer {
	layer := &Layer{cache: cache, model: m}
	layer.Namespaces = &NamespaceCache{layer: layer}
	layer.Tags = &TagCache{layer: layer}
	layer.Values = &TagValueCache{layer: layer}
	layer.Permissions = &PermissionCache{layer: layer}
	layer.Objects = &ObjectCache{layer: layer}
	layer.Users = &UserCache{layer: layer}
	layer.Activity = &ActivityCache{layer: layer}
	return layer
}

// Flush publishes the request's cache effects: fills first, then the drops,
// so a key both filled and invalidated ends up dropped. Call it exactly once
// and only after the transaction committed; skip it when the transaction
// rolled back.
func (layer *Layer) Flush(ctx context.Context) {
	defer mon.Task()(&ctx)(nil)

	layer.cache.putAll(ctx, layer.fills)
	layer.cache.Drop(ctx, layer.pending...)
	layer.fills = nil
	layer.pending = nil
}

// invalidate queues keys to drop on Flush.
func (layer *Layer) invalidate(keys ...kvstore.Key) {
	layer.pending = append(layer.pending, keys...)
}

// fill queues an entry to store on Flush.
func (layer *Layer) fill(key kvstore.Key, value kvstore.Value) {
	layer.fills = append(layer.fills, kvstore.Item{Key: key, Value: value})
}

// fillPermissions queues a permission set to store on Flush.
func (layer *Layer) fillPermissions(key kvstore.Key, set tagstore.PermissionSet) {
	raw, err := encodePermissionSet(set)
	if err != nil {
		layer.cache.log.Warn("encoding permission set failed", zap.Stringer("key", key), zap.Error(err))
		return
	}
	layer.fill(key, raw)
}

// fillActivity queues a recent-activity listing to store on Flush.
func (layer *Layer) fillActivity(key kvstore.Key, recent []tagstore.Activity) {
	raw, err := encodeActivity(recent)
	if err != nil {
		layer.cache.log.Warn("encoding activity failed", zap.Stringer("key", key), zap.Error(err))
		return
	}
	layer.fill(key, raw)
}

// NamespaceCache forwards namespace operations, dropping the permission
// entries of deleted paths.
type NamespaceCache struct {
	layer *Layer
}

// Create forwards to the model.
func (api *NamespaceCache) Create(ctx context.Context, user *tagstore.User, reqs []model.CreateNamespace) ([]uuid.UUID, error) {
	return api.layer.model.Namespaces.Create(ctx, user, reqs)
}

// Get forwards to the model. Descriptions and listings are not cached.
func (api *NamespaceCache) Get(ctx context.Context, nsPaths []string, opts model.NamespaceGetOptions) (map[string]model.NamespaceInfo, error) {
	return api.layer.model.Namespaces.Get(ctx, nsPaths, opts)
}

// Set forwards to the model.
func (api *NamespaceCache) Set(ctx context.Context, descriptions map[string]string) error {
	return api.layer.model.Namespaces.Set(ctx, descriptions)
}

// Delete forwards to the model and drops the permission entries of the
// deleted namespaces.
func (api *NamespaceCache) Delete(ctx context.Context, nsPaths []string) error {
	if err := api.layer.model.Namespaces.Delete(ctx, nsPaths); err != nil {
		return err
	}
	for _, path := range nsPaths {
		api.layer.invalidate(namespacePermissionKey(path))
	}
	return nil
}

// TagCache forwards tag operations, dropping the permission entries of
// deleted paths.
type TagCache struct {
	layer *Layer
}

// Create forwards to the model.
func (api *TagCache) Create(ctx context.Context, user *tagstore.User, reqs []model.CreateTag) ([]uuid.UUID, error) {
	return api.layer.model.Tags.Create(ctx, user, reqs)
}

// Get forwards to the model.
func (api *TagCache) Get(ctx context.Context, tagPaths []string, withDescriptions bool) (map[string]model.TagInfo, error) {
	return api.layer.model.Tags.Get(ctx, tagPaths, withDescriptions)
}

// Set forwards to the model.
func (api *TagCache) Set(ctx context.Context, descriptions map[string]string) error {
	return api.layer.model.Tags.Set(ctx, descriptions)
}

// Delete forwards to the model and drops the permission entries of the
// deleted tags. The activity listings of objects that carried the deleted
// values are left to expire.
func (api *TagCache) Delete(ctx context.Context, tagPaths []string) error {
	if err := api.layer.model.Tags.Delete(ctx, tagPaths); err != nil {
		return err
	}
	for _, path := range tagPaths {
		api.layer.invalidate(tagPermissionKey(path))
	}
	return nil
}

// TagValueCache forwards tag value operations, dropping the activity
// listings they change.
type TagValueCache struct {
	layer *Layer
}

// Set forwards to the model and drops the activity listings of the written
// objects and of the writing user.
func (api *TagValueCache) Set(ctx context.Context, user *tagstore.User, writes map[uuid.UUID]map[string]value.Value) error {
	if err := api.layer.model.Values.Set(ctx, user, writes); err != nil {
		return err
	}
	for objectID := range writes {
		api.layer.invalidate(objectActivityKey(objectID))
	}
	api.layer.invalidate(userActivityKey(user.Username))
	return nil
}

// Get forwards to the model. Value reads are not cached.
func (api *TagValueCache) Get(ctx context.Context, objectIDs []uuid.UUID, tagPaths []string) (map[uuid.UUID]map[string]value.Value, error) {
	return api.layer.model.Values.Get(ctx, objectIDs, tagPaths)
}

// GetOne forwards to the model.
func (api *TagValueCache) GetOne(ctx context.Context, objectID uuid.UUID, tagPath string) (value.Value, error) {
	return api.layer.model.Values.GetOne(ctx, objectID, tagPath)
}

// ObjectIDs forwards to the model.
func (api *TagValueCache) ObjectIDs(ctx context.Context, tagPath string, limit int) ([]uuid.UUID, error) {
	return api.layer.model.Values.ObjectIDs(ctx, tagPath, limit)
}

// Delete forwards to the model and drops the activity listings of the
// touched objects. The listings of the users that wrote the removed values
// are left to expire.
func (api *TagValueCache) Delete(ctx context.Context, pairs []tagstore.ObjectPath) error {
	if err := api.layer.model.Values.Delete(ctx, pairs); err != nil {
		return err
	}
	seen := map[uuid.UUID]bool{}
	for _, pair := range pairs {
		if !seen[pair.ObjectID] {
			seen[pair.ObjectID] = true
			api.layer.invalidate(objectActivityKey(pair.ObjectID))
		}
	}
	return nil
}

// PermissionCache forwards permission operations and implements
// permission.Source with cached permission sets.
type PermissionCache struct {
	layer *Layer
}

// Get forwards to the model. The user-facing read reports exception lists
// by username, which the cached sets do not carry.
func (api *PermissionCache) Get(ctx context.Context, pairs []tagstore.PathOperation) ([]model.PathPermission, error) {
	return api.layer.model.Permissions.Get(ctx, pairs)
}

// Set forwards to the model and drops the entries of the changed paths.
func (api *PermissionCache) Set(ctx context.Context, perms []model.PathPermission) error {
	if err := api.layer.model.Permissions.Set(ctx, perms); err != nil {
		return err
	}
	for _, perm := range perms {
		if perm.Operation.OnNamespace() {
			api.layer.invalidate(namespacePermissionKey(perm.Path))
		} else {
			api.layer.invalidate(tagPermissionKey(perm.Path))
		}
	}
	return nil
}

// NamespacePermissions returns the permission sets of the given namespace
// paths, cached entries first; missing paths are absent from the result.
func (api *PermissionCache) NamespacePermissions(ctx context.Context, nsPaths []string) (map[string]tagstore.PermissionSet, error) {
	hits, misses := api.layer.cache.permissionSets(ctx, namespacePermissionKey, nsPaths)
	if len(misses) > 0 {
		loaded, err := api.layer.model.Permissions.NamespaceSets(ctx, misses)
		if err != nil {
			return nil, err
		}
		for path, set := range loaded {
			api.layer.fillPermissions(namespacePermissionKey(path), set)
			hits[path] = set
		}
	}
	return hits, nil
}

// TagPermissions returns the permission sets of the given tag paths, cached
// entries first; missing paths are absent from the result.
func (api *PermissionCache) TagPermissions(ctx context.Context, tagPaths []string) (map[string]tagstore.PermissionSet, error) {
	hits, misses := api.layer.cache.permissionSets(ctx, tagPermissionKey, tagPaths)
	if len(misses) > 0 {
		loaded, err := api.layer.model.Permissions.TagSets(ctx, misses)
		if err != nil {
			return nil, err
		}
		for path, set := range loaded {
			api.layer.fillPermissions(tagPermissionKey(path), set)
			hits[path] = set
		}
	}
	return hits, nil
}

// ObjectCache forwards object operations, resolving about values through
// the cache. About claims never change once made, so the entries are never
// invalidated.
type ObjectCache struct {
	layer *Layer
}

// Create forwards to the model.
func (api *ObjectCache) Create(ctx context.Context, user *tagstore.User, about string) (uuid.UUID, error) {
	return api.layer.model.Objects.Create(ctx, user, about)
}

// Get returns the ids of the objects carrying the given about values, keyed
// by the requested spelling, resolving through the cache.
func (api *ObjectCache) Get(ctx context.Context, abouts []string) (map[string]uuid.UUID, error) {
	if len(abouts) == 0 {
		return api.layer.model.Objects.Get(ctx, abouts)
	}

	folded := make([]string, 0, len(abouts))
	seen := map[string]bool{}
	for _, about := range abouts {
		f := paths.FoldAbout(about)
		if !seen[f] {
			seen[f] = true
			folded = append(folded, f)
		}
	}

	byFolded, misses := api.layer.cache.abouts(ctx, folded)
	if len(misses) > 0 {
		// Folding is idempotent, so the folded values resolve as abouts.
		loaded, err := api.layer.model.Objects.Get(ctx, misses)
		if err != nil {
			return nil, err
		}
		for f, id := range loaded {
			api.layer.fill(aboutKey(f), id[:])
			byFolded[f] = id
		}
	}

	result := make(map[string]uuid.UUID, len(abouts))
	for _, about := range abouts {
		if id, ok := byFolded[paths.FoldAbout(about)]; ok {
			result[about] = id
		}
	}
	return result, nil
}

// Abouts forwards to the model.
func (api *ObjectCache) Abouts(ctx context.Context, objectIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	return api.layer.model.Objects.Abouts(ctx, objectIDs)
}

// TagPaths forwards to the model.
func (api *ObjectCache) TagPaths(ctx context.Context, objectIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	return api.layer.model.Objects.TagPaths(ctx, objectIDs)
}

// UserCache forwards user operations, dropping what a removed user leaves
// behind in the cache.
type UserCache struct {
	layer *Layer
}

// Create forwards to the model.
func (api *UserCache) Create(ctx context.Context, reqs []model.CreateUser) ([]uuid.UUID, error) {
	return api.layer.model.Users.Create(ctx, reqs)
}

// Get forwards to the model.
func (api *UserCache) Get(ctx context.Context, usernames []string) (map[string]model.UserInfo, error) {
	return api.layer.model.Users.Get(ctx, usernames)
}

// Set forwards to the model. Roles are loaded fresh per request, so nothing
// cached changes.
func (api *UserCache) Set(ctx context.Context, updates []model.UpdateUser) error {
	return api.layer.model.Users.Set(ctx, updates)
}

// Delete forwards to the model and drops the removed users' activity
// listings and the permission entries of their root namespaces. Stale user
// ids left inside other entries match no user and expire with them.
func (api *UserCache) Delete(ctx context.Context, usernames []string) error {
	if err := api.layer.model.Users.Delete(ctx, usernames); err != nil {
		return err
	}
	for _, username := range usernames {
		api.layer.invalidate(userActivityKey(username), namespacePermissionKey(username))
	}
	return nil
}

// Authenticate forwards to the model.
func (api *UserCache) Authenticate(ctx context.Context, username, password string) (*tagstore.User, error) {
	return api.layer.model.Users.Authenticate(ctx, username, password)
}

// Actor forwards to the model.
func (api *UserCache) Actor(ctx context.Context, username string) (*tagstore.User, error) {
	return api.layer.model.Users.Actor(ctx, username)
}

// ActivityCache caches single-subject recent-activity listings, the shape
// the recent-activity queries produce.
type ActivityCache struct {
	layer *Layer
}

// GetForObjects returns the newest writes onto the given objects, serving
// single-object listings from the cache.
func (api *ActivityCache) GetForObjects(ctx context.Context, objectIDs []uuid.UUID) ([]tagstore.Activity, error) {
	if len(objectIDs) != 1 {
		return api.layer.model.Activity.GetForObjects(ctx, objectIDs)
	}
	key := objectActivityKey(objectIDs[0])
	if recent, ok := api.layer.cache.activity(ctx, key); ok {
		return recent, nil
	}
	recent, err := api.layer.model.Activity.GetForObjects(ctx, objectIDs)
	if err != nil {
		return nil, err
	}
	api.layer.fillActivity(key, recent)
	return recent, nil
}

// GetForUsers returns the newest writes by the given users, serving
// single-user listings from the cache. A cached listing proves the user
// existed when it was filled, so the model's existence check is skipped on
// hits.
func (api *ActivityCache) GetForUsers(ctx context.Context, usernames []string) ([]tagstore.Activity, error) {
	if len(usernames) != 1 {
		return api.layer.model.Activity.GetForUsers(ctx, usernames)
	}
	key := userActivityKey(usernames[0])
	if recent, ok := api.layer.cache.activity(ctx, key); ok {
		return recent, nil
	}
	recent, err := api.layer.model.Activity.GetForUsers(ctx, usernames)
	if err != nil {
		return nil, err
	}
	api.layer.fillActivity(key, recent)
	return recent, nil
}
