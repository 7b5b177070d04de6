// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package cache

import (
	"encoding/json"

	"storj.io/tagstore"
	"storj.io/tagstore/private/kvstore"
)

// storedPermission is the wire form of one permission entry, a compact
// [policy, exception ids] pair.
type storedPermission struct {
	Policy     tagstore.Policy
	Exceptions []int
}

// MarshalJSON implements json.Marshaler.
func (p storedPermission) MarshalJSON() ([]byte, error) {
	exceptions := p.Exceptions
	if exceptions == nil {
		exceptions = []int{}
	}
	return json.Marshal([2]any{p.Policy, exceptions})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *storedPermission) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &p.Policy); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &p.Exceptions)
}

func encodePermissionSet(set tagstore.PermissionSet) (kvstore.Value, error) {
	wire := make(map[tagstore.Operation]storedPermission, len(set))
	for op, perm := range set {
		wire[op] = storedPermission{Policy: perm.Policy, Exceptions: perm.Exceptions}
	}
	data, err := json.Marshal(wire)
	return kvstore.Value(data), Error.Wrap(err)
}

func decodePermissionSet(data kvstore.Value) (tagstore.PermissionSet, error) {
	var wire map[tagstore.Operation]storedPermission
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, Error.Wrap(err)
	}
	set := make(tagstore.PermissionSet, len(wire))
	for op, perm := range wire {
		set[op] = tagstore.Permission{Policy: perm.Policy, Exceptions: perm.Exceptions}
	}
	return set, nil
}

func encodeActivity(recent []tagstore.Activity) (kvstore.Value, error) {
	if recent == nil {
		recent = []tagstore.Activity{}
	}
	data, err := json.Marshal(recent)
	return kvstore.Value(data), Error.Wrap(err)
}

func decodeActivity(data kvstore.Value) ([]tagstore.Activity, error) {
	var recent []tagstore.Activity
	if err := json.Unmarshal(data, &recent); err != nil {
		return nil, Error.Wrap(err)
	}
	return recent, nil
}
