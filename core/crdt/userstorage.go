// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package crdt

import "github.com/calimero-network/core/core"

// UserStorageState is a map from principal to a per-principal
// recursively-mergeable value (spec §3 "UserStorage<T>").
type UserStorageState struct {
	ByPrincipal map[core.PublicKey]core.Envelope
}

// MarshalUserStorage serializes a UserStorageState as CBOR.
func MarshalUserStorage(s UserStorageState) ([]byte, error) {
	type entry struct {
		Principal core.PublicKey
		Value     core.Envelope
	}
	list := make([]entry, 0, len(s.ByPrincipal))
	for p, v := range s.ByPrincipal {
		list = append(list, entry{Principal: p, Value: v})
	}
	return cborEncode(list)
}

// UnmarshalUserStorage parses a CBOR-encoded UserStorageState.
func UnmarshalUserStorage(data []byte) (UserStorageState, error) {
	type entry struct {
		Principal core.PublicKey
		Value     core.Envelope
	}
	var list []entry
	if err := cborDecode(data, &list); err != nil {
		return UserStorageState{}, err
	}
	out := UserStorageState{ByPrincipal: make(map[core.PublicKey]core.Envelope, len(list))}
	for _, e := range list {
		out.ByPrincipal[e.Principal] = e.Value
	}
	return out, nil
}

// MergeUserStorage implements the UserStorage merge rule: union,
// per-principal recursive merge (spec §3).
func MergeUserStorage(a, b UserStorageState) (UserStorageState, error) {
	out := UserStorageState{ByPrincipal: make(map[core.PublicKey]core.Envelope, len(a.ByPrincipal)+len(b.ByPrincipal))}
	for p, v := range a.ByPrincipal {
		out.ByPrincipal[p] = v
	}
	for p, v := range b.ByPrincipal {
		existing, ok := out.ByPrincipal[p]
		if !ok {
			out.ByPrincipal[p] = v
			continue
		}
		merged, err := MergeEnvelope(existing, v)
		if err != nil {
			return UserStorageState{}, err
		}
		out.ByPrincipal[p] = merged
	}
	return out, nil
}
