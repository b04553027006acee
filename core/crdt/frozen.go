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

import "crypto/sha256"

// FrozenState is a content-addressed immutable value set, keyed by
// SHA-256(payload) (spec §3 "Frozen<T>").
type FrozenState struct {
	Values map[[32]byte][]byte
}

// FrozenKey computes the content-address of payload.
func FrozenKey(payload []byte) [32]byte {
	return sha256.Sum256(payload)
}

// MarshalFrozen serializes a FrozenState as CBOR.
func MarshalFrozen(s FrozenState) ([]byte, error) {
	list := make([][]byte, 0, len(s.Values))
	for _, v := range s.Values {
		list = append(list, v)
	}
	return cborEncode(list)
}

// UnmarshalFrozen parses a CBOR-encoded FrozenState.
func UnmarshalFrozen(data []byte) (FrozenState, error) {
	var list [][]byte
	if err := cborDecode(data, &list); err != nil {
		return FrozenState{}, err
	}
	out := FrozenState{Values: make(map[[32]byte][]byte, len(list))}
	for _, v := range list {
		out.Values[FrozenKey(v)] = v
	}
	return out, nil
}

// MergeFrozen implements the Frozen merge rule: union keyed by content
// hash. Equal keys imply equal payloads, so either side's copy can be
// kept without comparison (spec §3).
func MergeFrozen(a, b FrozenState) FrozenState {
	out := FrozenState{Values: make(map[[32]byte][]byte, len(a.Values)+len(b.Values))}
	for k, v := range a.Values {
		out.Values[k] = v
	}
	for k, v := range b.Values {
		if _, ok := out.Values[k]; !ok {
			out.Values[k] = v
		}
	}
	return out
}
