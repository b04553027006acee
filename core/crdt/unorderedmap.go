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

// UnorderedMapState is a set of (key, V) pairs, each V carrying its own
// merge-dispatchable envelope (spec §3 "UnorderedMap<K,V>").
type UnorderedMapState struct {
	Entries map[string]core.Envelope
}

// MarshalUnorderedMap serializes an UnorderedMapState as CBOR.
func MarshalUnorderedMap(s UnorderedMapState) ([]byte, error) {
	type entry struct {
		Key   string
		Value core.Envelope
	}
	list := make([]entry, 0, len(s.Entries))
	for k, v := range s.Entries {
		list = append(list, entry{Key: k, Value: v})
	}
	return cborEncode(list)
}

// UnmarshalUnorderedMap parses a CBOR-encoded UnorderedMapState.
func UnmarshalUnorderedMap(data []byte) (UnorderedMapState, error) {
	type entry struct {
		Key   string
		Value core.Envelope
	}
	var list []entry
	if err := cborDecode(data, &list); err != nil {
		return UnorderedMapState{}, err
	}
	out := UnorderedMapState{Entries: make(map[string]core.Envelope, len(list))}
	for _, e := range list {
		out.Entries[e.Key] = e.Value
	}
	return out, nil
}

// MergeUnorderedMap implements the UnorderedMap merge rule: per key,
// recursive merge of V; a key present in only one input passes through
// unmodified (spec §3).
func MergeUnorderedMap(a, b UnorderedMapState) (UnorderedMapState, error) {
	out := UnorderedMapState{Entries: make(map[string]core.Envelope, len(a.Entries)+len(b.Entries))}
	for k, v := range a.Entries {
		out.Entries[k] = v
	}
	for k, v := range b.Entries {
		existing, ok := out.Entries[k]
		if !ok {
			out.Entries[k] = v
			continue
		}
		merged, err := MergeEnvelope(existing, v)
		if err != nil {
			return UnorderedMapState{}, err
		}
		out.Entries[k] = merged
	}
	return out, nil
}
