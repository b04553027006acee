// Copyright 2024 Calimero Network
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

// SetElementState tracks one element of an add-wins UnorderedSet: the
// highest HLC of any add, and (if the element has ever been removed)
// the highest HLC of any remove.
type SetElementState struct {
	AddHLC       core.HLC
	TombstoneHLC core.HLC
	HasTombstone bool
}

// UnorderedSetState is an add-wins set keyed by element bytes, encoded
// via the element's content hash so arbitrary payloads can be members
// (spec §3 "UnorderedSet<T>").
type UnorderedSetState struct {
	Elements map[[32]byte]SetElementState
	Payloads map[[32]byte][]byte
}

// MarshalUnorderedSet serializes an UnorderedSetState as CBOR.
func MarshalUnorderedSet(s UnorderedSetState) ([]byte, error) {
	type entry struct {
		Key     [32]byte
		State   SetElementState
		Payload []byte
	}
	list := make([]entry, 0, len(s.Elements))
	for k, st := range s.Elements {
		list = append(list, entry{Key: k, State: st, Payload: s.Payloads[k]})
	}
	return cborEncode(list)
}

// UnmarshalUnorderedSet parses a CBOR-encoded UnorderedSetState.
func UnmarshalUnorderedSet(data []byte) (UnorderedSetState, error) {
	type entry struct {
		Key     [32]byte
		State   SetElementState
		Payload []byte
	}
	var list []entry
	if err := cborDecode(data, &list); err != nil {
		return UnorderedSetState{}, err
	}
	out := UnorderedSetState{
		Elements: make(map[[32]byte]SetElementState, len(list)),
		Payloads: make(map[[32]byte][]byte, len(list)),
	}
	for _, e := range list {
		out.Elements[e.Key] = e.State
		out.Payloads[e.Key] = e.Payload
	}
	return out, nil
}

// MergeUnorderedSet implements the add-wins set merge rule: union of
// elements; per element, AddHLC/TombstoneHLC each take the max seen
// (spec §3).
func MergeUnorderedSet(a, b UnorderedSetState) UnorderedSetState {
	out := UnorderedSetState{
		Elements: make(map[[32]byte]SetElementState, len(a.Elements)+len(b.Elements)),
		Payloads: make(map[[32]byte][]byte, len(a.Payloads)+len(b.Payloads)),
	}
	for k, st := range a.Elements {
		out.Elements[k] = st
		out.Payloads[k] = a.Payloads[k]
	}
	for k, st := range b.Elements {
		existing, ok := out.Elements[k]
		if !ok {
			out.Elements[k] = st
			out.Payloads[k] = b.Payloads[k]
			continue
		}
		merged := existing
		if st.AddHLC.Greater(merged.AddHLC) {
			merged.AddHLC = st.AddHLC
		}
		if st.HasTombstone && (!merged.HasTombstone || st.TombstoneHLC.Greater(merged.TombstoneHLC)) {
			merged.HasTombstone = true
			merged.TombstoneHLC = st.TombstoneHLC
		}
		out.Elements[k] = merged
	}
	return out
}

// IsVisible reports whether element is currently a member: present and
// either never tombstoned, or tombstoned at an HLC not strictly
// greater than its add HLC (spec §3: "stays removed iff its tombstone
// HLC > any add HLC").
func (st SetElementState) IsVisible() bool {
	if !st.HasTombstone {
		return true
	}
	return !st.TombstoneHLC.Greater(st.AddHLC)
}
