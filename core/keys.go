// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package core

// StateKey is the on-disk key for one CRDT entity inside a context's
// State column: context_id (32B) || state_key (32B) (spec §6).
type StateKey struct {
	ContextID ContextId
	EntityID  EntityId
}

// Encode renders the 64-byte State column key.
func (k StateKey) Encode() []byte {
	buf := make([]byte, 64)
	copy(buf[:32], k.ContextID[:])
	copy(buf[32:], k.EntityID[:])
	return buf
}

// DecodeStateKey parses a 64-byte State column key.
func DecodeStateKey(b []byte) (StateKey, bool) {
	if len(b) != 64 {
		return StateKey{}, false
	}
	var k StateKey
	copy(k.ContextID[:], b[:32])
	copy(k.EntityID[:], b[32:])
	return k, true
}

// DeltaKey is the on-disk key for one CausalDelta inside a context's
// Delta column: context_id (32B) || delta_id (32B) (spec §6).
type DeltaKey struct {
	ContextID ContextId
	DeltaID   DeltaId
}

// Encode renders the 64-byte Delta column key.
func (k DeltaKey) Encode() []byte {
	buf := make([]byte, 64)
	copy(buf[:32], k.ContextID[:])
	copy(buf[32:], k.DeltaID[:])
	return buf
}

// DecodeDeltaKey parses a 64-byte Delta column key.
func DecodeDeltaKey(b []byte) (DeltaKey, bool) {
	if len(b) != 64 {
		return DeltaKey{}, false
	}
	var k DeltaKey
	copy(k.ContextID[:], b[:32])
	copy(k.DeltaID[:], b[32:])
	return k, true
}

// StateRangeForContext returns the [start, end) byte range covering
// every State key belonging to contextID, for use with RangeScan /
// iter_snapshot.
func StateRangeForContext(contextID ContextId) (start, end []byte) {
	start = make([]byte, 32)
	copy(start, contextID[:])
	end = make([]byte, 32)
	copy(end, contextID[:])
	// increment the last byte that isn't already 0xff to get an
	// exclusive upper bound; contexts are 32-byte hashes so a carry
	// across all 32 bytes only happens for the all-0xff id, which
	// cannot be produced by a hash function in practice.
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			break
		}
		end[i] = 0
	}
	return start, end
}
