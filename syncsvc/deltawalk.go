// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package syncsvc

import (
	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/dag"
)

// sentinelMember is the zero identity used on the wire to mean "I have
// nothing more to send you right now, move to the next member" (spec
// §4.5 "Per-principal delta heights are exchanged to bound the walk"),
// grounded on the Rust original's `member == [0; 32]` sentinel in
// delta.rs's bidirectional walk loop.
var sentinelMember = core.PublicKey{}

// MemberHeight is one query in the DeltaSync walk: "send me member's
// deltas starting at height".
type MemberHeight struct {
	Member core.PublicKey
	Height uint64
}

// DeltaSyncWalk drives the per-member height-cursor walk of spec
// §4.5's DeltaSync: it has no network or storage dependency of its own
// so it is unit-testable with synthetic member lists and heights, the
// same way C6's traversal state machine is.
type DeltaSyncWalk struct {
	members  []core.PublicKey
	heights  map[core.PublicKey]uint64
	position int
	done     bool
}

// NewDeltaSyncWalk starts a walk over members, querying each starting
// one past its last known height (knownHeights may omit members never
// seen before, which start at height 0).
func NewDeltaSyncWalk(members []core.PublicKey, knownHeights map[core.PublicKey]uint64) *DeltaSyncWalk {
	heights := make(map[core.PublicKey]uint64, len(knownHeights))
	for m, h := range knownHeights {
		heights[m] = h
	}
	return &DeltaSyncWalk{members: members, heights: heights}
}

// NextQuery returns the next (member, height) to request, or
// ok=false once every member has been walked this pass.
func (w *DeltaSyncWalk) NextQuery() (MemberHeight, bool) {
	if w.done || w.position >= len(w.members) {
		w.done = true
		return MemberHeight{}, false
	}
	member := w.members[w.position]
	return MemberHeight{Member: member, Height: w.heights[member] + 1}, true
}

// RecordApplied advances member's known height after a delta at height
// was applied, so a subsequent NextQuery (on a later pass) resumes
// correctly.
func (w *DeltaSyncWalk) RecordApplied(member core.PublicKey, height uint64) {
	if height > w.heights[member] {
		w.heights[member] = height
	}
}

// AdvanceMember moves on to the next member in the walk, called once
// the current member replies with the empty-delta sentinel (spec
// §4.5's walk terminates per-member on an empty reply, mirroring the
// Rust original's `delta: Some(b"")` sentinel).
func (w *DeltaSyncWalk) AdvanceMember() {
	w.position++
	if w.position >= len(w.members) {
		w.done = true
	}
}

// IsDone reports whether every member has been walked.
func (w *DeltaSyncWalk) IsDone() bool {
	return w.done || w.position >= len(w.members)
}

// Heights returns the walk's current per-member height cursor, to
// persist as each member's delta_height (spec §4.5).
func (w *DeltaSyncWalk) Heights() map[core.PublicKey]uint64 {
	out := make(map[core.PublicKey]uint64, len(w.heights))
	for m, h := range w.heights {
		out[m] = h
	}
	return out
}

// AncestorBackfill reports any delta ids still missing parents in
// store, to request on the same stream before the walk can close its
// frontier (spec §4.5 "Ancestors discovered during addition are
// requested on the same stream recursively until the frontier
// closes").
func AncestorBackfill(store *dag.DeltaStore) []core.DeltaId {
	return store.GetMissingParents()
}
