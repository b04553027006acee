// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package core holds the identifiers, keys and CRDT-kind tags shared by
// every other package in the replication core (spec §3).
package core

import (
	"bytes"
	"encoding/hex"
)

// Id is an opaque 32-byte identifier: a cryptographic hash or a public
// key, depending on role. Equality is byte-equality; ordering is
// lexicographic byte order.
type Id [32]byte

// ZeroId denotes "uninitialized/empty" (e.g. an empty root hash, or a
// genesis delta's parent).
var ZeroId = Id{}

// ContextId, ApplicationId, BlobId, PublicKey, DeltaId and EntityId are
// named roles for Id, per spec §3.
type (
	ContextId     = Id
	ApplicationId = Id
	BlobId        = Id
	PublicKey     = Id
	DeltaId       = Id
	EntityId      = Id
)

// String renders the identifier as lowercase hex.
func (id Id) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the identifier's 32 bytes as a slice.
func (id Id) Bytes() []byte {
	return id[:]
}

// IsZero reports whether id is the all-zero identifier.
func (id Id) IsZero() bool {
	return id == ZeroId
}

// Less reports whether id sorts strictly before other in lexicographic
// byte order.
func (id Id) Less(other Id) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// Compare returns -1, 0 or 1 as id is less than, equal to, or greater
// than other, in lexicographic byte order.
func (id Id) Compare(other Id) int {
	return bytes.Compare(id[:], other[:])
}

// IdFromBytes copies b (which must be exactly 32 bytes) into an Id.
func IdFromBytes(b []byte) (Id, bool) {
	var id Id
	if len(b) != 32 {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// SortIds sorts ids in place in ascending lexicographic order.
func SortIds(ids []Id) {
	// insertion sort is adequate: this only ever runs over small sets
	// (DAG heads, covered ranges, member lists), never full snapshots.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Less(ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
