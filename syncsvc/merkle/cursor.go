// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package merkle

import (
	"github.com/ugorji/go/codec"

	"github.com/calimero-network/core/errors"
)

// MaxCursorSize is the resume cursor's size cap (spec §4.6 "capped at
// 64 KiB").
const MaxCursorSize = 64 * 1024

var cborHandle = &codec.CborHandle{}

// Cursor encodes enough of a TraversalState to resume it later (spec
// §4.6 "Resume cursor").
type Cursor struct {
	PendingNodes  []NodeId
	PendingLeaves []uint64
	CoveredRanges []KeyRange
}

// NewCursor builds a Cursor from traversal state, returning ok=false
// if the encoded cursor would exceed MaxCursorSize — the caller must
// fall back to SnapshotSync in that case (spec §4.6).
func NewCursor(pendingNodes []NodeId, pendingLeaves []uint64, coveredRanges []KeyRange) (Cursor, bool) {
	cursor := Cursor{
		PendingNodes:  append([]NodeId(nil), pendingNodes...),
		PendingLeaves: append([]uint64(nil), pendingLeaves...),
		CoveredRanges: append([]KeyRange(nil), coveredRanges...),
	}
	data, err := cursor.Marshal()
	if err != nil || len(data) > MaxCursorSize {
		return Cursor{}, false
	}
	return cursor, true
}

// Marshal CBOR-encodes the cursor for the wire/for persistence.
func (c Cursor) Marshal() ([]byte, error) {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, cborHandle)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Storage("failed to encode merkle resume cursor", err)
	}
	return buf, nil
}

// UnmarshalCursor decodes a Cursor previously produced by Marshal,
// rejecting anything above MaxCursorSize before even attempting to
// decode it (spec §4.6 validation gate "cursor ... within size bound
// and parseable").
func UnmarshalCursor(data []byte) (Cursor, error) {
	if len(data) > MaxCursorSize {
		return Cursor{}, errors.IncompatibleTreeParams()
	}
	var c Cursor
	dec := codec.NewDecoderBytes(data, cborHandle)
	if err := dec.Decode(&c); err != nil {
		return Cursor{}, errors.Storage("failed to decode merkle resume cursor", err)
	}
	return c, nil
}
