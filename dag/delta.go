// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package dag implements the causal delta DAG (spec §4.4, C4): a
// durable, content-addressed store of CausalDelta records with parent
// links, supporting idempotent add, the missing-parent walk, and
// cascade application once blocking parents resolve.
package dag

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/ugorji/go/codec"

	"github.com/calimero-network/core/core"
)

// Action is one primitive store mutation produced by a single
// application invocation (spec §3: "an opaque, ordered list of
// primitive store mutations").
type Action struct {
	Key   []byte
	Value []byte
}

// CausalDelta is one causally-linked unit of mutation (spec §3).
type CausalDelta struct {
	ID               core.DeltaId
	Parents          []core.DeltaId
	HLC              core.HLC
	Author           core.PublicKey
	ExpectedRootHash core.Id
	Payload          []Action
}

var cborHandle = &codec.CborHandle{}

// MarshalDelta serializes a CausalDelta as CBOR, for storage in the
// Delta column and for transmission during DeltaSync.
func MarshalDelta(d CausalDelta) ([]byte, error) {
	return encodeCbor(d)
}

// UnmarshalDelta parses a CBOR-encoded CausalDelta.
func UnmarshalDelta(data []byte) (CausalDelta, error) {
	var d CausalDelta
	if err := decodeCbor(data, &d); err != nil {
		return CausalDelta{}, err
	}
	return d, nil
}

func encodeCbor(v any) ([]byte, error) {
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeCbor(data []byte, v any) error {
	dec := codec.NewDecoderBytes(data, cborHandle)
	return dec.Decode(v)
}

// HashPayload computes H(payload), the digest folded into a delta's
// id (spec §3 "id = H(parents || hlc || author || H(payload) ||
// expected_root_hash)").
func HashPayload(payload []Action) core.Id {
	data, err := encodeCbor(payload)
	if err != nil {
		// CBOR-encoding a slice of (Key, Value) byte pairs cannot fail;
		// a failure here means the encoder itself is broken.
		panic("dag: failed to encode delta payload for hashing: " + err.Error())
	}
	return sha256.Sum256(data)
}

// ComputeDeltaID computes the content-addressed id of a delta from its
// fields, per spec §3.
func ComputeDeltaID(parents []core.DeltaId, hlc core.HLC, author core.PublicKey, payloadHash, expectedRootHash core.Id) core.DeltaId {
	h := sha256.New()
	for _, p := range parents {
		h.Write(p[:])
	}
	var hlcBuf [8 + 4]byte
	binary.LittleEndian.PutUint64(hlcBuf[:8], hlc.PhysicalMs)
	binary.LittleEndian.PutUint32(hlcBuf[8:], hlc.Logical)
	h.Write(hlcBuf[:])
	h.Write(hlc.Node[:])
	h.Write(author[:])
	h.Write(payloadHash[:])
	h.Write(expectedRootHash[:])
	var out core.Id
	copy(out[:], h.Sum(nil))
	return out
}

// IsGenesis reports whether d has no real parent (spec §3: "A delta
// with parents = [0;32] is a genesis delta").
func (d CausalDelta) IsGenesis() bool {
	return len(d.Parents) == 1 && d.Parents[0] == core.ZeroId
}
