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

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// ComputeRootHash derives the 32-byte digest over the canonical
// serialization of a context's state (spec §3 "Root hash"): records
// sorted ascending by key, each framed as
// len(key) || key || len(value) || value, concatenated and hashed.
// An empty record set hashes to the all-zero id (spec §3
// "[0;32] denotes uninitialized/empty").
func ComputeRootHash(records []CanonicalRecord) Id {
	if len(records) == 0 {
		return ZeroId
	}

	sorted := make([]CanonicalRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key[:], sorted[j].Key[:]) < 0
	})

	h := sha256.New()
	var lenBuf [4]byte
	for _, r := range sorted {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(r.Key)))
		h.Write(lenBuf[:])
		h.Write(r.Key[:])
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(r.Value)))
		h.Write(lenBuf[:])
		h.Write(r.Value)
	}

	var out Id
	copy(out[:], h.Sum(nil))
	return out
}
