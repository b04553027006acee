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

// VectorState is a positional array of CRDT-bearing envelopes (spec §3
// "Vector<T>").
type VectorState struct {
	Slots []core.Envelope
}

// MarshalVector serializes a VectorState as CBOR.
func MarshalVector(s VectorState) ([]byte, error) {
	return cborEncode(s.Slots)
}

// UnmarshalVector parses a CBOR-encoded VectorState.
func UnmarshalVector(data []byte) (VectorState, error) {
	var slots []core.Envelope
	if err := cborDecode(data, &slots); err != nil {
		return VectorState{}, err
	}
	return VectorState{Slots: slots}, nil
}

// MergeVector implements the Vector merge rule: per-index recursive
// merge, with the result length being the max of the two input lengths
// (spec §3). A slot present in only one input passes through
// unmodified.
func MergeVector(a, b VectorState) (VectorState, error) {
	n := len(a.Slots)
	if len(b.Slots) > n {
		n = len(b.Slots)
	}
	out := VectorState{Slots: make([]core.Envelope, n)}
	for i := 0; i < n; i++ {
		has0 := i < len(a.Slots)
		has1 := i < len(b.Slots)
		switch {
		case has0 && has1:
			merged, err := MergeEnvelope(a.Slots[i], b.Slots[i])
			if err != nil {
				return VectorState{}, err
			}
			out.Slots[i] = merged
		case has0:
			out.Slots[i] = a.Slots[i]
		case has1:
			out.Slots[i] = b.Slots[i]
		}
	}
	return out, nil
}
