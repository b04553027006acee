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

import (
	"bytes"

	"github.com/calimero-network/core/core"
)

// LwwRegisterState is a Last-Writer-Wins register: the tuple (hlc,
// value) described in spec §3.
type LwwRegisterState struct {
	HLC   core.HLC
	Value []byte
}

// MarshalLwwRegister serializes a LwwRegisterState as CBOR.
func MarshalLwwRegister(s LwwRegisterState) ([]byte, error) {
	return cborEncode(s)
}

// UnmarshalLwwRegister parses a CBOR-encoded LwwRegisterState.
func UnmarshalLwwRegister(data []byte) (LwwRegisterState, error) {
	var s LwwRegisterState
	if err := cborDecode(data, &s); err != nil {
		return LwwRegisterState{}, err
	}
	return s, nil
}

// MergeLwwRegister implements the LwwRegister merge rule: keep the
// entry with the greater HLC; on a tie, keep the greater value bytes
// (spec §3).
func MergeLwwRegister(a, b LwwRegisterState) LwwRegisterState {
	if a.HLC.Equal(b.HLC) {
		if bytes.Compare(a.Value, b.Value) >= 0 {
			return a
		}
		return b
	}
	if a.HLC.Greater(b.HLC) {
		return a
	}
	return b
}
