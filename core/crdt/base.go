// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package crdt implements the merge algebra of spec §3 (C3): one pure,
// store-independent merge function per core.CRDTKind, plus the Root
// dispatcher that recurses over composite application state via a
// registered name->function table (spec §9).
package crdt

import (
	"bytes"

	"github.com/ugorji/go/codec"

	"github.com/calimero-network/core/errors"
)

var cborHandle = &codec.CborHandle{}

func cborEncode(v any) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := codec.NewEncoder(buf, cborHandle)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Merge("failed to cbor-encode crdt payload", err)
	}
	return buf.Bytes(), nil
}

func cborDecode(data []byte, v any) error {
	dec := codec.NewDecoderBytes(data, cborHandle)
	if err := dec.Decode(v); err != nil {
		return errors.Merge("failed to cbor-decode crdt payload", err)
	}
	return nil
}

// ErrMismatchedMergeType is returned when a merge function is handed a
// payload that doesn't decode into the shape it expects.
var ErrMismatchedMergeType = errors.New("crdt: mismatched merge payload type")
