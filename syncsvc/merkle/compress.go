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
	"github.com/klauspost/compress/zstd"

	"github.com/calimero-network/core/errors"
)

// CompressChunk compresses a SnapshotChunk's payload for the wire
// (spec §4.6 "leaf replies carry compressed chunks; the receiver
// decompresses, merges, and applies each one").
func CompressChunk(chunk SnapshotChunk) (CompressedChunk, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return CompressedChunk{}, errors.Storage("failed to init chunk compressor", err)
	}
	defer enc.Close()

	compressed := enc.EncodeAll(chunk.Payload, make([]byte, 0, len(chunk.Payload)))

	return CompressedChunk{
		Index:             chunk.Index,
		StartKey:          chunk.StartKey,
		EndKey:            chunk.EndKey,
		UncompressedLen:   chunk.UncompressedLen,
		CompressedPayload: compressed,
	}, nil
}

// DecompressChunk reverses CompressChunk, verifying the decompressed
// length matches the chunk's advertised UncompressedLen before the
// caller re-derives its leaf hash.
func DecompressChunk(chunk CompressedChunk) (SnapshotChunk, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return SnapshotChunk{}, errors.Storage("failed to init chunk decompressor", err)
	}
	defer dec.Close()

	payload, err := dec.DecodeAll(chunk.CompressedPayload, make([]byte, 0, chunk.UncompressedLen))
	if err != nil {
		return SnapshotChunk{}, errors.Storage("failed to decompress merkle chunk", err)
	}
	if uint32(len(payload)) != chunk.UncompressedLen {
		return SnapshotChunk{}, errors.Storage("decompressed chunk length mismatch", nil)
	}

	return SnapshotChunk{
		Index:           chunk.Index,
		StartKey:        chunk.StartKey,
		EndKey:          chunk.EndKey,
		UncompressedLen: chunk.UncompressedLen,
		Payload:         payload,
	}, nil
}
