// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package merkle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/syncsvc/merkle"
)

func TestCompressDecompressChunkRoundTrips(t *testing.T) {
	chunk := merkle.SnapshotChunk{
		Index:           3,
		StartKey:        [32]byte{1},
		EndKey:          [32]byte{2},
		UncompressedLen: 11,
		Payload:         []byte("hello world"),
	}

	compressed, err := merkle.CompressChunk(chunk)
	require.NoError(t, err)
	assert.Equal(t, chunk.Index, compressed.Index)
	assert.Equal(t, chunk.StartKey, compressed.StartKey)

	decompressed, err := merkle.DecompressChunk(compressed)
	require.NoError(t, err)
	assert.Equal(t, chunk, decompressed)
}

func TestDecompressChunkRejectsCorruptPayload(t *testing.T) {
	_, err := merkle.DecompressChunk(merkle.CompressedChunk{
		UncompressedLen:   5,
		CompressedPayload: []byte("not zstd"),
	})
	assert.Error(t, err)
}
