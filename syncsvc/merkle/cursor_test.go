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

func TestNewCursorMarshalUnmarshalRoundTrips(t *testing.T) {
	nodes := []merkle.NodeId{{Level: 1, Index: 2}, {Level: 1, Index: 3}}
	leaves := []uint64{7, 8}
	ranges := []merkle.KeyRange{{Start: [32]byte{1}, End: [32]byte{2}}}

	cursor, ok := merkle.NewCursor(nodes, leaves, ranges)
	require.True(t, ok)

	data, err := cursor.Marshal()
	require.NoError(t, err)

	decoded, err := merkle.UnmarshalCursor(data)
	require.NoError(t, err)
	assert.Equal(t, cursor, decoded)
}

func TestNewCursorOverflowsOnOversizedState(t *testing.T) {
	leaves := make([]uint64, 70_000)
	for i := range leaves {
		leaves[i] = uint64(i)
	}

	_, ok := merkle.NewCursor(nil, leaves, nil)
	assert.False(t, ok)
}

func TestUnmarshalCursorRejectsOversizedInput(t *testing.T) {
	oversized := make([]byte, merkle.MaxCursorSize+1)
	_, err := merkle.UnmarshalCursor(oversized)
	assert.Error(t, err)
}

func TestUnmarshalCursorRejectsGarbage(t *testing.T) {
	_, err := merkle.UnmarshalCursor([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
