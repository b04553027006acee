// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package buffer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/dag"
	"github.com/calimero-network/core/syncsvc/buffer"
)

func deltaID(b byte) core.DeltaId {
	var id core.DeltaId
	id[0] = b
	return id
}

func TestBufferThenDrainReturnsFIFOOrder(t *testing.T) {
	b, err := buffer.New(buffer.Options{Capacity: 10})
	require.NoError(t, err)

	ctx := context.Background()
	b.Buffer(ctx, deltaID(1), []dag.Action{{Key: []byte("a")}})
	b.Buffer(ctx, deltaID(2), []dag.Action{{Key: []byte("b")}})
	b.Buffer(ctx, deltaID(3), []dag.Action{{Key: []byte("c")}})

	entries := b.Drain()
	require.Len(t, entries, 3)
	assert.Equal(t, deltaID(1), entries[0].DeltaID)
	assert.Equal(t, deltaID(2), entries[1].DeltaID)
	assert.Equal(t, deltaID(3), entries[2].DeltaID)
	assert.Equal(t, 0, b.Len())
}

func TestBufferIsIdempotentPerDeltaID(t *testing.T) {
	b, err := buffer.New(buffer.Options{Capacity: 10})
	require.NoError(t, err)

	ctx := context.Background()
	b.Buffer(ctx, deltaID(1), []dag.Action{{Key: []byte("a")}})
	b.Buffer(ctx, deltaID(1), []dag.Action{{Key: []byte("a-redelivered")}})

	assert.Equal(t, 1, b.Len())
}

func TestBufferOverflowEvictsOldest(t *testing.T) {
	b, err := buffer.New(buffer.Options{Capacity: 2})
	require.NoError(t, err)

	ctx := context.Background()
	b.Buffer(ctx, deltaID(1), nil)
	b.Buffer(ctx, deltaID(2), nil)
	b.Buffer(ctx, deltaID(3), nil)

	entries := b.Drain()
	require.Len(t, entries, 2)
	assert.Equal(t, deltaID(2), entries[0].DeltaID)
	assert.Equal(t, deltaID(3), entries[1].DeltaID)
}

func TestFinishSyncReplaysInFIFOOrderThenClears(t *testing.T) {
	b, err := buffer.New(buffer.Options{Capacity: 10})
	require.NoError(t, err)

	ctx := context.Background()
	b.Buffer(ctx, deltaID(1), nil)
	b.Buffer(ctx, deltaID(2), nil)

	var replayed []core.DeltaId
	err = b.FinishSync(func(id core.DeltaId, _ []dag.Action) error {
		replayed = append(replayed, id)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []core.DeltaId{deltaID(1), deltaID(2)}, replayed)
	assert.Equal(t, 0, b.Len())
}

func TestFinishSyncStopsOnFirstReplayError(t *testing.T) {
	b, err := buffer.New(buffer.Options{Capacity: 10})
	require.NoError(t, err)

	ctx := context.Background()
	b.Buffer(ctx, deltaID(1), nil)
	b.Buffer(ctx, deltaID(2), nil)

	sentinel := assertErr("boom")
	replayCount := 0
	err = b.FinishSync(func(core.DeltaId, []dag.Action) error {
		replayCount++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, replayCount)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestCrashResetDiscardsBufferedDeltas(t *testing.T) {
	b, err := buffer.New(buffer.Options{Capacity: 10})
	require.NoError(t, err)

	ctx := context.Background()
	b.Buffer(ctx, deltaID(1), nil)
	b.CrashReset()

	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Drain())
}
