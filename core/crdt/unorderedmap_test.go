// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/core/crdt"
)

func TestUnorderedMapMergesCommonKeyRecursively(t *testing.T) {
	a := crdt.UnorderedMapState{Entries: map[string]core.Envelope{"k": counterEnvelope(t, 1)}}
	b := crdt.UnorderedMapState{Entries: map[string]core.Envelope{"k": counterEnvelope(t, 9)}}

	merged, err := crdt.MergeUnorderedMap(a, b)
	require.NoError(t, err)

	decoded, err := crdt.UnmarshalCounter(merged.Entries["k"].Payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), decoded.Value())
}

func TestUnorderedMapKeyPresentOnOneSidePassesThrough(t *testing.T) {
	a := crdt.UnorderedMapState{Entries: map[string]core.Envelope{"only-a": counterEnvelope(t, 1)}}
	b := crdt.UnorderedMapState{Entries: map[string]core.Envelope{}}

	merged, err := crdt.MergeUnorderedMap(a, b)
	require.NoError(t, err)
	assert.Contains(t, merged.Entries, "only-a")
}

func TestUnorderedMapMarshalRoundTrip(t *testing.T) {
	s := crdt.UnorderedMapState{Entries: map[string]core.Envelope{"k": counterEnvelope(t, 1)}}
	data, err := crdt.MarshalUnorderedMap(s)
	require.NoError(t, err)

	decoded, err := crdt.UnmarshalUnorderedMap(data)
	require.NoError(t, err)
	assert.Contains(t, decoded.Entries, "k")
}
