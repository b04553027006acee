// Copyright 2024 Calimero Network
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

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/core/crdt"
)

func principal(b byte) core.PublicKey {
	var p core.PublicKey
	p[0] = b
	return p
}

func TestCounterThreeReplicasConverge(t *testing.T) {
	a := core.PublicKey{}
	b := principal(1)
	c := principal(2)

	stateA := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(a, 1).Increment(a, 1)
	stateB := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(b, 1).Increment(b, 1)
	stateC := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(c, 1).Increment(c, 1)

	merged := crdt.MergeCounter(crdt.MergeCounter(stateA, stateB), stateC)
	assert.Equal(t, uint64(6), merged.Value())

	// order independence.
	alt := crdt.MergeCounter(stateC, crdt.MergeCounter(stateA, stateB))
	assert.Equal(t, merged.Value(), alt.Value())
}

func TestCounterMergeIsIdempotent(t *testing.T) {
	a := principal(1)
	s := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(a, 5)
	assert.Equal(t, s.Value(), crdt.MergeCounter(s, s).Value())
}

func TestCounterMergeIsCommutative(t *testing.T) {
	a := principal(1)
	b := principal(2)
	s1 := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(a, 3)
	s2 := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(b, 4)

	assert.Equal(t, crdt.MergeCounter(s1, s2).Value(), crdt.MergeCounter(s2, s1).Value())
}

func TestCounterMergeIsAssociative(t *testing.T) {
	a, b, c := principal(1), principal(2), principal(3)
	s1 := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(a, 1)
	s2 := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(b, 1)
	s3 := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(c, 1)

	left := crdt.MergeCounter(crdt.MergeCounter(s1, s2), s3)
	right := crdt.MergeCounter(s1, crdt.MergeCounter(s2, s3))
	assert.Equal(t, left.Value(), right.Value())
}

func TestCounterMarshalRoundTrip(t *testing.T) {
	s := crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(principal(1), 7)
	data, err := crdt.MarshalCounter(s)
	assert.NoError(t, err)

	decoded, err := crdt.UnmarshalCounter(data)
	assert.NoError(t, err)
	assert.Equal(t, s.Value(), decoded.Value())
}
