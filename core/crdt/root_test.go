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

func TestMergeEnvelopeRejectsMismatchedKinds(t *testing.T) {
	a := counterEnvelope(t, 1)
	b := core.Envelope{Kind: core.CRDTLwwRegister}

	_, err := crdt.MergeEnvelope(a, b)
	assert.Error(t, err)
}

func TestMergeEnvelopeDispatchesToCounter(t *testing.T) {
	a := counterEnvelope(t, 1)
	b := counterEnvelope(t, 1) // same principal, independent path: value is still 1 on merge of identical states

	merged, err := crdt.MergeEnvelope(a, b)
	require.NoError(t, err)

	decoded, err := crdt.UnmarshalCounter(merged.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), decoded.Value())
}

func TestMergeEnvelopeDispatchesToCustomRegisteredMerger(t *testing.T) {
	crdt.RegisterCustomMerger("test-append", func(a, b []byte) ([]byte, error) {
		return append(append([]byte{}, a...), b...), nil
	})

	envA := core.Envelope{Kind: core.CRDTCustom, CustomTag: "test-append", Payload: []byte("foo")}
	envB := core.Envelope{Kind: core.CRDTCustom, CustomTag: "test-append", Payload: []byte("bar")}

	merged, err := crdt.MergeEnvelope(envA, envB)
	require.NoError(t, err)
	assert.Equal(t, []byte("foobar"), merged.Payload)
}

func TestMergeEnvelopeHLCTakesMax(t *testing.T) {
	a := core.Envelope{Kind: core.CRDTCounter, HLC: hlc(1, 0), Payload: mustCounterPayload(t, 0)}
	b := core.Envelope{Kind: core.CRDTCounter, HLC: hlc(9, 0), Payload: mustCounterPayload(t, 0)}

	merged, err := crdt.MergeEnvelope(a, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), merged.HLC.PhysicalMs)
}

func mustCounterPayload(t *testing.T, value uint64) []byte {
	t.Helper()
	payload, err := crdt.MarshalCounter(crdt.CounterState{Increments: map[core.PublicKey]uint64{}}.Increment(principal(1), value))
	require.NoError(t, err)
	return payload
}
