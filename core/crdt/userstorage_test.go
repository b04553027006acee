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

func TestUserStorageUnionsPerPrincipal(t *testing.T) {
	a := crdt.UserStorageState{ByPrincipal: map[core.PublicKey]core.Envelope{principal(1): counterEnvelope(t, 1)}}
	b := crdt.UserStorageState{ByPrincipal: map[core.PublicKey]core.Envelope{principal(2): counterEnvelope(t, 2)}}

	merged, err := crdt.MergeUserStorage(a, b)
	require.NoError(t, err)
	assert.Len(t, merged.ByPrincipal, 2)
}

func TestUserStorageMergesSamePrincipalRecursively(t *testing.T) {
	a := crdt.UserStorageState{ByPrincipal: map[core.PublicKey]core.Envelope{principal(1): counterEnvelope(t, 1)}}
	b := crdt.UserStorageState{ByPrincipal: map[core.PublicKey]core.Envelope{principal(1): counterEnvelope(t, 4)}}

	merged, err := crdt.MergeUserStorage(a, b)
	require.NoError(t, err)

	decoded, err := crdt.UnmarshalCounter(merged.ByPrincipal[principal(1)].Payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), decoded.Value())
}
