// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package syncsvc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/syncsvc"
)

func TestNegotiatorCoalescesConcurrentAttempts(t *testing.T) {
	n := syncsvc.NewNegotiator()
	ctx := core.ContextId{1}
	peer := member(1)

	release, ok := n.Begin(ctx, peer)
	require.True(t, ok)
	assert.True(t, n.IsRunning(ctx, peer))

	_, ok = n.Begin(ctx, peer)
	assert.False(t, ok, "a second concurrent attempt must coalesce onto the running one")

	release()
	assert.False(t, n.IsRunning(ctx, peer))

	_, ok = n.Begin(ctx, peer)
	assert.True(t, ok, "a new attempt after release must be allowed to start")
}

func TestNegotiatorTracksPairsIndependently(t *testing.T) {
	n := syncsvc.NewNegotiator()
	ctx := core.ContextId{1}

	_, ok := n.Begin(ctx, member(1))
	require.True(t, ok)

	_, ok = n.Begin(ctx, member(2))
	assert.True(t, ok, "a different peer in the same context must not be blocked")
}
