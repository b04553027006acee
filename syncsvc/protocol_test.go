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

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/syncsvc"
)

func baseSummary(root core.Id) syncsvc.HandshakeSummary {
	return syncsvc.HandshakeSummary{
		RootHash:            root,
		HasApplicationBlob:  true,
		EntityCountEstimate: 100,
		SupportsMerkle:      true,
	}
}

func TestSelectProtocolEqualRootHashesIsNone(t *testing.T) {
	root := core.Id{1}
	p := syncsvc.SelectProtocol(baseSummary(root), baseSummary(root))
	assert.Equal(t, syncsvc.ProtocolNone, p)
}

func TestSelectProtocolFreshSideGetsSnapshotSync(t *testing.T) {
	fresh := baseSummary(core.ZeroId)
	caughtUp := baseSummary(core.Id{1})
	assert.Equal(t, syncsvc.ProtocolSnapshotSync, syncsvc.SelectProtocol(fresh, caughtUp))
	assert.Equal(t, syncsvc.ProtocolSnapshotSync, syncsvc.SelectProtocol(caughtUp, fresh))
}

func TestSelectProtocolMissingBlobPrioritizesBlobShare(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	remote.HasApplicationBlob = false
	assert.Equal(t, syncsvc.ProtocolBlobShare, syncsvc.SelectProtocol(local, remote))
}

func TestSelectProtocolHighDivergencePrefersHashComparison(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	local.EntityCountEstimate = 10
	remote.EntityCountEstimate = 10
	local.DagHeads = []core.DeltaId{{1}, {2}, {3}, {4}, {5}, {6}}
	remote.DagHeads = nil

	assert.Equal(t, syncsvc.ProtocolHashComparison, syncsvc.SelectProtocol(local, remote))
}

func TestSelectProtocolSparseDeepTreePrefersSubtreePrefetch(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	local.EntityCountEstimate = 100_000
	remote.EntityCountEstimate = 100_000
	local.SparseDeepTree = true
	remote.SparseDeepTree = true
	local.DagHeads = []core.DeltaId{{1}}
	remote.DagHeads = []core.DeltaId{{1}, {2}}

	assert.Equal(t, syncsvc.ProtocolSubtreePrefetch, syncsvc.SelectProtocol(local, remote))
}

func TestSelectProtocolLargeTreeSmallDiffPrefersBloomFilterDelta(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	local.EntityCountEstimate = 100_000
	remote.EntityCountEstimate = 100_000
	local.LargeTree = true
	remote.LargeTree = true
	local.DagHeads = []core.DeltaId{{1}}
	remote.DagHeads = []core.DeltaId{{1}, {2}}

	assert.Equal(t, syncsvc.ProtocolBloomFilterDelta, syncsvc.SelectProtocol(local, remote))
}

func TestSelectProtocolSmallHeadGapPrefersDeltaSync(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	local.DagHeads = []core.DeltaId{{1}, {2}}
	remote.DagHeads = []core.DeltaId{{1}, {2}, {3}}

	assert.Equal(t, syncsvc.ProtocolDeltaSync, syncsvc.SelectProtocol(local, remote))
}

func TestSelectProtocolDefaultsToSnapshotSyncOnLargeHeadGap(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	remote.DagHeads = make([]core.DeltaId, 50)
	for i := range remote.DagHeads {
		remote.DagHeads[i] = core.DeltaId{byte(i + 1)}
	}

	assert.Equal(t, syncsvc.ProtocolSnapshotSync, syncsvc.SelectProtocol(local, remote))
}

func TestSelectProtocolFallsBackWhenMerkleUnsupported(t *testing.T) {
	local := baseSummary(core.Id{1})
	remote := baseSummary(core.Id{2})
	remote.SupportsMerkle = false
	local.DagHeads = []core.DeltaId{{1}}
	remote.DagHeads = []core.DeltaId{{1}, {2}}

	assert.Equal(t, syncsvc.ProtocolDeltaSync, syncsvc.SelectProtocol(local, remote))
}
