// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package syncsvc

import "github.com/calimero-network/core/core"

// Protocol identifies the sync strategy the negotiator selected for a
// (context, peer) pair (spec §4.5 "Protocol selection").
type Protocol int

const (
	ProtocolNone Protocol = iota
	ProtocolSnapshotSync
	ProtocolBlobShare
	ProtocolHashComparison
	ProtocolSubtreePrefetch
	ProtocolBloomFilterDelta
	ProtocolDeltaSync
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNone:
		return "none"
	case ProtocolSnapshotSync:
		return "snapshot_sync"
	case ProtocolBlobShare:
		return "blob_share"
	case ProtocolHashComparison:
		return "hash_comparison"
	case ProtocolSubtreePrefetch:
		return "subtree_prefetch"
	case ProtocolBloomFilterDelta:
		return "bloom_filter_delta"
	case ProtocolDeltaSync:
		return "delta_sync"
	default:
		return "unknown"
	}
}

// HandshakeSummary is the state one side contributes to protocol
// selection, carried in the C5 handshake's Init message (spec §4.5
// "Init { context_id, party_id, root_hash, application_id, dag_heads,
// entity_count_estimate, tree_params?, merkle_root?, next_nonce }").
type HandshakeSummary struct {
	RootHash            core.Id
	HasApplicationBlob  bool
	EntityCountEstimate uint64
	DagHeads            []core.DeltaId

	// SupportsMerkle is false when either side omitted tree_params or
	// merkle_root, forcing the selector to skip every Merkle-family
	// rule below BlobShare (spec §4.5 step 3).
	SupportsMerkle bool
	SparseDeepTree bool
	LargeTree      bool
}

// divergenceThreshold is the fraction of the smaller side's entity
// count, above which a full hash comparison is cheaper than trying to
// bound a delta walk (spec §4.5 step 4, "> 50%").
const divergenceThreshold = 0.5

// SelectProtocol implements the deterministic rule table of spec §4.5
// (CIP-2.3): each rule is evaluated in order and the first match wins,
// so a later-added rule is always strictly dominated by the simpler
// ones above it.
func SelectProtocol(local, remote HandshakeSummary) Protocol {
	if local.RootHash == remote.RootHash {
		return ProtocolNone
	}

	localFresh := local.RootHash == core.ZeroId
	remoteFresh := remote.RootHash == core.ZeroId
	if localFresh != remoteFresh {
		return ProtocolSnapshotSync
	}

	if !local.HasApplicationBlob || !remote.HasApplicationBlob {
		return ProtocolBlobShare
	}

	if !local.SupportsMerkle || !remote.SupportsMerkle {
		return deltaOrSnapshot(local, remote)
	}

	if estimatedDivergence(local, remote) > divergenceThreshold {
		return ProtocolHashComparison
	}

	if local.SparseDeepTree && remote.SparseDeepTree {
		return ProtocolSubtreePrefetch
	}

	if local.LargeTree && remote.LargeTree {
		return ProtocolBloomFilterDelta
	}

	return deltaOrSnapshot(local, remote)
}

func deltaOrSnapshot(local, remote HandshakeSummary) Protocol {
	if headGapWithinBound(local.DagHeads, remote.DagHeads) {
		return ProtocolDeltaSync
	}
	return ProtocolSnapshotSync
}

// deltaSyncHeadGapBound caps how many heads a side may be missing
// before DeltaSync's ancestor walk is no longer the cheaper option
// (spec §4.5 step 7, "Small gap between DAG heads").
const deltaSyncHeadGapBound = 8

func headGapWithinBound(localHeads, remoteHeads []core.DeltaId) bool {
	known := make(map[core.DeltaId]struct{}, len(localHeads))
	for _, h := range localHeads {
		known[h] = struct{}{}
	}
	missing := 0
	for _, h := range remoteHeads {
		if _, ok := known[h]; !ok {
			missing++
		}
	}
	return missing <= deltaSyncHeadGapBound
}

func estimatedDivergence(local, remote HandshakeSummary) float64 {
	smaller := local.EntityCountEstimate
	if remote.EntityCountEstimate < smaller {
		smaller = remote.EntityCountEstimate
	}
	if smaller == 0 {
		return 1
	}

	known := make(map[core.DeltaId]struct{}, len(local.DagHeads))
	for _, h := range local.DagHeads {
		known[h] = struct{}{}
	}
	diverged := 0
	for _, h := range remote.DagHeads {
		if _, ok := known[h]; !ok {
			diverged++
		}
	}
	remoteKnown := make(map[core.DeltaId]struct{}, len(remote.DagHeads))
	for _, h := range remote.DagHeads {
		remoteKnown[h] = struct{}{}
	}
	for _, h := range local.DagHeads {
		if _, ok := remoteKnown[h]; !ok {
			diverged++
		}
	}

	return float64(diverged) / float64(smaller)
}
