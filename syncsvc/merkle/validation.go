// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package merkle

import (
	"sort"

	"github.com/sourcenetwork/immutable"

	"github.com/calimero-network/core/core"
)

// RequestValidationOutcome is the result of ValidateSyncRequest (spec
// §4.6 "Validation gate").
type RequestValidationOutcome int

const (
	RequestValid RequestValidationOutcome = iota
	RequestContextNotFound
	RequestBoundaryMismatch
	RequestIncompatibleParams
	RequestCursorTooLarge
	RequestCursorMalformed
)

// RequestValidation is the outcome of ValidateSyncRequest, including
// the parsed resume cursor on success so the caller never decodes it
// twice.
type RequestValidation struct {
	Outcome RequestValidationOutcome
	Cursor  immutable.Option[Cursor]
}

// ValidateSyncRequest validates a Merkle sync request before any
// storage I/O (spec §4.6 "The responder validates: context exists,
// boundary root_hash equals local current root hash, tree params
// compatible, resume cursor ... within size bound and parseable").
// contextRootHash is None when the context doesn't exist locally.
func ValidateSyncRequest(
	contextRootHash immutable.Option[core.Id],
	boundaryRootHash core.Id,
	treeParams TreeParams,
	resumeCursor []byte,
) RequestValidation {
	currentRoot, ok := contextRootHash.Value()
	if !ok {
		return RequestValidation{Outcome: RequestContextNotFound}
	}

	if currentRoot != boundaryRootHash {
		return RequestValidation{Outcome: RequestBoundaryMismatch}
	}

	if !DefaultTreeParams().IsCompatible(treeParams) {
		return RequestValidation{Outcome: RequestIncompatibleParams}
	}

	if resumeCursor == nil {
		return RequestValidation{Outcome: RequestValid}
	}

	if len(resumeCursor) > MaxCursorSize {
		return RequestValidation{Outcome: RequestCursorTooLarge}
	}

	cursor, err := UnmarshalCursor(resumeCursor)
	if err != nil {
		return RequestValidation{Outcome: RequestCursorMalformed}
	}

	return RequestValidation{Outcome: RequestValid, Cursor: immutable.Some(cursor)}
}

// BoundaryOutcome is the result of ParseBoundaryForMerkle (spec §4.6,
// grounded on original_source's parse_boundary_for_merkle).
type BoundaryOutcome int

const (
	BoundaryMerkleSupported BoundaryOutcome = iota
	BoundaryNoTreeParams
	BoundaryNoMerkleRootHash
	BoundaryIncompatibleParams
)

// SyncBoundary is the agreed-upon starting point for a Merkle sync.
type SyncBoundary struct {
	BoundaryRootHash core.Id
	TreeParams       TreeParams
	MerkleRootHash   core.Id
	DagHeads         []core.DeltaId
}

// ParseBoundaryForMerkle decides, from a snapshot boundary response,
// whether the peer supports Merkle sync and whether its tree params
// are compatible with ours.
func ParseBoundaryForMerkle(
	boundaryRootHash core.Id,
	dagHeads []core.DeltaId,
	treeParams immutable.Option[TreeParams],
	merkleRootHash immutable.Option[core.Id],
) (BoundaryOutcome, SyncBoundary) {
	params, ok := treeParams.Value()
	if !ok {
		return BoundaryNoTreeParams, SyncBoundary{}
	}

	root, ok := merkleRootHash.Value()
	if !ok {
		return BoundaryNoMerkleRootHash, SyncBoundary{}
	}

	if !DefaultTreeParams().IsCompatible(params) {
		return BoundaryIncompatibleParams, SyncBoundary{}
	}

	return BoundaryMerkleSupported, SyncBoundary{
		BoundaryRootHash: boundaryRootHash,
		TreeParams:       params,
		MerkleRootHash:   root,
		DagHeads:         dagHeads,
	}
}

// SortRanges sorts ranges by start key, a precondition for
// KeyInSortedRanges' binary search (spec §4.6 "Ranges are sorted once").
func SortRanges(ranges []KeyRange) []KeyRange {
	sorted := append([]KeyRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		return lessKey(sorted[i].Start, sorted[j].Start)
	})
	return sorted
}

// KeyInSortedRanges reports whether key falls within any of
// sortedRanges, via binary search (spec §4.6 "membership is binary
// search (O(log M) per key)"). sortedRanges must already be sorted by
// SortRanges.
func KeyInSortedRanges(key [32]byte, sortedRanges []KeyRange) bool {
	if len(sortedRanges) == 0 {
		return false
	}

	idx := sort.Search(len(sortedRanges), func(i int) bool {
		return !lessKey(sortedRanges[i].Start, key)
	})

	if idx < len(sortedRanges) && sortedRanges[idx].Start == key {
		return !lessKey(sortedRanges[idx].End, key)
	}
	if idx == 0 {
		return false
	}
	r := sortedRanges[idx-1]
	return !lessKey(key, r.Start) && !lessKey(r.End, key)
}
