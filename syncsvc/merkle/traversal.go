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

// TraversalAction is what TraversalState.NextAction asks the caller to
// do next (spec §4.6 traversal state machine).
type TraversalAction struct {
	Kind          TraversalActionKind
	RequestNodes  []NodeId
	RequestLeaves []uint64
}

// TraversalActionKind discriminates TraversalAction.
type TraversalActionKind int

const (
	ActionRequestNodes TraversalActionKind = iota
	ActionRequestLeaves
	ActionDone
)

// KeyRange is an inclusive [Start, End] key range.
type KeyRange struct {
	Start [32]byte
	End   [32]byte
}

// CompressedChunk is a leaf chunk as carried over the wire: its
// payload is compressed, decompressed only once the receiver decides
// to apply it.
type CompressedChunk struct {
	Index             uint64
	StartKey          [32]byte
	EndKey            [32]byte
	UncompressedLen   uint32
	CompressedPayload []byte
}

// LeafReplyResult is the outcome of processing a leaf reply: the
// chunks the caller must decompress, merge, and apply.
type LeafReplyResult struct {
	ChunksToApply []CompressedChunk
	CoveredRanges []KeyRange
}

// Result summarizes one Merkle sync run (spec §4.6).
type Result struct {
	ChunksTransferred int
	RecordsApplied    int
}

// TraversalState is the pure BFS state machine driving one Merkle sync
// (spec §4.6). It performs no I/O; callers feed it replies and read
// back the next action to perform, making it unit-testable with
// synthetic inputs.
type TraversalState struct {
	PendingNodes      []NodeId
	PendingLeaves     []uint64
	CoveredRanges     []KeyRange
	ChunksTransferred int
	RecordsApplied    int

	params    TreeParams
	pageLimit int
}

// NewTraversalState starts a traversal from the tree root.
func NewTraversalState(rootID NodeId, params TreeParams, pageLimit int) *TraversalState {
	return &TraversalState{
		PendingNodes: []NodeId{rootID},
		params:       params,
		pageLimit:    pageLimit,
	}
}

// ResumeTraversalState rebuilds traversal state from a persisted
// Cursor (spec §4.6 "Resume cursor").
func ResumeTraversalState(cursor Cursor, params TreeParams, pageLimit int) *TraversalState {
	return &TraversalState{
		PendingNodes:  append([]NodeId(nil), cursor.PendingNodes...),
		PendingLeaves: append([]uint64(nil), cursor.PendingLeaves...),
		CoveredRanges: append([]KeyRange(nil), cursor.CoveredRanges...),
		params:        params,
		pageLimit:     pageLimit,
	}
}

// NextAction returns the next action to perform. Node requests are
// prioritized over leaf requests (BFS, spec §4.6 "prioritize
// internals"); batches are capped at pageLimit.
func (s *TraversalState) NextAction() TraversalAction {
	if len(s.PendingNodes) > 0 {
		n := len(s.PendingNodes)
		if n > s.pageLimit {
			n = s.pageLimit
		}
		batch := s.PendingNodes[:n]
		s.PendingNodes = s.PendingNodes[n:]
		return TraversalAction{Kind: ActionRequestNodes, RequestNodes: batch}
	}

	if len(s.PendingLeaves) > 0 {
		n := len(s.PendingLeaves)
		if n > s.pageLimit {
			n = s.pageLimit
		}
		batch := s.PendingLeaves[:n]
		s.PendingLeaves = s.PendingLeaves[n:]
		return TraversalAction{Kind: ActionRequestLeaves, RequestLeaves: batch}
	}

	return TraversalAction{Kind: ActionDone}
}

// IsDone reports whether the traversal has nothing left to request.
func (s *TraversalState) IsDone() bool {
	return len(s.PendingNodes) == 0 && len(s.PendingLeaves) == 0
}

// HandleNodeReply compares remote digests against the local tree,
// queuing children to drill into on mismatch and tracking covered key
// ranges on match (spec §4.6 "on NodeReply"). Returns the number of
// matching subtrees found.
func (s *TraversalState) HandleNodeReply(localTree MerkleTree, remoteDigests []NodeDigest) int {
	matches := 0

	for _, remote := range remoteDigests {
		localHash, ok := localTree.GetNodeHash(remote.ID)
		if ok && localHash == remote.Hash {
			if start, end, ok := localTree.GetSubtreeKeyRange(remote.ID); ok {
				s.CoveredRanges = append(s.CoveredRanges, KeyRange{Start: start, End: end})
			}
			matches++
			continue
		}

		if remote.ID.Level == 0 {
			s.PendingLeaves = append(s.PendingLeaves, remote.ID.Index)
			continue
		}
		children := GetChildrenIDs(remote.ID, remote.ChildCount, s.params.Fanout)
		s.PendingNodes = append(s.PendingNodes, children...)
	}

	return matches
}

// HandleLeafReply extracts the chunks to apply and tracks their key
// ranges as covered (spec §4.6 "on LeafReply"). The caller decompresses
// and merges each chunk, then calls RecordChunkApplied.
func (s *TraversalState) HandleLeafReply(chunks []CompressedChunk) LeafReplyResult {
	result := LeafReplyResult{
		ChunksToApply: chunks,
		CoveredRanges: make([]KeyRange, 0, len(chunks)),
	}
	for _, c := range chunks {
		r := KeyRange{Start: c.StartKey, End: c.EndKey}
		result.CoveredRanges = append(result.CoveredRanges, r)
		s.CoveredRanges = append(s.CoveredRanges, r)
	}
	return result
}

// RecordChunkApplied records that a chunk was successfully applied,
// only counting chunks that actually made it to storage.
func (s *TraversalState) RecordChunkApplied(recordsApplied int) {
	s.ChunksTransferred++
	s.RecordsApplied += recordsApplied
}

// ResultSummary returns the current sync result.
func (s *TraversalState) ResultSummary() Result {
	return Result{ChunksTransferred: s.ChunksTransferred, RecordsApplied: s.RecordsApplied}
}

// ToCursor converts the current traversal state into a resume Cursor,
// or (Cursor{}, false) if it would exceed the size cap (spec §4.6
// "capped at 64 KiB; on overflow the caller falls back to
// SnapshotSync").
func (s *TraversalState) ToCursor() (Cursor, bool) {
	return NewCursor(s.PendingNodes, s.PendingLeaves, s.CoveredRanges)
}
