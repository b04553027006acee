// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package merkle implements the Merkle sync engine (spec §4.6, C6):
// deterministic tree construction over a context's canonical snapshot,
// a pure BFS traversal state machine, and the pre-work validation gate
// a responder runs before touching storage.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/tidwall/btree"

	"github.com/calimero-network/core/core"
)

// DefaultFanout and DefaultLeafTargetBytes are TreeParams' defaults
// (spec §4.6 "Fanout is a configured parameter (default 16)",
// "leaf chunks of <= leaf_target_bytes (default 64 KiB)").
const (
	DefaultFanout          = 16
	DefaultLeafTargetBytes = 64 * 1024
)

// TreeParams are the parameters both sides of a Merkle sync must agree
// on (spec §4.6 "Both sides MUST use the same TreeParams").
type TreeParams struct {
	Fanout          uint16
	LeafTargetBytes uint32
}

// DefaultTreeParams returns this node's TreeParams.
func DefaultTreeParams() TreeParams {
	return TreeParams{Fanout: DefaultFanout, LeafTargetBytes: DefaultLeafTargetBytes}
}

// IsCompatible reports whether other can sync against these params
// (spec §4.6, §8 "IncompatibleTreeParams").
func (p TreeParams) IsCompatible(other TreeParams) bool {
	return p.Fanout == other.Fanout && p.LeafTargetBytes == other.LeafTargetBytes
}

// NodeId addresses one node in the tree: level 0 is the leaf level.
type NodeId struct {
	Level uint16
	Index uint64
}

// NodeDigest is what a responder sends back for a requested NodeId.
type NodeDigest struct {
	ID         NodeId
	Hash       core.Id
	ChildCount uint16
}

// SnapshotChunk is one leaf's uncompressed payload: the concatenation
// of CanonicalRecords covering [StartKey, EndKey], each framed as a
// little-endian uint32 key length, the key, a uint32 value length, and
// the value.
type SnapshotChunk struct {
	Index           uint64
	StartKey        [32]byte
	EndKey          [32]byte
	UncompressedLen uint32
	Payload         []byte
}

// ZeroHash is the empty-tree hash (spec §4.6 "Empty tree hash: all zeros").
var ZeroHash = core.ZeroId

// MerkleTree is a computed tree over one context's canonical snapshot.
type MerkleTree struct {
	Params     TreeParams
	Chunks     []SnapshotChunk
	LeafHashes []core.Id
	NodeHashes map[NodeId]core.Id
	RootHash   core.Id
	Height     uint16
}

// Build constructs a MerkleTree from a context's canonical records,
// given in any order and loaded into a tidwall/btree ordered index
// first so the chunking pass below walks them in key order
// (spec §4.6 "keys sorted ascending").
func Build(records []core.CanonicalRecord, params TreeParams) MerkleTree {
	ordered := btree.NewBTreeG(func(a, b core.CanonicalRecord) bool {
		return lessKey(a.Key, b.Key)
	})
	for _, r := range records {
		ordered.Set(r)
	}

	sorted := make([]core.CanonicalRecord, 0, ordered.Len())
	ordered.Scan(func(r core.CanonicalRecord) bool {
		sorted = append(sorted, r)
		return true
	})

	chunks := BuildChunks(sorted, params)
	leafHashes := make([]core.Id, len(chunks))
	for i, c := range chunks {
		leafHashes[i] = ComputeLeafHash(c)
	}

	nodeHashes, rootHash, height := BuildInternalNodes(leafHashes, params.Fanout)

	return MerkleTree{
		Params:     params,
		Chunks:     chunks,
		LeafHashes: leafHashes,
		NodeHashes: nodeHashes,
		RootHash:   rootHash,
		Height:     height,
	}
}

func lessKey(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// GetNodeHash returns the hash for id, if the tree has it.
func (t MerkleTree) GetNodeHash(id NodeId) (core.Id, bool) {
	if id.Level == 0 {
		if id.Index >= uint64(len(t.LeafHashes)) {
			return core.Id{}, false
		}
		return t.LeafHashes[id.Index], true
	}
	h, ok := t.NodeHashes[id]
	return h, ok
}

// GetNodeDigest returns id's NodeDigest, if present.
func (t MerkleTree) GetNodeDigest(id NodeId) (NodeDigest, bool) {
	hash, ok := t.GetNodeHash(id)
	if !ok {
		return NodeDigest{}, false
	}
	children := t.GetChildren(id)
	return NodeDigest{ID: id, Hash: hash, ChildCount: uint16(len(children))}, true
}

func (t MerkleTree) nodesAtLevel(level uint16) uint64 {
	if level == 0 {
		return uint64(len(t.LeafHashes))
	}
	fanout := uint64(t.Params.Fanout)
	below := t.nodesAtLevel(level - 1)
	return (below + fanout - 1) / fanout
}

// GetChildren returns id's children's NodeIds.
func (t MerkleTree) GetChildren(id NodeId) []NodeId {
	if id.Level == 0 {
		return nil
	}
	fanout := uint64(t.Params.Fanout)
	childLevel := id.Level - 1
	firstChildIdx := id.Index * fanout
	totalAtChildLevel := t.nodesAtLevel(childLevel)
	lastChildIdx := (id.Index + 1) * fanout
	if lastChildIdx > totalAtChildLevel {
		lastChildIdx = totalAtChildLevel
	}

	children := make([]NodeId, 0, lastChildIdx-firstChildIdx)
	for idx := firstChildIdx; idx < lastChildIdx; idx++ {
		children = append(children, NodeId{Level: childLevel, Index: idx})
	}
	return children
}

// RootID returns the root node's NodeId.
func (t MerkleTree) RootID() NodeId {
	return NodeId{Level: t.Height - 1, Index: 0}
}

// GetChunk returns the leaf chunk at index, if present.
func (t MerkleTree) GetChunk(index uint64) (SnapshotChunk, bool) {
	if index >= uint64(len(t.Chunks)) {
		return SnapshotChunk{}, false
	}
	return t.Chunks[index], true
}

// LeafCount returns the number of leaf chunks.
func (t MerkleTree) LeafCount() uint64 {
	return uint64(len(t.Chunks))
}

// GetLeafIndexRange returns the inclusive [first, last] leaf indices
// covered by id's subtree, clamped to the actual leaf count.
func (t MerkleTree) GetLeafIndexRange(id NodeId) (uint64, uint64) {
	if id.Level == 0 {
		return id.Index, id.Index
	}

	leafCount := t.LeafCount()
	if leafCount == 0 {
		return 0, 0
	}

	fanout := uint64(t.Params.Fanout)
	scale := pow(fanout, uint32(id.Level))

	firstLeaf := id.Index * scale
	if firstLeaf > leafCount-1 {
		firstLeaf = leafCount - 1
	}

	lastLeaf := (id.Index+1)*scale - 1
	if lastLeaf > leafCount-1 {
		lastLeaf = leafCount - 1
	}

	return firstLeaf, lastLeaf
}

func pow(base uint64, exp uint32) uint64 {
	result := uint64(1)
	for i := uint32(0); i < exp; i++ {
		result *= base
	}
	return result
}

// GetSubtreeKeyRange returns the [StartKey, EndKey] covered by id's
// subtree, for covered-range tracking during traversal.
func (t MerkleTree) GetSubtreeKeyRange(id NodeId) ([32]byte, [32]byte, bool) {
	first, last := t.GetLeafIndexRange(id)
	firstChunk, ok := t.GetChunk(first)
	if !ok {
		return [32]byte{}, [32]byte{}, false
	}
	lastChunk, ok := t.GetChunk(last)
	if !ok {
		return [32]byte{}, [32]byte{}, false
	}
	return firstChunk.StartKey, lastChunk.EndKey, true
}

// BuildChunks partitions sorted records into leaf chunks no larger
// than params.LeafTargetBytes each (spec §4.6).
func BuildChunks(sorted []core.CanonicalRecord, params TreeParams) []SnapshotChunk {
	if len(sorted) == 0 {
		return nil
	}

	var chunks []SnapshotChunk
	var payload []byte
	var startKey [32]byte
	var endKey [32]byte
	haveStart := false

	flush := func() {
		chunks = append(chunks, SnapshotChunk{
			Index:           uint64(len(chunks)),
			StartKey:        startKey,
			EndKey:          endKey,
			UncompressedLen: uint32(len(payload)),
			Payload:         payload,
		})
		payload = nil
		haveStart = false
	}

	for _, r := range sorted {
		recordBytes := encodeRecord(r)
		if len(payload) > 0 && uint32(len(payload)+len(recordBytes)) > params.LeafTargetBytes {
			flush()
		}
		if !haveStart {
			startKey = r.Key
			haveStart = true
		}
		endKey = r.Key
		payload = append(payload, recordBytes...)
	}
	if len(payload) > 0 {
		flush()
	}

	return chunks
}

func encodeRecord(r core.CanonicalRecord) []byte {
	buf := make([]byte, 0, 4+32+4+len(r.Value))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(r.Key)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, r.Key[:]...)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(r.Value)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, r.Value...)
	return buf
}

// ComputeLeafHash hashes a leaf chunk (spec §4.6: H("leaf" || i:u64-le
// || H(payload) || uncompressed_len:u32-le || start_key || end_key)).
func ComputeLeafHash(chunk SnapshotChunk) core.Id {
	payloadHash := sha256.Sum256(chunk.Payload)

	h := sha256.New()
	h.Write([]byte("leaf"))
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], chunk.Index)
	h.Write(idxBuf[:])
	h.Write(payloadHash[:])
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], chunk.UncompressedLen)
	h.Write(lenBuf[:])
	h.Write(chunk.StartKey[:])
	h.Write(chunk.EndKey[:])

	var out core.Id
	copy(out[:], h.Sum(nil))
	return out
}

// ComputeInternalNodeHash hashes an internal node over its ordered
// child hashes (spec §4.6: H("node" || l:u16-le || child_hash_0 ||
// ...)).
func ComputeInternalNodeHash(level uint16, childHashes []core.Id) core.Id {
	h := sha256.New()
	h.Write([]byte("node"))
	var levelBuf [2]byte
	binary.LittleEndian.PutUint16(levelBuf[:], level)
	h.Write(levelBuf[:])
	for _, c := range childHashes {
		h.Write(c[:])
	}

	var out core.Id
	copy(out[:], h.Sum(nil))
	return out
}

// BuildInternalNodes builds internal nodes bottom-up from leafHashes
// and returns (nodeHashes, rootHash, height).
func BuildInternalNodes(leafHashes []core.Id, fanout uint16) (map[NodeId]core.Id, core.Id, uint16) {
	if len(leafHashes) == 0 {
		return map[NodeId]core.Id{}, ZeroHash, 1
	}
	if len(leafHashes) == 1 {
		return map[NodeId]core.Id{}, leafHashes[0], 1
	}

	nodeHashes := make(map[NodeId]core.Id)
	current := leafHashes
	var level uint16 = 1

	for len(current) > 1 {
		var next []core.Id
		for nodeIdx := 0; nodeIdx*int(fanout) < len(current); nodeIdx++ {
			start := nodeIdx * int(fanout)
			end := start + int(fanout)
			if end > len(current) {
				end = len(current)
			}
			nodeHash := ComputeInternalNodeHash(level, current[start:end])
			nodeHashes[NodeId{Level: level, Index: uint64(nodeIdx)}] = nodeHash
			next = append(next, nodeHash)
		}
		current = next
		level++
	}

	return nodeHashes, current[0], level
}

// GetChildrenIDs returns childCount children of parent at fanout
// spacing, used when reconstructing children from a remote NodeDigest
// during traversal (the requester doesn't have the remote tree, only
// digests).
func GetChildrenIDs(parent NodeId, childCount uint16, fanout uint16) []NodeId {
	childLevel := parent.Level - 1
	firstChildIdx := parent.Index * uint64(fanout)

	children := make([]NodeId, 0, childCount)
	for i := uint64(0); i < uint64(childCount); i++ {
		children = append(children, NodeId{Level: childLevel, Index: firstChildIdx + i})
	}
	return children
}
