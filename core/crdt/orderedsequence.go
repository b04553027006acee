// Copyright 2022 Democratized Data Foundation
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package crdt

import (
	"sort"

	"github.com/calimero-network/core/core"
)

// SequenceNodeID identifies one RGA node. The zero value is the
// virtual root every top-level node is parented to.
type SequenceNodeID = core.Id

// SequenceNode is one entry of the append-only causal tree backing an
// OrderedSequence (RGA): (id, parent_id, hlc, author, content,
// tombstoned) (spec §3).
type SequenceNode struct {
	ID         SequenceNodeID
	ParentID   SequenceNodeID
	HLC        core.HLC
	Author     core.PublicKey
	Content    byte
	Tombstoned bool
}

// OrderedSequenceState is the full causal tree, keyed by node id. The
// children index used for traversal is rebuilt by VisibleBytes.
type OrderedSequenceState struct {
	Nodes map[SequenceNodeID]SequenceNode
}

// MarshalOrderedSequence serializes an OrderedSequenceState as CBOR.
func MarshalOrderedSequence(s OrderedSequenceState) ([]byte, error) {
	list := make([]SequenceNode, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		list = append(list, n)
	}
	return cborEncode(list)
}

// UnmarshalOrderedSequence parses a CBOR-encoded OrderedSequenceState.
func UnmarshalOrderedSequence(data []byte) (OrderedSequenceState, error) {
	var list []SequenceNode
	if err := cborDecode(data, &list); err != nil {
		return OrderedSequenceState{}, err
	}
	nodes := make(map[SequenceNodeID]SequenceNode, len(list))
	for _, n := range list {
		nodes[n.ID] = n
	}
	return OrderedSequenceState{Nodes: nodes}, nil
}

// MergeOrderedSequence implements the RGA merge rule: union of the two
// logs; a node present in both is only ever tombstoned by an explicit
// delete, so a tombstoned copy always wins over a live one for the
// same id (spec §3 "deletes set tombstone").
func MergeOrderedSequence(a, b OrderedSequenceState) OrderedSequenceState {
	out := OrderedSequenceState{Nodes: make(map[SequenceNodeID]SequenceNode, len(a.Nodes)+len(b.Nodes))}
	for id, n := range a.Nodes {
		out.Nodes[id] = n
	}
	for id, n := range b.Nodes {
		if existing, ok := out.Nodes[id]; ok {
			if n.Tombstoned && !existing.Tombstoned {
				out.Nodes[id] = n
			}
			continue
		}
		out.Nodes[id] = n
	}
	return out
}

// Insert appends a new node with the given id under parentID,
// returning the updated state.
func (s OrderedSequenceState) Insert(parentID SequenceNodeID, id SequenceNodeID, hlc core.HLC, author core.PublicKey, content byte) OrderedSequenceState {
	out := OrderedSequenceState{Nodes: make(map[SequenceNodeID]SequenceNode, len(s.Nodes)+1)}
	for k, v := range s.Nodes {
		out.Nodes[k] = v
	}
	out.Nodes[id] = SequenceNode{ID: id, ParentID: parentID, HLC: hlc, Author: author, Content: content}
	return out
}

// Delete tombstones the node at id, a no-op if it's already tombstoned
// or absent.
func (s OrderedSequenceState) Delete(id SequenceNodeID) OrderedSequenceState {
	n, ok := s.Nodes[id]
	if !ok || n.Tombstoned {
		return s
	}
	out := OrderedSequenceState{Nodes: make(map[SequenceNodeID]SequenceNode, len(s.Nodes))}
	for k, v := range s.Nodes {
		out.Nodes[k] = v
	}
	n.Tombstoned = true
	out.Nodes[id] = n
	return out
}

// VisibleBytes computes the visible order: a topological sort by
// parent where siblings are ordered by (HLC desc, author asc), with
// tombstoned nodes excluded from the output but retained (and still
// traversed) in the tree (spec §3).
func (s OrderedSequenceState) VisibleBytes() []byte {
	children := make(map[SequenceNodeID][]SequenceNode)
	for _, n := range s.Nodes {
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	for parent := range children {
		siblings := children[parent]
		sort.Slice(siblings, func(i, j int) bool {
			if !siblings[i].HLC.Equal(siblings[j].HLC) {
				return siblings[i].HLC.Greater(siblings[j].HLC)
			}
			return siblings[i].Author.Less(siblings[j].Author)
		})
		children[parent] = siblings
	}

	var out []byte
	var visit func(parent SequenceNodeID)
	visit = func(parent SequenceNodeID) {
		for _, n := range children[parent] {
			if !n.Tombstoned {
				out = append(out, n.Content)
			}
			visit(n.ID)
		}
	}
	visit(core.ZeroId)
	return out
}
