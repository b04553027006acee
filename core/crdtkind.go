// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package core

// CRDTKind tags which merge algebra a CRDT-bearing store entry uses.
// Dispatch on this tag is an O(1) switch for the built-ins and a
// name->function table lookup for Custom (spec §9: "tagged variant
// plus name->function table", no runtime reflection needed).
type CRDTKind byte

const (
	CRDTCounter CRDTKind = iota
	CRDTLwwRegister
	CRDTOrderedSequence
	CRDTUnorderedMap
	CRDTUnorderedSet
	CRDTVector
	CRDTFrozen
	CRDTUserStorage
	CRDTCustom
)

func (k CRDTKind) String() string {
	switch k {
	case CRDTCounter:
		return "Counter"
	case CRDTLwwRegister:
		return "LwwRegister"
	case CRDTOrderedSequence:
		return "OrderedSequence"
	case CRDTUnorderedMap:
		return "UnorderedMap"
	case CRDTUnorderedSet:
		return "UnorderedSet"
	case CRDTVector:
		return "Vector"
	case CRDTFrozen:
		return "Frozen"
	case CRDTUserStorage:
		return "UserStorage"
	case CRDTCustom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// Envelope is the metadata every CRDT-bearing key in the store carries
// (spec §3 "CRDT entity metadata").
type Envelope struct {
	Kind      CRDTKind
	CustomTag string // populated only when Kind == CRDTCustom
	HLC       HLC
	Tombstone bool
	Payload   []byte
}

// HLC is the wire-level triple carried in an Envelope. The hlc package
// owns comparison/tick semantics; this mirror avoids an import cycle
// between core and hlc (hlc depends on core for PublicKey).
type HLC struct {
	PhysicalMs uint64
	Logical    uint32
	Node       PublicKey
}

// Less reports strict lexicographic ordering on (PhysicalMs, Logical, Node).
func (h HLC) Less(o HLC) bool {
	if h.PhysicalMs != o.PhysicalMs {
		return h.PhysicalMs < o.PhysicalMs
	}
	if h.Logical != o.Logical {
		return h.Logical < o.Logical
	}
	return h.Node.Less(o.Node)
}

// Equal reports whether h and o are the identical triple.
func (h HLC) Equal(o HLC) bool {
	return h.PhysicalMs == o.PhysicalMs && h.Logical == o.Logical && h.Node == o.Node
}

// Greater reports whether h strictly follows o.
func (h HLC) Greater(o HLC) bool {
	return o.Less(h)
}

// CanonicalRecord is one entry of a context's canonical snapshot: a
// 32-byte state key and its current value (spec §3 "Snapshot").
type CanonicalRecord struct {
	Key   [32]byte
	Value []byte
}
