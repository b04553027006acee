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
	"sync"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/errors"
)

// CustomMergeFunc merges two raw payloads for an application-registered
// CRDTCustom kind. Applications run sandboxed (spec §9's sandbox
// export pair); this registry is the host-side half of that boundary
// for kinds the host itself needs to merge without crossing it (e.g.
// during MerkleSync leaf reconciliation).
type CustomMergeFunc func(a, b []byte) ([]byte, error)

var (
	customMergersMu sync.RWMutex
	customMergers   = make(map[string]CustomMergeFunc)
)

// RegisterCustomMerger installs the merge function for a CRDTCustom
// tag, implementing spec §9's "tagged variant plus name->function
// table" dispatch for application-defined merge logic.
func RegisterCustomMerger(name string, fn CustomMergeFunc) {
	customMergersMu.Lock()
	defer customMergersMu.Unlock()
	customMergers[name] = fn
}

func lookupCustomMerger(name string) (CustomMergeFunc, bool) {
	customMergersMu.RLock()
	defer customMergersMu.RUnlock()
	fn, ok := customMergers[name]
	return fn, ok
}

// MergeEnvelope dispatches on crdt_kind and recursively merges two
// envelopes of the composed application state (spec §3 "Root ...
// recursive field-wise merge dispatch via a registered merger table").
func MergeEnvelope(a, b core.Envelope) (core.Envelope, error) {
	if a.Kind != b.Kind {
		return core.Envelope{}, errors.Merge("cannot merge envelopes of different crdt kinds", nil)
	}
	if a.Kind == CRDTCustomKind() && a.CustomTag != b.CustomTag {
		return core.Envelope{}, errors.Merge("cannot merge custom envelopes of different tags", nil)
	}

	payload, err := mergePayloadByKind(a.Kind, a.CustomTag, a.Payload, b.Payload)
	if err != nil {
		return core.Envelope{}, err
	}

	return core.Envelope{
		Kind:      a.Kind,
		CustomTag: a.CustomTag,
		HLC:       maxHLC(a.HLC, b.HLC),
		Tombstone: a.Tombstone || b.Tombstone,
		Payload:   payload,
	}, nil
}

func maxHLC(a, b core.HLC) core.HLC {
	if a.Greater(b) {
		return a
	}
	return b
}

// CRDTCustomKind exposes core.CRDTCustom without callers outside this
// package reaching into the core package directly for the tag
// comparison in MergeEnvelope.
func CRDTCustomKind() core.CRDTKind { return core.CRDTCustom }

// mergePayloadByKind decodes both payloads per kind, merges, and
// re-encodes the result.
func mergePayloadByKind(kind core.CRDTKind, customTag string, aPayload, bPayload []byte) ([]byte, error) {
	switch kind {
	case core.CRDTCounter:
		ac, err := UnmarshalCounter(aPayload)
		if err != nil {
			return nil, err
		}
		bc, err := UnmarshalCounter(bPayload)
		if err != nil {
			return nil, err
		}
		return MarshalCounter(MergeCounter(ac, bc))

	case core.CRDTLwwRegister:
		ar, err := UnmarshalLwwRegister(aPayload)
		if err != nil {
			return nil, err
		}
		br, err := UnmarshalLwwRegister(bPayload)
		if err != nil {
			return nil, err
		}
		return MarshalLwwRegister(MergeLwwRegister(ar, br))

	case core.CRDTOrderedSequence:
		aseq, err := UnmarshalOrderedSequence(aPayload)
		if err != nil {
			return nil, err
		}
		bseq, err := UnmarshalOrderedSequence(bPayload)
		if err != nil {
			return nil, err
		}
		return MarshalOrderedSequence(MergeOrderedSequence(aseq, bseq))

	case core.CRDTUnorderedMap:
		am, err := UnmarshalUnorderedMap(aPayload)
		if err != nil {
			return nil, err
		}
		bm, err := UnmarshalUnorderedMap(bPayload)
		if err != nil {
			return nil, err
		}
		merged, err := MergeUnorderedMap(am, bm)
		if err != nil {
			return nil, err
		}
		return MarshalUnorderedMap(merged)

	case core.CRDTUnorderedSet:
		as, err := UnmarshalUnorderedSet(aPayload)
		if err != nil {
			return nil, err
		}
		bs, err := UnmarshalUnorderedSet(bPayload)
		if err != nil {
			return nil, err
		}
		return MarshalUnorderedSet(MergeUnorderedSet(as, bs))

	case core.CRDTVector:
		av, err := UnmarshalVector(aPayload)
		if err != nil {
			return nil, err
		}
		bv, err := UnmarshalVector(bPayload)
		if err != nil {
			return nil, err
		}
		merged, err := MergeVector(av, bv)
		if err != nil {
			return nil, err
		}
		return MarshalVector(merged)

	case core.CRDTFrozen:
		af, err := UnmarshalFrozen(aPayload)
		if err != nil {
			return nil, err
		}
		bf, err := UnmarshalFrozen(bPayload)
		if err != nil {
			return nil, err
		}
		return MarshalFrozen(MergeFrozen(af, bf))

	case core.CRDTUserStorage:
		au, err := UnmarshalUserStorage(aPayload)
		if err != nil {
			return nil, err
		}
		bu, err := UnmarshalUserStorage(bPayload)
		if err != nil {
			return nil, err
		}
		merged, err := MergeUserStorage(au, bu)
		if err != nil {
			return nil, err
		}
		return MarshalUserStorage(merged)

	case core.CRDTCustom:
		fn, ok := lookupCustomMerger(customTag)
		if !ok {
			return nil, errors.Merge("no merger registered for custom crdt tag "+customTag, nil)
		}
		return fn(aPayload, bPayload)

	default:
		return nil, errors.Merge("unknown crdt kind", nil)
	}
}
