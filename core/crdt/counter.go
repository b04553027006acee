// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package crdt

import "github.com/calimero-network/core/core"

// CounterState is the per-principal increment ledger for a Counter
// CRDT (spec §3: "per-principal non-negative increments").
type CounterState struct {
	Increments map[core.PublicKey]uint64
}

// Value returns the current total, Sigma of every principal's
// increments.
func (c CounterState) Value() uint64 {
	var total uint64
	for _, v := range c.Increments {
		total += v
	}
	return total
}

// MarshalCounter serializes a CounterState as CBOR.
func MarshalCounter(c CounterState) ([]byte, error) {
	return cborEncode(c)
}

// UnmarshalCounter parses a CBOR-encoded CounterState.
func UnmarshalCounter(data []byte) (CounterState, error) {
	var c CounterState
	if err := cborDecode(data, &c); err != nil {
		return CounterState{}, err
	}
	if c.Increments == nil {
		c.Increments = make(map[core.PublicKey]uint64)
	}
	return c, nil
}

// MergeCounter implements the Counter merge rule: componentwise max per
// principal (spec §3).
func MergeCounter(a, b CounterState) CounterState {
	out := CounterState{Increments: make(map[core.PublicKey]uint64, len(a.Increments)+len(b.Increments))}
	for k, v := range a.Increments {
		out.Increments[k] = v
	}
	for k, v := range b.Increments {
		if cur, ok := out.Increments[k]; !ok || v > cur {
			out.Increments[k] = v
		}
	}
	return out
}

// Increment returns the state resulting from principal incrementing
// its own counter by delta (delta must be non-negative by construction
// of the uint64 type).
func (c CounterState) Increment(principal core.PublicKey, delta uint64) CounterState {
	out := CounterState{Increments: make(map[core.PublicKey]uint64, len(c.Increments)+1)}
	for k, v := range c.Increments {
		out.Increments[k] = v
	}
	out.Increments[principal] += delta
	return out
}
