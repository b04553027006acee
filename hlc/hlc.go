// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package hlc implements the Hybrid Logical Clock described in spec
// §4.1: a monotone, causally-comparable timestamp triple of
// (physical_ms, logical, node).
package hlc

import (
	"sync"
	"time"

	"github.com/calimero-network/core/core"
)

// MaxLogical is the logical counter's overflow ceiling. A single node
// producing this many HLCs within one physical millisecond indicates a
// bug, not a legitimate workload, so Now/Observe panic rather than
// silently wrapping (spec §4.1).
const MaxLogical = 1<<32 - 1

// Clock is a process-wide monotone Hybrid Logical Clock. The zero value
// is not usable; construct with New.
type Clock struct {
	mu   sync.Mutex
	node core.PublicKey
	p    uint64
	l    uint32

	// nowMs is overridable in tests; defaults to wall-clock milliseconds.
	nowMs func() uint64
}

// New constructs a Clock identified by node, the local principal's
// public key, used as the tie-breaker in HLC comparisons.
func New(node core.PublicKey) *Clock {
	return &Clock{
		node:  node,
		nowMs: defaultNowMs,
	}
}

func defaultNowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Now returns a timestamp strictly greater than every timestamp
// previously returned by Now or observed via Observe on this Clock.
func (c *Clock) Now() core.HLC {
	c.mu.Lock()
	defer c.mu.Unlock()

	wall := c.nowMs()
	if wall > c.p {
		c.p = wall
		c.l = 0
	} else {
		c.bumpLogicalLocked()
	}

	return core.HLC{PhysicalMs: c.p, Logical: c.l, Node: c.node}
}

// Observe advances the Clock's internal state so that every
// subsequently issued timestamp is strictly greater than h, without
// itself returning a timestamp (spec §4.1 observe).
func (c *Clock) Observe(h core.HLC) {
	c.mu.Lock()
	defer c.mu.Unlock()

	newP := c.p
	if h.PhysicalMs > newP {
		newP = h.PhysicalMs
	}

	if newP == h.PhysicalMs {
		// the observed timestamp is at (or set) the new maximum physical
		// time: fold its logical component in and stay strictly ahead.
		l := c.l
		if newP > c.p {
			l = 0
		}
		if h.Logical > l {
			l = h.Logical
		}
		c.p = newP
		c.l = l
		c.bumpLogicalLocked()
	}
	// else: our own physical time is already ahead of h; never regress.
}

func (c *Clock) bumpLogicalLocked() {
	if c.l == MaxLogical {
		panic("hlc: logical counter overflow: more than 2^32 ticks issued within one physical millisecond")
	}
	c.l++
}

// SetNowFunc overrides the wall-clock source, for deterministic tests.
func (c *Clock) SetNowFunc(fn func() uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowMs = fn
}

// Compare orders two HLC triples lexicographically on
// (PhysicalMs, Logical, Node), matching core.HLC.Less/Equal/Greater.
func Compare(a, b core.HLC) int {
	if a.PhysicalMs != b.PhysicalMs {
		if a.PhysicalMs < b.PhysicalMs {
			return -1
		}
		return 1
	}
	if a.Logical != b.Logical {
		if a.Logical < b.Logical {
			return -1
		}
		return 1
	}
	return a.Node.Compare(b.Node)
}
