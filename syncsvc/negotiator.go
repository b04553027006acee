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

import (
	"sync"

	"github.com/calimero-network/core/core"
)

type peerPairKey struct {
	context core.ContextId
	peer    core.PublicKey
}

// Negotiator enforces spec §4.5's ordering guarantee: for a single
// (context, peer) pair, only one sync may be in flight at a time, and
// concurrent attempts coalesce onto the one already running instead of
// opening a second stream.
type Negotiator struct {
	mu      sync.Mutex
	running map[peerPairKey]struct{}
}

// NewNegotiator returns an empty Negotiator.
func NewNegotiator() *Negotiator {
	return &Negotiator{running: make(map[peerPairKey]struct{})}
}

// Begin claims the (context, peer) pair for a sync attempt. If one is
// already running, ok is false and the caller must not start a second
// one; otherwise ok is true and the caller must call the returned
// release function when its sync completes.
func (n *Negotiator) Begin(contextID core.ContextId, peer core.PublicKey) (release func(), ok bool) {
	key := peerPairKey{context: contextID, peer: peer}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, inFlight := n.running[key]; inFlight {
		return nil, false
	}
	n.running[key] = struct{}{}

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.running, key)
	}, true
}

// IsRunning reports whether a sync is currently in flight for (context, peer).
func (n *Negotiator) IsRunning(contextID core.ContextId, peer core.PublicKey) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.running[peerPairKey{context: contextID, peer: peer}]
	return ok
}
