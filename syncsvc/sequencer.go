// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package syncsvc implements the sync negotiator (spec §4.5, C5): a
// per-(context, peer) state machine selecting a sync protocol from a
// handshake summary, then driving DeltaSync or SnapshotSync to
// convergence. The wire handshake/transport is not part of this
// repository; this package holds the protocol-independent decision logic so it stays
// unit-testable with synthetic inputs, the same way C6's traversal
// state machine is.
package syncsvc

import "github.com/calimero-network/core/errors"

// Sequencer assigns and checks monotonically increasing sequence ids
// on one side of a sync stream (spec §4.5 "every subsequent message on
// the stream is authenticated-encrypted under a sequence-numbered
// nonce"). The outbound side calls Next to stamp each message it
// sends; the inbound side calls Test against the sequence id it
// receives, rejecting anything but the next expected value.
type Sequencer struct {
	next uint64
}

// Next returns the next sequence id to stamp on an outgoing message and
// advances the counter.
func (s *Sequencer) Next() uint64 {
	id := s.next
	s.next++
	return id
}

// Test checks that got is the next sequence id this side expects,
// advancing its expectation on success. A gap (including a replay)
// is rejected with a typed StreamSequenceGap error (spec §7).
func (s *Sequencer) Test(got uint64) error {
	expected := s.next
	if got != expected {
		return errors.StreamSequenceGap(expected, got)
	}
	s.next++
	return nil
}
