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
	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/datastore"
)

// SnapshotPage is one bounded page of CanonicalRecords the responder
// streams during SnapshotSync (spec §4.5 "Responder streams
// CanonicalRecords in key order in bounded pages with compression").
// Compression itself is handled the same way as Merkle leaf chunks
// (syncsvc/merkle's zstd wiring); this type carries already-decoded
// records once the transport layer has decompressed a page.
type SnapshotPage struct {
	Records []core.CanonicalRecord
}

// StagePage writes one received page into the staging column so a
// crash or cancellation mid-transfer never corrupts live State (spec
// §4.5 "Receiver writes them into a staging column, then swaps
// atomically into State").
func StagePage(txn *datastore.Txn, contextID core.ContextId, page SnapshotPage) error {
	for _, r := range page.Records {
		var entityID core.EntityId
		copy(entityID[:], r.Key[:])
		key := core.StateKey{ContextID: contextID, EntityID: entityID}
		if err := txn.Put(datastore.CFStaging, key.Encode(), r.Value); err != nil {
			return err
		}
	}
	return nil
}

// SwapStagingIntoState atomically replaces contextID's State column
// with whatever has accumulated in its staging column, then recomputes
// the root hash, all inside one transaction (spec §4.5's atomic swap).
// Staging is left empty afterward so a subsequent SnapshotSync starts
// clean.
func SwapStagingIntoState(store *datastore.Store, contextID core.ContextId) (core.Id, error) {
	var newRootHash core.Id

	err := store.Transact(func(txn *datastore.Txn) error {
		stagingStart, stagingEnd := core.StateRangeForContext(contextID)
		staged, err := txn.RangeScan(datastore.CFStaging, stagingStart, stagingEnd)
		if err != nil {
			return err
		}

		stateStart, stateEnd := core.StateRangeForContext(contextID)
		existing, err := txn.RangeScan(datastore.CFState, stateStart, stateEnd)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if err := txn.Delete(datastore.CFState, e.Key); err != nil {
				return err
			}
		}

		records := make([]core.CanonicalRecord, 0, len(staged))
		for _, e := range staged {
			k, ok := core.DecodeStateKey(e.Key)
			if !ok {
				continue
			}
			if err := txn.Put(datastore.CFState, e.Key, e.Value); err != nil {
				return err
			}
			if err := txn.Delete(datastore.CFStaging, e.Key); err != nil {
				return err
			}
			records = append(records, core.CanonicalRecord{Key: [32]byte(k.EntityID), Value: e.Value})
		}

		newRootHash = core.ComputeRootHash(records)
		return nil
	})

	return newRootHash, err
}

// DiscardStaging clears contextID's staging column without swapping it
// in, for an unclean close with no resume cursor persisted (spec §4.5
// "Cancellation... state partially received from SnapshotSync ... is
// discarded unless a resume cursor was persisted").
func DiscardStaging(store *datastore.Store, contextID core.ContextId) error {
	return store.Transact(func(txn *datastore.Txn) error {
		start, end := core.StateRangeForContext(contextID)
		staged, err := txn.RangeScan(datastore.CFStaging, start, end)
		if err != nil {
			return err
		}
		for _, e := range staged {
			if err := txn.Delete(datastore.CFStaging, e.Key); err != nil {
				return err
			}
		}
		return nil
	})
}
