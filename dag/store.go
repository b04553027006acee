// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package dag

import (
	"sync"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/datastore"
	"github.com/calimero-network/core/errors"
)

// TxnApply executes a delta's Payload against a context's State
// column inside an open, not-yet-committed transaction. It is the
// bridge between C4 (delta application) and C2/C3 (the store and the
// CRDT merge it stages); the DAG package owns the atomicity/rollback
// contract, not the store itself.
type TxnApply func(txn *datastore.Txn, contextID core.ContextId, actions []Action) error

// TxnSnapshot returns every CanonicalRecord visible within txn for
// contextID (including the transaction's own staged, uncommitted
// writes), used to recompute the root hash before deciding commit or
// rollback.
type TxnSnapshot func(txn *datastore.Txn, contextID core.ContextId) ([]core.CanonicalRecord, error)

// DefaultApply writes each Action's key/value directly into the State
// column under contextID. Actions carry a 32-byte EntityId as their
// key; this is the shape every context uses unless it needs to stage
// something other than a flat envelope write.
func DefaultApply(txn *datastore.Txn, contextID core.ContextId, actions []Action) error {
	for _, a := range actions {
		var entityID core.EntityId
		copy(entityID[:], a.Key)
		key := core.StateKey{ContextID: contextID, EntityID: entityID}
		if err := txn.Put(datastore.CFState, key.Encode(), a.Value); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSnapshot reads every State entry under contextID as a
// CanonicalRecord, keyed by EntityId (spec §3 "Snapshot").
func DefaultSnapshot(txn *datastore.Txn, contextID core.ContextId) ([]core.CanonicalRecord, error) {
	start, end := core.StateRangeForContext(contextID)
	entries, err := txn.RangeScan(datastore.CFState, start, end)
	if err != nil {
		return nil, err
	}
	records := make([]core.CanonicalRecord, 0, len(entries))
	for _, e := range entries {
		k, ok := core.DecodeStateKey(e.Key)
		if !ok {
			continue
		}
		records = append(records, core.CanonicalRecord{Key: [32]byte(k.EntityID), Value: e.Value})
	}
	return records, nil
}

// AddResult reports the outcome of DeltaStore.Add (spec §4.4).
type AddResult struct {
	Applied        bool
	CascadedEvents []CascadedEvent
}

// CascadedEvent names one delta that became applicable as a side
// effect of a prior Add (spec §4.4 "cascade").
type CascadedEvent struct {
	DeltaID core.DeltaId
	Payload []Action
}

// DeltaStore is the durable, content-addressed DAG of one context's
// deltas (spec §4.4). The zero value is not usable; construct with
// NewDeltaStore.
type DeltaStore struct {
	mu sync.Mutex

	store     *datastore.Store
	contextID core.ContextId
	apply     TxnApply
	snapshot  TxnSnapshot

	deltas   map[core.DeltaId]CausalDelta
	applied  map[core.DeltaId]struct{}
	pending  map[core.DeltaId]CausalDelta
	heads    map[core.DeltaId]struct{}
	rootHash core.Id
}

// NewDeltaStore constructs a DeltaStore for one context, over the
// given column-family store, with the apply/snapshot callbacks wiring
// it to C2/C3. Pass DefaultApply/DefaultSnapshot unless a context
// needs bespoke staging.
func NewDeltaStore(store *datastore.Store, contextID core.ContextId, apply TxnApply, snapshot TxnSnapshot) *DeltaStore {
	return &DeltaStore{
		store:     store,
		contextID: contextID,
		apply:     apply,
		snapshot:  snapshot,
		deltas:    make(map[core.DeltaId]CausalDelta),
		applied:   make(map[core.DeltaId]struct{}),
		pending:   make(map[core.DeltaId]CausalDelta),
		heads:     make(map[core.DeltaId]struct{}),
		rootHash:  core.ZeroId,
	}
}

// RootHash returns the current root hash for this context.
func (s *DeltaStore) RootHash() core.Id {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootHash
}

// Has reports whether id is known (applied or pending).
func (s *DeltaStore) Has(id core.DeltaId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.deltas[id]
	return ok
}

// Get returns the delta for id, if known.
func (s *DeltaStore) Get(id core.DeltaId) (CausalDelta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deltas[id]
	return d, ok
}

// GetHeads returns the frontier: applied deltas that no applied delta
// names as a parent (spec §4.4).
func (s *DeltaStore) GetHeads() []core.DeltaId {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DeltaId, 0, len(s.heads))
	for id := range s.heads {
		out = append(out, id)
	}
	return out
}

// Add inserts delta, applying it immediately (in one atomic
// transaction) if every parent is already applied, otherwise parking
// it in pending. It is idempotent: re-adding an already-known delta is
// a no-op (spec §4.4).
func (s *DeltaStore) Add(delta CausalDelta) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.deltas[delta.ID]; known {
		return AddResult{Applied: s.isApplied(delta.ID)}, nil
	}

	s.deltas[delta.ID] = delta

	if !s.allParentsAppliedLocked(delta.Parents) {
		s.pending[delta.ID] = delta
		return AddResult{Applied: false}, nil
	}

	if err := s.applyOneLocked(delta); err != nil {
		delete(s.deltas, delta.ID)
		return AddResult{}, err
	}

	cascaded := s.cascadeLocked()
	return AddResult{Applied: true, CascadedEvents: cascaded}, nil
}

func (s *DeltaStore) isApplied(id core.DeltaId) bool {
	_, ok := s.applied[id]
	return ok
}

func (s *DeltaStore) allParentsAppliedLocked(parents []core.DeltaId) bool {
	for _, p := range parents {
		if p == core.ZeroId {
			continue // genesis marker, not a real dependency
		}
		if _, ok := s.applied[p]; !ok {
			return false
		}
	}
	return true
}

// applyOneLocked implements the atomicity contract of spec §4.4:
// execute every Action and recompute the root hash inside one badger
// transaction, committing only if it matches the delta's promised
// expected_root_hash (the deterministic post-image, per the §8
// "root hash mismatch rejection" property); any divergence aborts the
// transaction so the store is left exactly as it was, and the delta is
// reported corrupt and never retried.
func (s *DeltaStore) applyOneLocked(delta CausalDelta) error {
	var newRootHash core.Id

	err := s.store.Transact(func(txn *datastore.Txn) error {
		if err := s.apply(txn, s.contextID, delta.Payload); err != nil {
			return err
		}
		records, err := s.snapshot(txn, s.contextID)
		if err != nil {
			return err
		}
		newRootHash = core.ComputeRootHash(records)
		if newRootHash != delta.ExpectedRootHash {
			return errors.RootHashMismatch(idHex(delta.ID), delta.ExpectedRootHash[:], newRootHash[:])
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.rootHash = newRootHash
	s.applied[delta.ID] = struct{}{}
	delete(s.pending, delta.ID)

	for _, p := range delta.Parents {
		delete(s.heads, p)
	}
	s.heads[delta.ID] = struct{}{}

	return nil
}

// cascadeLocked re-scans pending for newly-ready deltas in dependency
// order, repeating until a full pass makes no progress (spec §4.4
// "cascade").
func (s *DeltaStore) cascadeLocked() []CascadedEvent {
	var events []CascadedEvent
	for {
		progressed := false
		for id, pd := range s.pending {
			if !s.allParentsAppliedLocked(pd.Parents) {
				continue
			}
			if err := s.applyOneLocked(pd); err != nil {
				// corrupt delta: drop it from pending permanently, it is
				// never retried (spec §4.4).
				delete(s.pending, id)
				continue
			}
			events = append(events, CascadedEvent{DeltaID: id, Payload: pd.Payload})
			progressed = true
		}
		if !progressed {
			return events
		}
	}
}

// GetMissingParents closes pending under "this parent is missing" and
// returns the set of DeltaIds that must be fetched to unblock every
// pending delta (spec §4.4).
func (s *DeltaStore) GetMissingParents() []core.DeltaId {
	s.mu.Lock()
	defer s.mu.Unlock()

	missing := make(map[core.DeltaId]struct{})
	for _, pd := range s.pending {
		for _, p := range pd.Parents {
			if p == core.ZeroId {
				continue
			}
			if _, ok := s.applied[p]; ok {
				continue
			}
			if _, ok := s.deltas[p]; ok {
				continue // already known, just not applied yet (itself pending)
			}
			missing[p] = struct{}{}
		}
	}

	out := make([]core.DeltaId, 0, len(missing))
	for id := range missing {
		out = append(out, id)
	}
	return out
}

// LoadPersistedDeltas rebuilds in-memory indices from the Delta column
// (spec §4.4). Deltas are read back in no particular order; Add's
// normal parent-readiness check and cascade re-derive applied/pending/
// heads deterministically regardless of read order.
func (s *DeltaStore) LoadPersistedDeltas() error {
	entries, err := s.store.RangeScan(datastore.CFDelta, deltaRangeStart(s.contextID), deltaRangeEnd(s.contextID))
	if err != nil {
		return err
	}

	var persisted []CausalDelta
	for _, e := range entries {
		d, err := UnmarshalDelta(e.Value)
		if err != nil {
			return errors.Storage("failed to decode persisted delta", err)
		}
		persisted = append(persisted, d)
	}

	s.mu.Lock()
	s.deltas = make(map[core.DeltaId]CausalDelta)
	s.applied = make(map[core.DeltaId]struct{})
	s.pending = make(map[core.DeltaId]CausalDelta)
	s.heads = make(map[core.DeltaId]struct{})
	s.rootHash = core.ZeroId
	s.mu.Unlock()

	for _, d := range persisted {
		if _, err := s.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// Persist writes delta into the Delta column, keyed under this
// context, so LoadPersistedDeltas can rebuild it on restart.
func (s *DeltaStore) Persist(delta CausalDelta) error {
	data, err := MarshalDelta(delta)
	if err != nil {
		return errors.Storage("failed to encode delta for persistence", err)
	}
	key := core.DeltaKey{ContextID: s.contextID, DeltaID: delta.ID}
	return s.store.Put(datastore.CFDelta, key.Encode(), data)
}

func deltaRangeStart(contextID core.ContextId) []byte {
	start := core.DeltaKey{ContextID: contextID, DeltaID: core.ZeroId}
	return start.Encode()
}

func deltaRangeEnd(contextID core.ContextId) []byte {
	var maxDelta core.DeltaId
	for i := range maxDelta {
		maxDelta[i] = 0xff
	}
	end := core.DeltaKey{ContextID: contextID, DeltaID: maxDelta}
	encoded := end.Encode()
	// RangeScan's end bound is exclusive; push one past the maximum
	// possible DeltaId so a delta keyed at all-0xff is still included.
	encoded = append(encoded, 0x00)
	return encoded
}

func idHex(id core.Id) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(id)*2)
	for i, b := range id {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}
