// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package dag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/dag"
	"github.com/calimero-network/core/datastore"
)

func testContext(b byte) core.ContextId {
	var id core.ContextId
	id[0] = b
	return id
}

func principal(b byte) core.PublicKey {
	var p core.PublicKey
	p[0] = b
	return p
}

func entityKey(b byte) []byte {
	var k core.EntityId
	k[0] = b
	return k[:]
}

// currentRecords reads back the context's State column as it stands
// committed right now, used to compute what a candidate delta's
// post-image root hash would be before constructing it.
func currentRecords(t *testing.T, store *datastore.Store, contextID core.ContextId) []core.CanonicalRecord {
	t.Helper()
	var records []core.CanonicalRecord
	err := store.Transact(func(txn *datastore.Txn) error {
		var err error
		records, err = dag.DefaultSnapshot(txn, contextID)
		return err
	})
	require.NoError(t, err)
	return records
}

// buildDelta computes the correctly-addressed CausalDelta for actions
// applied on top of whatever is currently committed for contextID,
// without actually committing anything (Add is what commits).
func buildDelta(t *testing.T, store *datastore.Store, contextID core.ContextId, parents []core.DeltaId, actions []dag.Action) dag.CausalDelta {
	t.Helper()

	var expectedRootHash core.Id
	err := store.Transact(func(txn *datastore.Txn) error {
		if err := dag.DefaultApply(txn, contextID, actions); err != nil {
			return err
		}
		records, err := dag.DefaultSnapshot(txn, contextID)
		if err != nil {
			return err
		}
		expectedRootHash = core.ComputeRootHash(records)
		// always abort: this transaction exists only to preview the
		// post-image hash, the real commit happens through Add.
		return errScratchOnly
	})
	require.ErrorIs(t, err, errScratchOnly)

	payloadHash := dag.HashPayload(actions)
	author := principal(1)
	h := core.HLC{PhysicalMs: 1, Logical: 0, Node: author}
	id := dag.ComputeDeltaID(parents, h, author, payloadHash, expectedRootHash)

	return dag.CausalDelta{
		ID:               id,
		Parents:          parents,
		HLC:              h,
		Author:           author,
		ExpectedRootHash: expectedRootHash,
		Payload:          actions,
	}
}

var errScratchOnly = assertErr("dag_test: scratch transaction, never commits")

type assertErr string

func (e assertErr) Error() string { return string(e) }

func newTestStore(t *testing.T) *datastore.Store {
	t.Helper()
	store, err := datastore.Open(datastore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGenesisDeltaAppliesImmediately(t *testing.T) {
	ctx := testContext(1)
	store := newTestStore(t)
	ds := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)

	genesis := buildDelta(t, store, ctx, []core.DeltaId{core.ZeroId}, []dag.Action{{Key: entityKey(1), Value: []byte("v1")}})

	result, err := ds.Add(genesis)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, []core.DeltaId{genesis.ID}, ds.GetHeads())
	assert.Equal(t, genesis.ExpectedRootHash, ds.RootHash())
}

func TestDeltaWithMissingParentIsParked(t *testing.T) {
	ctx := testContext(1)
	store := newTestStore(t)
	ds := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)

	unknownParent := core.DeltaId{9}
	blocked := buildDelta(t, store, ctx, []core.DeltaId{unknownParent}, []dag.Action{{Key: entityKey(1), Value: []byte("v")}})

	result, err := ds.Add(blocked)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Empty(t, ds.GetHeads())

	missing := ds.GetMissingParents()
	assert.Contains(t, missing, unknownParent)
}

func TestCascadeAppliesPendingOnceParentArrives(t *testing.T) {
	ctx := testContext(1)
	store := newTestStore(t)
	ds := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)

	genesis := buildDelta(t, store, ctx, []core.DeltaId{core.ZeroId}, []dag.Action{{Key: entityKey(1), Value: []byte("v1")}})

	// build the child against the post-genesis state by applying
	// genesis to a throwaway store first, mirroring what the real
	// state will look like once genesis commits.
	scratch := newTestStore(t)
	_, err := dag.NewDeltaStore(scratch, ctx, dag.DefaultApply, dag.DefaultSnapshot).Add(genesis)
	require.NoError(t, err)
	child := buildDelta(t, scratch, ctx, []core.DeltaId{genesis.ID}, []dag.Action{{Key: entityKey(2), Value: []byte("v2")}})

	// add child first: genesis isn't applied yet, so it must park.
	_, err = ds.Add(child)
	require.NoError(t, err)
	assert.False(t, ds.Has(genesis.ID))

	result, err := ds.Add(genesis)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	require.Len(t, result.CascadedEvents, 1)
	assert.Equal(t, child.ID, result.CascadedEvents[0].DeltaID)

	assert.ElementsMatch(t, []core.DeltaId{child.ID}, ds.GetHeads())
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := testContext(1)
	store := newTestStore(t)
	ds := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)

	genesis := buildDelta(t, store, ctx, []core.DeltaId{core.ZeroId}, []dag.Action{{Key: entityKey(1), Value: []byte("v1")}})

	first, err := ds.Add(genesis)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := ds.Add(genesis)
	require.NoError(t, err)
	assert.True(t, second.Applied)
	assert.Empty(t, second.CascadedEvents)
}

func TestRootHashMismatchRejectsDeltaAndRollsBackTheTransaction(t *testing.T) {
	ctx := testContext(1)
	store := newTestStore(t)
	ds := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)

	genesis := buildDelta(t, store, ctx, []core.DeltaId{core.ZeroId}, []dag.Action{{Key: entityKey(1), Value: []byte("v1")}})
	genesis.ExpectedRootHash = core.Id{0xde, 0xad} // corrupt the promise

	_, err := ds.Add(genesis)
	assert.Error(t, err)
	assert.Equal(t, core.ZeroId, ds.RootHash())
	assert.Empty(t, ds.GetHeads())

	// the failed apply must have been rolled back at the store level,
	// not just left unreflected in the DeltaStore's own bookkeeping.
	assert.Empty(t, currentRecords(t, store, ctx))
}

func TestPersistAndLoadPersistedDeltasRebuildsState(t *testing.T) {
	ctx := testContext(1)
	store := newTestStore(t)
	ds := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)

	genesis := buildDelta(t, store, ctx, []core.DeltaId{core.ZeroId}, []dag.Action{{Key: entityKey(1), Value: []byte("v1")}})
	_, err := ds.Add(genesis)
	require.NoError(t, err)
	require.NoError(t, ds.Persist(genesis))

	reloaded := dag.NewDeltaStore(store, ctx, dag.DefaultApply, dag.DefaultSnapshot)
	require.NoError(t, reloaded.LoadPersistedDeltas())

	assert.True(t, reloaded.Has(genesis.ID))
	assert.Equal(t, []core.DeltaId{genesis.ID}, reloaded.GetHeads())
}
