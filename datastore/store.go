// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package datastore implements the ordered byte-key/byte-value store
// layer (spec §4.2, C2): column families over a single badger/v3
// engine, with atomic batches and consistent point-in-time scans.
package datastore

import (
	"bytes"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/calimero-network/core/errors"
)

// ColumnFamily is one of the named partitions a key belongs to (spec
// §4.2).
type ColumnFamily byte

const (
	CFMeta ColumnFamily = iota
	CFConfig
	CFIdentity
	CFState
	CFDelta
	CFAlias
	CFGeneric
	CFBlob
	CFApplication
	CFStaging
)

// DefaultMaxValueBytes is the per-entry size cap (spec §4.2 "4 MiB").
const DefaultMaxValueBytes = 4 * 1024 * 1024

// Store is the ordered KV store layer over a single badger engine. Keys
// are prefixed with their column family byte so multiple logical
// partitions share one on-disk engine, matching how the teacher's
// badger-backed datastore is wired into a single DB handle.
type Store struct {
	db           *badger.DB
	maxValueSize int
}

// Options configures a new Store.
type Options struct {
	Path         string // empty means in-memory
	MaxValueSize int    // 0 means DefaultMaxValueBytes
}

// Open creates or opens a badger-backed Store at opts.Path, or an
// in-memory store when Path is empty (handy for tests).
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Storage("failed to open badger store", err)
	}

	maxSize := opts.MaxValueSize
	if maxSize == 0 {
		maxSize = DefaultMaxValueBytes
	}

	return &Store{db: db, maxValueSize: maxSize}, nil
}

// Close releases the underlying engine.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Storage("failed to close badger store", err)
	}
	return nil
}

func prefixedKey(cf ColumnFamily, key []byte) []byte {
	buf := make([]byte, 1+len(key))
	buf[0] = byte(cf)
	copy(buf[1:], key)
	return buf
}

// Get retrieves the value stored at (cf, key), or (nil, false) if absent.
func (s *Store) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	var out []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixedKey(cf, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, errors.Storage("get failed", err)
	}
	return out, found, nil
}

// Put writes value at (cf, key), rejecting values above the per-entry
// size cap (spec §4.2).
func (s *Store) Put(cf ColumnFamily, key, value []byte) error {
	if len(value) > s.maxValueSize {
		return errors.Storage("value exceeds per-entry size cap", nil)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefixedKey(cf, key), value)
	})
	if err != nil {
		return errors.Storage("put failed", err)
	}
	return nil
}

// Delete removes (cf, key), a no-op if it is already absent.
func (s *Store) Delete(cf ColumnFamily, key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(prefixedKey(cf, key))
	})
	if err != nil {
		return errors.Storage("delete failed", err)
	}
	return nil
}

// Entry is one (key, value) pair returned by a range scan or snapshot
// iterator, with the column family prefix already stripped.
type Entry struct {
	Key   []byte
	Value []byte
}

// RangeScan returns every entry in cf whose key is in [start, end)
// (end == nil means unbounded).
func (s *Store) RangeScan(cf ColumnFamily, start, end []byte) ([]Entry, error) {
	var entries []Entry
	prefixedStart := prefixedKey(cf, start)
	var prefixedEnd []byte
	if end != nil {
		prefixedEnd = prefixedKey(cf, end)
	}

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entries, err = scanRange(txn, cf, prefixedStart, prefixedEnd)
		return err
	})
	if err != nil {
		return nil, errors.Storage("range scan failed", err)
	}
	return entries, nil
}

func scanRange(txn *badger.Txn, cf ColumnFamily, prefixedStart, prefixedEnd []byte) ([]Entry, error) {
	var entries []Entry
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefixedStart); it.Valid(); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		if len(k) == 0 || ColumnFamily(k[0]) != cf {
			break
		}
		if prefixedEnd != nil && bytes.Compare(k, prefixedEnd) >= 0 {
			break
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: k[1:], Value: v})
	}
	return entries, nil
}

// WriteOp is a single mutation inside an atomic WriteBatch.
type WriteOp struct {
	CF     ColumnFamily
	Key    []byte
	Value  []byte // ignored when Delete is set
	Delete bool
}

// WriteBatch applies every op atomically: either all succeed and are
// durable together, or none are applied (spec §4.2 "atomic"; §4.4
// "a single C2 batch").
func (s *Store) WriteBatch(ops []WriteOp) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			k := prefixedKey(op.CF, op.Key)
			if op.Delete {
				if err := txn.Delete(k); err != nil {
					return err
				}
				continue
			}
			if len(op.Value) > s.maxValueSize {
				return errors.Storage("value exceeds per-entry size cap", nil)
			}
			if err := txn.Set(k, op.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Storage("write batch failed", err)
	}
	return nil
}

// SnapshotIterator is a consistent point-in-time iterator over one
// column family (spec §4.2 "iter_snapshot").
type SnapshotIterator struct {
	txn *badger.Txn
	it  *badger.Iterator
	cf  ColumnFamily
	ok  bool
}

// IterSnapshot opens a consistent point-in-time iterator over cf. The
// caller must call Close when done.
func (s *Store) IterSnapshot(cf ColumnFamily) *SnapshotIterator {
	txn := s.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	prefix := []byte{byte(cf)}
	it.Seek(prefix)
	return &SnapshotIterator{txn: txn, it: it, cf: cf, ok: true}
}

// Next reports whether a current entry is available, returning false
// once exhausted. It does not move the iterator; Entry does.
func (si *SnapshotIterator) Next() bool {
	if !si.ok || !si.it.Valid() {
		return false
	}
	k := si.it.Item().Key()
	if len(k) == 0 || ColumnFamily(k[0]) != si.cf {
		return false
	}
	return true
}

// Entry returns the current (key, value) pair and advances the
// iterator past it. Call Next before each Entry.
func (si *SnapshotIterator) Entry() (Entry, error) {
	item := si.it.Item()
	k := item.KeyCopy(nil)
	v, err := item.ValueCopy(nil)
	if err != nil {
		return Entry{}, errors.Storage("snapshot iterator read failed", err)
	}
	entry := Entry{Key: k[1:], Value: v}
	si.it.Next()
	return entry, nil
}

// Close releases the iterator and its underlying read transaction.
func (si *SnapshotIterator) Close() {
	si.it.Close()
	si.txn.Discard()
}

// Txn is a read-write view of the store scoped to one in-flight
// transaction: writes made through it are only durable if the
// enclosing Transact call's fn returns nil.
type Txn struct {
	txn          *badger.Txn
	maxValueSize int
}

// Get reads (cf, key) as seen by this transaction, including any of
// its own uncommitted writes.
func (t *Txn) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(prefixedKey(cf, key))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Storage("get failed", err)
	}
	var out []byte
	if err := item.Value(func(val []byte) error {
		out = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return nil, false, errors.Storage("get failed", err)
	}
	return out, true, nil
}

// Put stages a write at (cf, key), visible to later reads on the same
// Txn but not durable until Transact's fn returns nil.
func (t *Txn) Put(cf ColumnFamily, key, value []byte) error {
	if len(value) > t.maxValueSize {
		return errors.Storage("value exceeds per-entry size cap", nil)
	}
	if err := t.txn.Set(prefixedKey(cf, key), value); err != nil {
		return errors.Storage("put failed", err)
	}
	return nil
}

// Delete stages a delete at (cf, key).
func (t *Txn) Delete(cf ColumnFamily, key []byte) error {
	if err := t.txn.Delete(prefixedKey(cf, key)); err != nil {
		return errors.Storage("delete failed", err)
	}
	return nil
}

// RangeScan reads [start, end) in cf as seen by this transaction.
func (t *Txn) RangeScan(cf ColumnFamily, start, end []byte) ([]Entry, error) {
	prefixedStart := prefixedKey(cf, start)
	var prefixedEnd []byte
	if end != nil {
		prefixedEnd = prefixedKey(cf, end)
	}
	entries, err := scanRange(t.txn, cf, prefixedStart, prefixedEnd)
	if err != nil {
		return nil, errors.Storage("range scan failed", err)
	}
	return entries, nil
}

// Transact runs fn against a single badger read-write transaction:
// every Txn write it makes commits atomically if fn returns nil, and
// is discarded entirely if fn returns an error (spec §4.4's "execute
// every Action under a single C2 batch ... asserting it matches ...
// a mismatch rolls back the batch"). This is the only place callers
// needing a preview-then-commit-or-rollback sequence (C4 delta
// application) should reach for; plain Put/WriteBatch always commit
// immediately.
func (s *Store) Transact(fn func(txn *Txn) error) error {
	// fn's error (if any) is returned verbatim rather than wrapped, so a
	// typed error it raises (e.g. a root-hash mismatch) survives for the
	// caller to inspect with errors.Is/As.
	return s.db.Update(func(badgerTxn *badger.Txn) error {
		return fn(&Txn{txn: badgerTxn, maxValueSize: s.maxValueSize})
	})
}
