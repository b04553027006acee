// Copyright 2024 Calimero Network
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package buffer implements the delta buffer and replay gate (spec
// §4.7, C7): gossip deltas received while a state-based sync is active
// on the same context are queued here instead of being dropped or
// applied out of causal order.
package buffer

import (
	"container/list"
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/calimero-network/core/core"
	"github.com/calimero-network/core/dag"
)

// DefaultCapacity is the FIFO's bound (spec §4.7 "default 10 000").
const DefaultCapacity = 10_000

// Entry is one buffered delta awaiting replay.
type Entry struct {
	DeltaID core.DeltaId
	Actions []dag.Action
}

// Buffer is a FIFO-bounded holding area for gossip deltas arriving
// during an in-flight state-based sync on the same context (spec §4.7,
// invariant I6). The zero value is not usable; construct with New.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	queue    *list.List
	index    map[core.DeltaId]*list.Element
	dropped  metric.Int64Counter
}

// Options configures a Buffer.
type Options struct {
	Capacity int // 0 means DefaultCapacity
	Meter    metric.Meter
}

// New constructs a Buffer with the given capacity, registering a
// dropped-delta counter against meter if provided (spec §4.7 "surface
// in health").
func New(opts Options) (*Buffer, error) {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	var dropped metric.Int64Counter
	if opts.Meter != nil {
		c, err := opts.Meter.Int64Counter(
			"sync_buffer_dropped_deltas",
			metric.WithDescription("deltas evicted from the sync replay buffer due to overflow"),
		)
		if err != nil {
			return nil, err
		}
		dropped = c
	}

	return &Buffer{
		capacity: capacity,
		queue:    list.New(),
		index:    make(map[core.DeltaId]*list.Element),
		dropped:  dropped,
	}, nil
}

// Buffer inserts (deltaID, actions) at the tail of the FIFO. If the
// delta is already buffered this is a no-op (gossip may redeliver). On
// overflow the oldest entry is evicted and the dropped counter, if
// configured, is incremented (spec §4.7).
func (b *Buffer) Buffer(ctx context.Context, deltaID core.DeltaId, actions []dag.Action) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.index[deltaID]; ok {
		return
	}

	elem := b.queue.PushBack(Entry{DeltaID: deltaID, Actions: actions})
	b.index[deltaID] = elem

	if b.queue.Len() > b.capacity {
		oldest := b.queue.Front()
		b.queue.Remove(oldest)
		delete(b.index, oldest.Value.(Entry).DeltaID)
		if b.dropped != nil {
			b.dropped.Add(ctx, 1)
		}
	}
}

// Len reports how many deltas are currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Drain returns every buffered entry in FIFO order and clears the
// buffer (spec §4.7 `drain`).
func (b *Buffer) Drain() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked()
}

func (b *Buffer) drainLocked() []Entry {
	entries := make([]Entry, 0, b.queue.Len())
	for e := b.queue.Front(); e != nil; e = e.Next() {
		entries = append(entries, e.Value.(Entry))
	}
	b.queue.Init()
	b.index = make(map[core.DeltaId]*list.Element)
	return entries
}

// Replayer applies one buffered delta through C4, so cascades and
// root-hash verification still happen on replay.
type Replayer func(deltaID core.DeltaId, actions []dag.Action) error

// FinishSync atomically drains the buffer and replays every entry
// through replay, in FIFO order (spec §4.7 `finish_sync`). The buffer
// is cleared before replay begins, so a delta that arrives mid-replay
// is buffered fresh rather than lost or reordered into this batch.
func (b *Buffer) FinishSync(replay Replayer) error {
	b.mu.Lock()
	entries := b.drainLocked()
	b.mu.Unlock()

	for _, e := range entries {
		if err := replay(e.DeltaID, e.Actions); err != nil {
			return err
		}
	}
	return nil
}

// CrashReset discards every buffered delta. Called on node restart:
// crash recovery re-initiates sync from scratch rather than trying to
// recover buffered state (spec §4.7 `crash_reset`).
func (b *Buffer) CrashReset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drainLocked()
}
