// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package events implements the process-wide event bus used to fan out
// applied-delta notifications to subscribers (§6 subscribe_events).
package events

import "sync"

// Update is published whenever a context's state changes because a
// CausalDelta was applied, whether via gossip, DeltaSync, SnapshotSync
// or MerkleSync.
type Update struct {
	ContextID [32]byte
	DeltaID   [32]byte
	RootHash  [32]byte
	Height    uint64
	Events    [][]byte
}

// Bus fans Update values out to any number of subscribers, one channel
// per subscriber, matching the teacher's Events().Updates pattern.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Update]struct{}
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Update]struct{})}
}

// Subscribe registers a new listener and returns its channel. The
// channel is buffered so a slow subscriber cannot block Publish.
func (b *Bus) Subscribe() chan Update {
	ch := make(chan Update, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a previously subscribed channel.
func (b *Bus) Unsubscribe(ch chan Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish delivers u to every current subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the publisher.
func (b *Bus) Publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Close shuts the bus down, closing every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
