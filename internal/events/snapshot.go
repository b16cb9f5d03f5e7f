// Package events fans strategy status snapshots out to readers such as the
// dashboard and the console.
package events

import (
	"sort"
	"sync"

	"github.com/vadiminshakov/ladderbot/internal/domain"
)

// SnapshotBroadcaster fans out snapshots to all subscribers via buffered
// channels and remembers the latest snapshot of every pair.
type SnapshotBroadcaster struct {
	mu     sync.RWMutex
	subs   map[chan domain.StatusSnapshot]struct{}
	latest map[string]domain.StatusSnapshot
	buffer int
}

// NewSnapshotBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewSnapshotBroadcaster(buffer int) *SnapshotBroadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &SnapshotBroadcaster{
		subs:   make(map[chan domain.StatusSnapshot]struct{}),
		latest: make(map[string]domain.StatusSnapshot),
		buffer: buffer,
	}
}

// Publish records s as the latest for its pair and sends it to all
// subscribers, dropping it for readers that are behind.
func (b *SnapshotBroadcaster) Publish(s domain.StatusSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[s.Pair] = s
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
			// drop slow consumer
		}
	}
}

// Latest returns the most recent snapshot of every pair, sorted by pair.
func (b *SnapshotBroadcaster) Latest() []domain.StatusSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.StatusSnapshot, 0, len(b.latest))
	for _, s := range b.latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })

	return out
}

// Subscribe returns a channel that receives snapshots until Unsubscribe is called.
func (b *SnapshotBroadcaster) Subscribe() chan domain.StatusSnapshot {
	ch := make(chan domain.StatusSnapshot, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *SnapshotBroadcaster) Unsubscribe(ch chan domain.StatusSnapshot) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
