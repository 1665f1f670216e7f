// Package history keeps the groups most recently dissolved by an ungroup
// so they can be restored once.
package history

import (
	"errors"
	"sync"

	"github.com/lotas/tabgruppen/internal/types"
)

// DefaultDepth is the number of entries kept when none is configured.
const DefaultDepth = 20

// ErrNotFound is returned when no entry exists for a group.
var ErrNotFound = errors.New("no ungroup history for group")

// Buffer is a fixed-depth, insertion-ordered store of history entries keyed
// by the original group id. Recording past the depth evicts the oldest
// entry; recording a known group id replaces it and makes it the newest.
type Buffer struct {
	mu      sync.Mutex
	depth   int
	entries []types.HistoryEntry // oldest first
}

// New returns a Buffer holding at most depth entries.
func New(depth int) *Buffer {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &Buffer{depth: depth}
}

// Record stores e, evicting as needed.
func (b *Buffer) Record(e types.HistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.remove(e.GroupID)
	if len(b.entries) == b.depth {
		b.entries = b.entries[1:]
	}
	e.MemberIDs = append([]int(nil), e.MemberIDs...)
	b.entries = append(b.entries, e)
}

// Take removes and returns the entry for groupID.
func (b *Buffer) Take(groupID int) (types.HistoryEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(groupID)
}

// TakeLatest removes and returns the most recently recorded entry.
func (b *Buffer) TakeLatest() (types.HistoryEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return types.HistoryEntry{}, false
	}
	last := b.entries[len(b.entries)-1]
	b.entries = b.entries[:len(b.entries)-1]
	return last, true
}

// Latest returns the most recently recorded entry without removing it.
func (b *Buffer) Latest() (types.HistoryEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return types.HistoryEntry{}, false
	}
	return b.entries[len(b.entries)-1], true
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns a copy of the stored entries, newest first.
func (b *Buffer) Entries() []types.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.HistoryEntry, len(b.entries))
	for i, e := range b.entries {
		out[len(out)-1-i] = e
	}
	return out
}

func (b *Buffer) remove(groupID int) (types.HistoryEntry, bool) {
	for i, e := range b.entries {
		if e.GroupID == groupID {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return e, true
		}
	}
	return types.HistoryEntry{}, false
}
