// ============================================================================
// Adaptive Priority Queue
// ============================================================================
//
// Package: internal/queue
// File: queue.go
// Purpose: Re-scorable, bounded max-priority container over test items
//
// Design:
//   A binary max-heap (container/heap) over (score, seq, item) entries:
//   - score: computed via the scoring policy at push time
//   - seq:   monotonically increasing counter assigned at push time; breaks
//            ties so that equal-score items leave the queue in FIFO order
//   - an id index supports Contains/Remove without scanning the heap
//
// Capacity:
//   The queue is bounded by maxSize. When a push exceeds the bound the
//   lowest-scoring entries are evicted (not an error).
//
// Re-scoring:
//   RescoreAll drains every entry and re-pushes it against the new state,
//   which drops items completed since they were queued and reorders the
//   survivors. O(n log n); the expected scale is at most a few hundred items.
//
// Concurrency:
//   The queue is owned by a single scheduler goroutine and is not
//   self-locking.
//
// ============================================================================

package queue

import (
	"container/heap"
	"errors"
	"sort"

	"github.com/gaiaqa/gaia-scheduler/internal/scoring"
	"github.com/gaiaqa/gaia-scheduler/internal/state"
	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// DefaultMaxSize bounds the queue when no explicit capacity is configured.
const DefaultMaxSize = 100

// ErrMissingID is returned when an item without an id is pushed.
var ErrMissingID = errors.New("test item must have an id")

// entry wraps a test item with its computed score and push sequence number.
type entry struct {
	score int
	seq   uint64
	item  types.TestItem
}

// entryHeap implements heap.Interface as a max-heap on score, with lower
// sequence numbers winning ties (FIFO among equal scores).
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue is the adaptive priority queue.
type Queue struct {
	heap    entryHeap
	index   map[types.ItemID]struct{}
	maxSize int
	seq     uint64
}

// New creates a queue bounded at maxSize entries. A non-positive maxSize
// falls back to DefaultMaxSize.
func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{
		heap:    make(entryHeap, 0),
		index:   make(map[types.ItemID]struct{}),
		maxSize: maxSize,
	}
}

// Push inserts an item scored against the current state.
//
// Behavior:
//   - an item whose id is already completed in state is silently skipped
//     (completed items never re-enter the queue)
//   - after insertion, if the queue exceeds its capacity the lowest-scoring
//     entries are evicted
//
// Returns ErrMissingID when the item has no id.
func (q *Queue) Push(item types.TestItem, st *state.State) error {
	if item.ID == "" {
		return ErrMissingID
	}

	if st.IsTestCompleted(string(item.ID)) {
		return nil
	}

	q.seq++
	e := &entry{
		score: scoring.Score(item, st),
		seq:   q.seq,
		item:  item,
	}

	heap.Push(&q.heap, e)
	q.index[item.ID] = struct{}{}

	if len(q.heap) > q.maxSize {
		q.trim()
	}

	return nil
}

// Pop removes and returns the highest-scoring item. The second return value
// is false when the queue is empty.
func (q *Queue) Pop() (types.TestItem, bool) {
	if len(q.heap) == 0 {
		return types.TestItem{}, false
	}

	e := heap.Pop(&q.heap).(*entry)
	if !q.hasEntryFor(e.item.ID) {
		delete(q.index, e.item.ID)
	}
	return e.item, true
}

// Peek returns the highest-scoring item without removing it.
func (q *Queue) Peek() (types.TestItem, bool) {
	if len(q.heap) == 0 {
		return types.TestItem{}, false
	}
	return q.heap[0].item, true
}

// RescoreAll recomputes every queued item's score against the new state and
// rebuilds the queue. Items completed since they were queued are dropped;
// the queue never grows as a result of re-scoring.
func (q *Queue) RescoreAll(st *state.State) {
	entries := make([]*entry, len(q.heap))
	copy(entries, q.heap)
	// Re-push in original insertion order so the FIFO tie-break survives
	// re-scoring.
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	items := make([]types.TestItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.item)
	}

	q.Clear()

	for _, item := range items {
		// Push skips completed ids and re-applies capacity trimming
		_ = q.Push(item, st)
	}
}

// TopN returns up to n items ordered by descending score without mutating
// the queue.
func (q *Queue) TopN(n int) []types.TestItem {
	if n <= 0 || len(q.heap) == 0 {
		return nil
	}

	sorted := make([]*entry, len(q.heap))
	copy(sorted, q.heap)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].seq < sorted[j].seq
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	items := make([]types.TestItem, 0, n)
	for _, e := range sorted[:n] {
		items = append(items, e.item)
	}
	return items
}

// Contains reports whether an item with the given id is queued.
func (q *Queue) Contains(id types.ItemID) bool {
	_, ok := q.index[id]
	return ok
}

// Remove deletes every queued entry with the given id. Returns true when at
// least one entry was removed. O(queue-size), acceptable at the expected
// scale.
func (q *Queue) Remove(id types.ItemID) bool {
	if _, ok := q.index[id]; !ok {
		return false
	}

	kept := make(entryHeap, 0, len(q.heap))
	for _, e := range q.heap {
		if e.item.ID != id {
			kept = append(kept, e)
		}
	}
	q.heap = kept
	heap.Init(&q.heap)
	delete(q.index, id)

	return true
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return len(q.heap) }

// IsEmpty reports whether the queue has no entries.
func (q *Queue) IsEmpty() bool { return len(q.heap) == 0 }

// Clear removes all entries.
func (q *Queue) Clear() {
	q.heap = q.heap[:0]
	q.index = make(map[types.ItemID]struct{})
}

// trim evicts the lowest-scoring entries until the queue fits its capacity.
func (q *Queue) trim() {
	sorted := make([]*entry, len(q.heap))
	copy(sorted, q.heap)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].seq < sorted[j].seq
	})

	q.heap = entryHeap(sorted[:q.maxSize])
	heap.Init(&q.heap)

	q.index = make(map[types.ItemID]struct{}, len(q.heap))
	for _, e := range q.heap {
		q.index[e.item.ID] = struct{}{}
	}
}

// hasEntryFor reports whether any remaining heap entry carries the id.
// Needed because retried items can briefly exist as duplicate entries.
func (q *Queue) hasEntryFor(id types.ItemID) bool {
	for _, e := range q.heap {
		if e.item.ID == id {
			return true
		}
	}
	return false
}
