package latticeplanner

import (
	"container/heap"
	"math"

	"go.viam.com/latticeplanner/motionplan/xytheta"
)

// Handle refers to one entry of an OpenList. The zero Handle refers to nothing.
type Handle struct {
	slot int32
	gen  uint32
}

// NullHandle is the handle of a state that isn't queued.
var NullHandle = Handle{}

// IsNull reports whether the handle refers to nothing.
func (h Handle) IsNull() bool {
	return h.gen == 0
}

type openEntry struct {
	id      xytheta.StateID
	f       float64
	seq     uint64
	gen     uint32
	heapIdx int
}

// slotHeap orders slot indices by the f of the entry they point at. Entries live in a slab that is
// never shrunk so handles stay cheap to check.
type slotHeap struct {
	entries []openEntry
	order   []int32
}

func (h *slotHeap) Len() int { return len(h.order) }

func (h *slotHeap) Less(i, j int) bool {
	a, b := &h.entries[h.order[i]], &h.entries[h.order[j]]
	if a.f != b.f {
		return a.f < b.f
	}
	return a.seq < b.seq
}

func (h *slotHeap) Swap(i, j int) {
	h.order[i], h.order[j] = h.order[j], h.order[i]
	h.entries[h.order[i]].heapIdx = i
	h.entries[h.order[j]].heapIdx = j
}

func (h *slotHeap) Push(x any) {
	slot := x.(int32)
	h.entries[slot].heapIdx = len(h.order)
	h.order = append(h.order, slot)
}

func (h *slotHeap) Pop() any {
	n := len(h.order) - 1
	slot := h.order[n]
	h.order = h.order[:n]
	h.entries[slot].heapIdx = -1
	return slot
}

// OpenList is a min priority queue of states keyed by f. States with equal f come out in the order
// they went in. Inserting returns a Handle that can later remove the state.
type OpenList struct {
	heap    slotHeap
	free    []int32
	nextSeq uint64
}

// NewOpenList returns an empty open list.
func NewOpenList() *OpenList {
	return &OpenList{}
}

// Insert queues `id` with priority `f`.
func (ol *OpenList) Insert(id xytheta.StateID, f float64) Handle {
	var slot int32
	if n := len(ol.free); n > 0 {
		slot = ol.free[n-1]
		ol.free = ol.free[:n-1]
	} else {
		ol.heap.entries = append(ol.heap.entries, openEntry{})
		slot = int32(len(ol.heap.entries) - 1)
	}

	entry := &ol.heap.entries[slot]
	entry.gen++
	if entry.gen == 0 {
		entry.gen = 1
	}
	entry.id = id
	entry.f = f
	entry.seq = ol.nextSeq
	ol.nextSeq++
	heap.Push(&ol.heap, slot)
	return Handle{slot: slot, gen: entry.gen}
}

func (ol *OpenList) release(slot int32) {
	ol.free = append(ol.free, slot)
}

// Pop removes and returns the state with the lowest f. It returns false if the list is empty.
func (ol *OpenList) Pop() (xytheta.StateID, float64, bool) {
	if ol.heap.Len() == 0 {
		return 0, 0, false
	}
	slot := heap.Pop(&ol.heap).(int32)
	entry := ol.heap.entries[slot]
	ol.release(slot)
	return entry.id, entry.f, true
}

// Top returns the state with the lowest f without removing it.
func (ol *OpenList) Top() (xytheta.StateID, bool) {
	if ol.heap.Len() == 0 {
		return 0, false
	}
	return ol.heap.entries[ol.heap.order[0]].id, true
}

// TopF returns the lowest f in the list, or +Inf if it is empty.
func (ol *OpenList) TopF() float64 {
	if ol.heap.Len() == 0 {
		return math.Inf(1)
	}
	return ol.heap.entries[ol.heap.order[0]].f
}

// Contains reports whether the handle still refers to a queued state.
func (ol *OpenList) Contains(h Handle) bool {
	if h.IsNull() || int(h.slot) >= len(ol.heap.entries) {
		return false
	}
	entry := &ol.heap.entries[h.slot]
	return entry.gen == h.gen && entry.heapIdx >= 0
}

// Remove takes the state referred to by `h` out of the list.
func (ol *OpenList) Remove(h Handle) error {
	if !ol.Contains(h) {
		return ErrStaleHandle
	}
	heap.Remove(&ol.heap, ol.heap.entries[h.slot].heapIdx)
	ol.release(h.slot)
	return nil
}

// Len returns the number of queued states.
func (ol *OpenList) Len() int {
	return ol.heap.Len()
}

// Empty reports whether nothing is queued.
func (ol *OpenList) Empty() bool {
	return ol.heap.Len() == 0
}

// Clear empties the list. Handles given out before are stale afterwards.
func (ol *OpenList) Clear() {
	for _, slot := range ol.heap.order {
		ol.heap.entries[slot].heapIdx = -1
		ol.release(slot)
	}
	ol.heap.order = ol.heap.order[:0]
}
