package scheduler

import "container/heap"

// eventHeap implements container/heap.Interface for Event,
// sorted by At (earliest first, min-heap).
type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].At.Before(h[j].At) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds e, replacing a queued event with the same key.
func heapPush(h *eventHeap, e Event) {
	heapRemove(h, e.Key)
	heap.Push(h, e)
}

// heapPop removes and returns the earliest Event.
// Panics if the heap is empty.
func heapPop(h *eventHeap) Event {
	return heap.Pop(h).(Event)
}

// heapRemove removes the Event with the given key and reports whether
// one was queued.
func heapRemove(h *eventHeap, key string) bool {
	for i, e := range *h {
		if e.Key == key {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
