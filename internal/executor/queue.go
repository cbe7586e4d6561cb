package executor

import (
	"container/heap"
	"sync"
	"time"
)

// admissionItem is a Submit call denied an immediate concurrency slot,
// parked until the admission loop can retry it. Ordering follows the
// Instance's own priority field.
type admissionItem struct {
	instanceID string
	dagID      string
	priority   int
	enqueuedAt time.Time
	index      int
}

type admissionHeap []*admissionItem

func (h admissionHeap) Len() int { return len(h) }

func (h admissionHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].enqueuedAt.Before(h[j].enqueuedAt)
}

func (h admissionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *admissionHeap) Push(x interface{}) {
	item := x.(*admissionItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *admissionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// admissionQueue is a thread-safe priority queue of instances waiting for a
// concurrency slot to free up, ordered by Instance.Priority then FIFO,
// backed by container/heap.
type admissionQueue struct {
	mu   sync.Mutex
	heap admissionHeap
}

func newAdmissionQueue() *admissionQueue {
	q := &admissionQueue{heap: make(admissionHeap, 0)}
	heap.Init(&q.heap)
	return q
}

func (q *admissionQueue) push(instanceID, dagID string, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, &admissionItem{
		instanceID: instanceID,
		dagID:      dagID,
		priority:   priority,
		enqueuedAt: time.Now().UTC(),
	})
}

func (q *admissionQueue) pop() *admissionItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*admissionItem)
}

func (q *admissionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
