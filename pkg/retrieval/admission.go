package retrieval

import (
	"container/heap"
	"context"
	"sync"
)

// waiter is one blocked Acquire call.
type waiter struct {
	priority int
	seq      uint64
	index    int
	granted  bool
	ready    chan struct{}
}

// waitQueue orders waiters by priority (high first), then arrival.
type waitQueue []*waiter

func (q waitQueue) Len() int { return len(q) }

func (q waitQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q waitQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waitQueue) Push(x any) {
	w := x.(*waiter) //nolint:forcetypeassert // heap only holds waiters
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waitQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}

// AdmissionStats is a snapshot of the admission queue.
type AdmissionStats struct {
	ActiveRequests  int   `json:"active_requests"`
	MaxConcurrency  int   `json:"max_concurrency"`
	Waiting         int   `json:"waiting"`
	ConcurrencyHits int64 `json:"concurrency_hits"`
}

// admission bounds in-flight requests and lets higher-priority waiters in first.
//
//nolint:govet // fieldalignment: Struct layout optimized for readability over memory
type admission struct {
	mu              sync.Mutex
	active          int
	maxConcurrency  int
	seq             uint64
	waiting         waitQueue
	concurrencyHits int64
}

func newAdmission(maxConcurrency int) *admission {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &admission{maxConcurrency: maxConcurrency}
}

// Acquire blocks until a slot is free or ctx is done.
// The returned release function MUST be called exactly once.
func (a *admission) Acquire(ctx context.Context, priority int) (func(), error) {
	a.mu.Lock()
	if a.active < a.maxConcurrency && len(a.waiting) == 0 {
		a.active++
		a.mu.Unlock()
		return a.release, nil
	}

	a.concurrencyHits++
	a.seq++
	w := &waiter{priority: priority, seq: a.seq, ready: make(chan struct{})}
	heap.Push(&a.waiting, w)
	a.mu.Unlock()

	select {
	case <-w.ready:
		return a.release, nil
	case <-ctx.Done():
		a.mu.Lock()
		if w.granted {
			// Slot was handed over while we gave up; pass it on.
			a.mu.Unlock()
			a.release()
		} else {
			heap.Remove(&a.waiting, w.index)
			a.mu.Unlock()
		}
		return nil, ctx.Err() //nolint:wrapcheck // Context error propagated as-is
	}
}

// release hands the slot to the best waiter, or frees it.
func (a *admission) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.waiting) > 0 {
		w := heap.Pop(&a.waiting).(*waiter) //nolint:forcetypeassert // heap only holds waiters
		w.granted = true
		close(w.ready)
		return
	}
	a.active--
}

// Stats returns a snapshot (thread-safe).
func (a *admission) Stats() AdmissionStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AdmissionStats{
		ActiveRequests:  a.active,
		MaxConcurrency:  a.maxConcurrency,
		Waiting:         len(a.waiting),
		ConcurrencyHits: a.concurrencyHits,
	}
}
