package engine

import (
	"container/heap"
	"time"

	"github.com/concolic-go/concolic/constraint"
)

// pendingItem is one entry in the priority queue: a constraint awaiting a
// solve attempt at a given timeout rung.
type pendingItem struct {
	c           *constraint.Constraint
	nextTimeout time.Duration
	index       int
}

// frontier is the PendingConstraint priority queue: smaller next_timeout
// first, breaking ties by *longer* path length (deeper nodes first). This
// preserves the original source's inverted __lt__ (a deeper node compares
// as "less"), a deliberate deepest-first tie-break.
type frontier []*pendingItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].nextTimeout != f[j].nextTimeout {
		return f[i].nextTimeout < f[j].nextTimeout
	}
	return f[i].c.Depth() > f[j].c.Depth()
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index, f[j].index = i, j
}

func (f *frontier) Push(x interface{}) {
	item := x.(*pendingItem)
	item.index = len(*f)
	*f = append(*f, item)
}

func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*f = old[:n-1]
	return item
}

// Queue wraps a container/heap frontier behind a small push/pop API so
// the engine's dispatch loop doesn't need to know about heap internals.
type Queue struct {
	h frontier
}

func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

func (q *Queue) Push(c *constraint.Constraint, timeout time.Duration) {
	heap.Push(&q.h, &pendingItem{c: c, nextTimeout: timeout})
}

// Pop removes and returns the highest-priority item. ok is false when the
// queue is empty.
func (q *Queue) Pop() (c *constraint.Constraint, timeout time.Duration, ok bool) {
	if q.h.Len() == 0 {
		return nil, 0, false
	}
	item := heap.Pop(&q.h).(*pendingItem)
	return item.c, item.nextTimeout, true
}

func (q *Queue) Len() int { return q.h.Len() }
