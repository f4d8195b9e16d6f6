// Implements the PendingQueue, which holds all containers waiting for the crane.
// Containers are enqueued by job arrivals and reordered by the QueueSequencer.

package sim

import (
	"fmt"
	"slices"
	"strings"
)

// PendingQueue is the ordered list of crane jobs not yet started.
// Storage jobs hold containers that are not in the yard yet; retrieval jobs
// reference containers still sitting on their stack.
type PendingQueue struct {
	queue []*Container
}

// Enqueue adds a container to the back of the queue.
func (pq *PendingQueue) Enqueue(c *Container) {
	if c == nil {
		panic("Enqueue: container must not be nil")
	}
	pq.queue = append(pq.queue, c)
}

func (pq *PendingQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range pq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(pq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of containers in the queue.
func (pq *PendingQueue) Len() int {
	return len(pq.queue)
}

// Peek returns the container at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (pq *PendingQueue) Peek() *Container {
	if len(pq.queue) == 0 {
		return nil
	}
	return pq.queue[0]
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage -- callers within the
// sim package may iterate over it but MUST NOT append to or reslice it.
// For reordering, use Reorder() instead.
func (pq *PendingQueue) Items() []*Container {
	return pq.queue
}

// Contains reports whether c is queued.
func (pq *PendingQueue) Contains(c *Container) bool {
	return slices.Contains(pq.queue, c)
}

// Remove deletes the first occurrence of c and reports whether it was queued.
func (pq *PendingQueue) Remove(c *Container) bool {
	i := slices.Index(pq.queue, c)
	if i < 0 {
		return false
	}
	pq.queue = slices.Delete(pq.queue, i, i+1)
	return true
}

// Reorder applies fn to the queue contents, allowing in-place reordering.
// The QueueSequencer is the primary consumer:
//
//	pq.Reorder(func(cs []*Container) {
//	    sequencer.Sequence(cs, clock)
//	})
//
// fn MUST NOT change the slice length (no append/delete).
func (pq *PendingQueue) Reorder(fn func([]*Container)) {
	if fn == nil {
		panic("Reorder: fn must not be nil")
	}
	n := len(pq.queue)
	fn(pq.queue)
	if len(pq.queue) != n {
		panic(fmt.Sprintf("Reorder: fn changed queue length from %d to %d", n, len(pq.queue)))
	}
}
