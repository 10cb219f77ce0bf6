package eventholder

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/common"
)

// Reset returns the queue to its initial state
func (h *Holder) Reset() {
	h.queue = nil
	h.sequence = 0
	h.lastDispatched = time.Time{}
}

// AppendEvent adds an event to the queue
func (h *Holder) AppendEvent(e common.EventHandler) error {
	if e == nil {
		return common.ErrNilEvent
	}
	if e.GetTime().Before(h.lastDispatched) {
		return fmt.Errorf("%w %v %v before %v", errEventInPast, e.GetSymbol(), e.GetTime(), h.lastDispatched)
	}
	h.sequence++
	heap.Push(&h.queue, queued{event: e, sequence: h.sequence})
	return nil
}

// NextEvent removes and returns the earliest event, or nil when the queue is empty
func (h *Holder) NextEvent() common.EventHandler {
	if len(h.queue) == 0 {
		return nil
	}
	q := heap.Pop(&h.queue).(queued)
	h.lastDispatched = q.event.GetTime()
	return q.event
}

// Len returns the number of queued events
func (h *Holder) Len() int {
	return len(h.queue)
}

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	ti, tj := q[i].event.GetTime(), q[j].event.GetTime()
	if ti.Equal(tj) {
		return q[i].sequence < q[j].sequence
	}
	return ti.Before(tj)
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x interface{}) {
	*q = append(*q, x.(queued))
}

func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = queued{}
	*q = old[:n-1]
	return item
}
