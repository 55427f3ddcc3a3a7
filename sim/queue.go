// Implements the EventQueue, the time-ordered schedule of pending events.

package sim

import "container/heap"

// EventQueue is a binary heap of pending events ordered by (Time, schedule order).
// Events scheduled for the same instant pop in the order they were inserted,
// which keeps runs with the same seed reproducible.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

// Insert schedules ev, stamping it with the next sequence number.
func (q *EventQueue) Insert(ev *Event) {
	if ev == nil {
		panic("Insert: ev must not be nil")
	}
	q.nextSeq++
	ev.seq = q.nextSeq
	heap.Push(&q.events, ev)
}

// PopEarliest removes and returns the next event, or nil if the queue is empty.
func (q *EventQueue) PopEarliest() *Event {
	if len(q.events) == 0 {
		return nil
	}
	return heap.Pop(&q.events).(*Event)
}

// Peek returns the next event without removing it.
func (q *EventQueue) Peek() *Event {
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0]
}

// RemoveIf removes and returns the earliest event (in pop order) for which match
// returns true, or nil if none matches.
func (q *EventQueue) RemoveIf(match func(*Event) bool) *Event {
	best := -1
	for i, ev := range q.events {
		if !match(ev) {
			continue
		}
		if best < 0 || q.events.Less(i, best) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return heap.Remove(&q.events, best).(*Event)
}

// IsEmpty reports whether no events are pending.
func (q *EventQueue) IsEmpty() bool {
	return len(q.events) == 0
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}
