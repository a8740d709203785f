// Package intake holds the in-memory work queue fed by the initial scan and
// the filesystem event stream, and the eligibility rules applied before a
// path is admitted.
package intake

import (
	"container/list"
	"sync"
	"time"
)

// Entry is a discovered path waiting to be processed.
type Entry struct {
	Path         string
	DiscoveredAt time.Time
}

// Queue is a FIFO of unique paths. The first path enqueued is the first one
// dequeued. Every method takes the same mutex and does no I/O while holding it.
//
// A dequeued path stays held until Release, and cannot be enqueued again
// while the consumer owns it.
type Queue struct {
	mu      sync.Mutex
	order   *list.List
	members map[string]*list.Element
	held    map[string]struct{}
	now     func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		order:   list.New(),
		members: make(map[string]*list.Element),
		held:    make(map[string]struct{}),
		now:     time.Now,
	}
}

// Enqueue appends path unless it is already queued or held by the consumer.
// It reports whether the path was added; a duplicate is absorbed silently.
func (q *Queue) Enqueue(path string) bool {
	discovered := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.members[path]; ok {
		return false
	}
	if _, ok := q.held[path]; ok {
		return false
	}
	q.members[path] = q.order.PushBack(Entry{Path: path, DiscoveredAt: discovered})
	return true
}

// DequeueNext removes and returns the earliest entry and holds its path until
// Release. ok is false when the queue is empty.
func (q *Queue) DequeueNext() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.order.Front()
	if front == nil {
		return Entry{}, false
	}
	entry := q.order.Remove(front).(Entry)
	delete(q.members, entry.Path)
	q.held[entry.Path] = struct{}{}
	return entry, true
}

// Release ends the hold DequeueNext placed on path.
func (q *Queue) Release(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.held, path)
}

// Clear drops every queued entry and reports how many were dropped. Held
// paths are left alone.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.order.Len()
	q.order.Init()
	clear(q.members)
	return n
}

// SnapshotOrdered returns a copy of the queued paths in processing order.
func (q *Queue) SnapshotOrdered() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, q.order.Len())
	for el := q.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(Entry).Path)
	}
	return out
}

func (q *Queue) Contains(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.members[path]
	return ok
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}
