// Package queue provides the thread-safe queues that buffer engagement
// records between the solver workers and the writers.
package queue

import (
	"fmt"
	"sync"
)

// Queue is a generic thread-safe queue.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Pop removes and returns the first item. Returns zero value if empty.
func (q *Queue[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear removes all items from the queue.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}

/* Map to assemble per-step sweep rows for write out to JSON */

// SweepStatesMap holds one export row per range step of a sweep. Steps the
// solver could not reach stay unset; readers scan forward to the next solved
// step instead.
type SweepStatesMap struct {
	stepData  map[uint][]interface{}
	lastState []interface{}
}

func NewSweepStatesMap() *SweepStatesMap {
	return &SweepStatesMap{
		stepData: make(map[uint][]interface{}),
	}
}

func (q *SweepStatesMap) Set(step uint, row []interface{}) {
	q.stepData[step] = row
}

// Len
func (q *SweepStatesMap) Len() int {
	return len(q.stepData)
}

// GetStateAtStep returns the row at the given range step, or scans forward to
// the next step that has one. Returns an error when nothing is solved out to
// endStep.
func (q *SweepStatesMap) GetStateAtStep(step uint, endStep uint) ([]interface{}, error) {
	row, ok := q.stepData[step]
	if !ok {
		for i := step; i <= endStep; i++ {
			row, ok := q.stepData[i]
			if ok {
				q.lastState = row
				return row, nil
			}
		}
		return []interface{}{}, fmt.Errorf("no sweep row found for step %d", step)
	}
	return row, nil
}

// GetLastState returns the last row found by a forward scan.
func (q *SweepStatesMap) GetLastState() []interface{} {
	return q.lastState
}
