// Package idgen hands out monotonically increasing integer ids.
package idgen

import "golang.org/x/exp/constraints"

// Allocator assigns ids in [first, limit] in increasing order and never reuses
// one. It is not safe for concurrent use; callers hold their own lock.
type Allocator[T constraints.Integer] struct {
	next  T
	limit T
	done  bool // set once limit has been handed out
}

// New returns an Allocator whose first id is first and last id is limit
func New[T constraints.Integer](first, limit T) *Allocator[T] {
	return &Allocator[T]{next: first, limit: limit, done: first > limit}
}

// Next returns the next id, or false once the range is used up
func (a *Allocator[T]) Next() (T, bool) {
	if a.done {
		var zero T
		return zero, false
	}
	id := a.next
	if id == a.limit {
		a.done = true
	} else {
		a.next++
	}
	return id, true
}

// Peek returns the id the next call to Next would return
func (a *Allocator[T]) Peek() (T, bool) {
	if a.done {
		var zero T
		return zero, false
	}
	return a.next, true
}
