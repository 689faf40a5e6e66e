// Package inbox buffers user input headed into a running agent loop,
// turning push-style keystrokes into a pull-style sequence for the session
// driver. Nothing pushed is lost and nothing is delivered twice.
package inbox

import (
	"context"
	"errors"
	"iter"
	"sync"
)

// ErrClosed is returned by Push after Close, and by Next once the queue is
// closed and drained. Pushing after close is a contract violation by the
// caller, not a recoverable runtime condition.
var ErrClosed = errors.New("inbox: queue closed")

// Queue is an unbounded FIFO of pending user-text items with a list of
// suspended consumers. It supports exactly one active consumer; concurrent
// consumers each receive a disjoint subset of pushes, never a broadcast.
//
// The buffer and waiter list are guarded by one mutex so Push, Close, and
// consumption never interleave mid-mutation.
type Queue struct {
	mu      sync.Mutex
	items   []string
	waiters []chan string
	closed  bool
}

// New creates an open queue. One queue serves one session; close it when
// the session ends so any suspended consumer is released.
func New() *Queue {
	return &Queue{}
}

// Push appends one item, or hands it directly to the oldest suspended
// consumer when one is waiting. A directly delivered item bypasses the
// buffer and is never observable via Size. Push fails once the queue is
// closed; it never silently drops.
func (q *Queue) Push(text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	for len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		select {
		case w <- text:
			return nil
		default:
			// Waiter abandoned by a canceled Next; try the next one.
		}
	}

	q.items = append(q.items, text)
	return nil
}

// Close marks the queue terminal and releases every suspended consumer
// with end-of-stream. It is idempotent; there is no reopen. Items already
// buffered remain consumable until drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for _, w := range q.waiters {
		close(w)
	}
	q.waiters = nil
}

// Size reports the number of buffered items. Items delivered directly to a
// suspended consumer never count.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Waiting reports the number of suspended consumers.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}

// Next returns the next item in FIFO order. With the buffer empty and the
// queue open it suspends until a Push or Close. It returns ErrClosed once
// the queue is closed and drained, and ctx.Err() when the context ends
// first. The queue itself has no timeout; callers needing bounded waiting
// layer it through ctx.
func (q *Queue) Next(ctx context.Context) (string, error) {
	q.mu.Lock()

	if len(q.items) > 0 {
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return item, nil
	}

	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}

	w := make(chan string, 1)
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case item, ok := <-w:
		if !ok {
			return "", ErrClosed
		}
		return item, nil

	case <-ctx.Done():
		q.mu.Lock()
		defer q.mu.Unlock()
		q.removeWaiter(w)
		// A Push may have delivered into w before we took the lock.
		// Return the item to the head of the buffer so it is neither
		// lost nor duplicated.
		select {
		case item, ok := <-w:
			if ok {
				q.items = append([]string{item}, q.items...)
			}
		default:
		}
		return "", ctx.Err()
	}
}

// All exposes the queue as a single-pass, non-restartable sequence:
// buffered items FIFO, then suspension until push or close, terminating
// once closed and drained or once ctx ends.
func (q *Queue) All(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			item, err := q.Next(ctx)
			if err != nil {
				return
			}
			if !yield(item) {
				return
			}
		}
	}
}

// removeWaiter must be called with q.mu held.
func (q *Queue) removeWaiter(w chan string) {
	for i, cand := range q.waiters {
		if cand == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}
