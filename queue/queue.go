/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package queue

import (
	"io"
	"sync"
	"sync/atomic"
)

type queue struct {
	// mu guards both items and closed. Enqueue and Drain both mutate the
	// slice (append vs. re-slice/in-place edit of the head), so both take
	// the exclusive lock; Len is the only reader that can use RLock.
	mu     sync.RWMutex
	items  []Request
	closed bool

	// registeredForWrite coalesces concurrent flush requests: only the
	// producer that flips it false->true calls notify.
	registeredForWrite atomic.Bool
	notify             FlushNotifier
}

// New returns an empty Queue. notify may be nil if the caller polls write
// interest instead of being pushed a coalesced flush signal.
func New(notify FlushNotifier) Queue {
	return &queue{items: make([]Request, 0, 4), notify: notify}
}

func (q *queue) Enqueue(req Request) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrorClosed.Error()
	}
	q.items = append(q.items, req)
	q.mu.Unlock()

	if q.registeredForWrite.CompareAndSwap(false, true) {
		if q.notify != nil {
			q.notify()
		}
	}

	return nil
}

func (q *queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *queue) Drain(w io.Writer) (bool, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	written := 0

	for len(q.items) > 0 {
		head := &q.items[0]

		n, err := w.Write(head.Payload)
		if n > 0 {
			written += n
			head.Payload = head.Payload[n:]
		}

		if err != nil {
			q.registeredForWrite.Store(len(q.items) > 0)
			return len(q.items) == 0, written, err
		}

		if len(head.Payload) > 0 {
			// Partial write: remainder stays at the head, socket buffer is
			// full for now, stop draining until the next write-ready event.
			q.registeredForWrite.Store(true)
			return false, written, nil
		}

		if head.Future != nil {
			head.Future.Set(struct{}{})
		}

		q.items = q.items[1:]
	}

	q.registeredForWrite.Store(false)

	return true, written, nil
}

func (q *queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true

	for i := range q.items {
		if q.items[i].Future != nil {
			q.items[i].Future.Fail(ErrorClosed.Error())
		}
	}

	q.items = nil

	return nil
}
