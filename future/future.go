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

package future

import (
	"context"
	"sync"
)

type future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	state     State
	value     T
	err       error
	owner     Owner
	listeners []Listener[T]
}

// New returns a Pending future with no cancellation owner.
func New[T any]() Future[T] {
	return NewWithOwner[T](nil)
}

// NewWithOwner returns a Pending future whose Cancel delegates to owner.
func NewWithOwner[T any](owner Owner) Future[T] {
	return &future[T]{
		done:  make(chan struct{}),
		state: Pending,
		owner: owner,
	}
}

func (f *future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ErrorTimeout.Error(ctx.Err())
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.value, f.err
}

func (f *future[T]) Register(l Listener[T]) {
	if l == nil {
		return
	}

	f.mu.Lock()

	if f.state == Pending {
		f.listeners = append(f.listeners, l)
		f.mu.Unlock()
		return
	}

	value, err, state := f.value, f.err, f.state
	f.mu.Unlock()

	l(value, err, state)
}

func (f *future[T]) Set(value T) {
	f.settle(value, nil, Completed)
}

func (f *future[T]) Fail(err error) {
	var zero T
	f.settle(zero, err, Failed)
}

func (f *future[T]) Cancel(mayInterrupt bool) bool {
	f.mu.Lock()

	if f.state != Pending {
		f.mu.Unlock()
		return false
	}

	owner := f.owner
	f.mu.Unlock()

	if owner != nil {
		if !owner.CancelRequested(mayInterrupt) {
			return false
		}
	}

	var zero T
	return f.settle(zero, ErrorCancelled.Error(), Cancelled)
}

// settle performs the set-once transition and fires listeners. Returns false
// (without panicking) only when called from Cancel racing a concurrent
// completion; Set/Fail always panic on a repeat call, per the set-once
// invariant.
func (f *future[T]) settle(value T, err error, state State) bool {
	f.mu.Lock()

	if f.state != Pending {
		f.mu.Unlock()

		if state != Cancelled {
			panic(ErrorAlreadyCompleted.Error())
		}

		return false
	}

	f.value = value
	f.err = err
	f.state = state
	listeners := f.listeners
	f.listeners = nil

	close(f.done)
	f.mu.Unlock()

	for _, l := range listeners {
		l(value, err, state)
	}

	return true
}
