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

// Package future implements a one-shot completion value shared by writes,
// connects and the TLS handshake. A Future starts Pending and settles exactly
// once, to Completed, Failed or Cancelled; settling twice is a programming
// error and panics.
package future

import (
	"context"
)

// State is the lifecycle position of a Future.
type State uint8

const (
	Pending State = iota
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Listener is invoked once, with the settled state of the future. It runs
// inline on the registering goroutine if the future is already settled when
// registered, otherwise it runs on whichever goroutine calls Set/Fail/Cancel.
type Listener[T any] func(value T, err error, state State)

// Owner may be attached to a Future so that Cancel can ask the operation
// that would fulfil it to stop at its next safe point. Nil owners make
// Cancel a pure state transition with no side effect.
type Owner interface {
	CancelRequested(mayInterrupt bool) bool
}

// Future is a generic one-shot completion value.
type Future[T any] interface {
	// State returns the current lifecycle state.
	State() State

	// Get blocks until the future settles or ctx is done, whichever comes
	// first. A context deadline surfaces as ErrorTimeout.
	Get(ctx context.Context) (T, error)

	// Register attaches a listener. If the future is already settled the
	// listener runs synchronously, inline, before Register returns.
	Register(l Listener[T])

	// Set completes the future successfully. Panics if already settled.
	Set(value T)

	// Fail completes the future with an error. Panics if already settled.
	Fail(err error)

	// Cancel transitions a Pending future to Cancelled and, if an Owner was
	// supplied at construction, asks it to stop the in-flight work. Returns
	// false if the future was already settled.
	Cancel(mayInterrupt bool) bool
}
