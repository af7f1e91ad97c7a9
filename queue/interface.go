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

// Package queue implements the per-session write queue of §4.4: a FIFO of
// pending write requests, drained by the owning selector loop, coalescing
// concurrent flush requests behind a single atomic flag.
package queue

import (
	"io"

	"github.com/nabbar/gonio/future"
)

// Request is one pending send: an opaque payload plus an optional
// completion future signalled once every byte has hit the kernel.
type Request struct {
	Payload []byte
	Future  future.Future[struct{}]
}

// FlushNotifier is called the first time a session transitions from no
// pending flush to pending flush (registeredForWrite false -> true), so the
// caller can enqueue the session on its loop's flush-session intake queue
// exactly once per coalesced burst.
type FlushNotifier func()

// Queue is a single session's FIFO of write requests.
type Queue interface {
	// Enqueue appends req to the tail. Returns ErrorClosed if Close was
	// already called. Triggers the FlushNotifier at most once per drain
	// cycle regardless of how many goroutines call Enqueue concurrently.
	Enqueue(req Request) error

	// Drain writes as much of the head-of-queue payload as w accepts,
	// stopping at the first partial write. It never loses or duplicates
	// bytes: a partial write is retried from the exact remainder on the
	// next Drain call. Returns true if the queue is now empty, plus the
	// number of bytes actually handed to w during this call.
	Drain(w io.Writer) (empty bool, written int, err error)

	// Len reports the number of requests currently queued (not bytes).
	Len() int

	// Close marks the queue closed; further Enqueue calls fail, and any
	// requests still queued are failed with ErrorClosed.
	Close() error
}
