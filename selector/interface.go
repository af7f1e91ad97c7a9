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

// Package selector is the low-level, readiness-driven I/O engine of §4.1:
// one goroutine per Loop, blocked in epoll_wait (Linux) or kevent (Darwin)
// for up to one second at a time, dispatching readable/writable callbacks
// inline and running a batch of queued commands (register, deregister,
// flush requests) on every wake.
package selector

import "time"

// Events is a bitmask of readiness conditions a registration cares about.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// Callback is invoked inline, on the Loop's own goroutine, whenever a
// registered fd becomes ready for any event in its mask. It must not block.
type Callback func(ev Events)

// Poller is the platform-specific readiness multiplexer (epoll or kqueue).
type Poller interface {
	Init() error
	Close() error
	RegisterFD(fd int, events Events, cb Callback) error
	UnregisterFD(fd int) error
	ModifyFD(fd int, events Events) error
	// Wait blocks for up to timeout (a non-positive timeout blocks
	// indefinitely) and dispatches ready callbacks inline, returning the
	// number of ready events handled.
	Wait(timeout time.Duration) (int, error)
}

// Loop owns one Poller, a wakeup mechanism, and a command intake queue. It
// is the unit of concurrency the service package pools: one loop accepts
// connections, N loops handle established sessions' I/O.
type Loop interface {
	// Run blocks, servicing readiness events and queued commands, until
	// Stop is called or the poller's Wait returns an error. It takes no
	// context; the caller ends it with Stop.
	Run() error

	// Stop unblocks Run and releases the poller.
	Stop() error

	// Register adds fd to the poller with the given initial event mask and
	// callback. Safe to call from any goroutine; the actual syscall runs on
	// the Loop's own goroutine after the next wakeup.
	Register(fd int, events Events, cb Callback) error

	// Modify changes fd's event mask.
	Modify(fd int, events Events) error

	// Unregister removes fd from the poller.
	Unregister(fd int) error

	// Post queues an arbitrary function to run on the Loop's own goroutine
	// on the next wakeup. Used for flush requests and anything else that
	// must not race the poller's own registrations.
	Post(fn func())
}
