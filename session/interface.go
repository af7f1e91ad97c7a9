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

// Package session implements the per-connection lifecycle of §4.2: a state
// lattice, a bound filter chain, a write queue, idle tracking hooks, and a
// typed attribute store, wrapping one net.Conn (or, for UDP, one shared
// net.PacketConn plus a remote address).
package session

import (
	"net"

	"github.com/nabbar/gonio/chain"
	libctx "github.com/nabbar/gonio/context"
	"github.com/nabbar/gonio/future"
	"github.com/nabbar/gonio/idle"
)

// Session is the public contract handed to application code and to filters
// (via the chain.Session view, which it also satisfies).
type Session interface {
	chain.Session

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	State() State

	// Write enqueues payload on the session's write queue without waiting
	// for the bytes to reach the wire.
	Write(payload []byte) error

	// WriteFuture enqueues payload and returns a Future completed once the
	// bytes have been fully handed to the OS socket (or failed, e.g. on a
	// closed session).
	WriteFuture(payload []byte) future.Future[struct{}]

	// Close begins graceful shutdown (flushing any queued writes first) if
	// graceful is true, or transitions straight to Closing otherwise. The
	// returned Future completes once the underlying connection is closed.
	Close(graceful bool) future.Future[struct{}]

	SuspendRead()
	ResumeRead() bool
	SuspendWrite()
	ResumeWrite() bool

	IsReadSuspended() bool
	IsWriteSuspended() bool

	// Attributes exposes the session's untyped key/value store. Use the
	// package-level GetAttribute/SetAttribute helpers for typed access.
	Attributes() libctx.Config[string]
}

// ConnHandle is the superset of Session used by whatever owns the raw
// connection (the selector loop, or tests): it adds the state transitions
// and the data-path entry points that application code never calls
// directly.
type ConnHandle interface {
	Session

	MarkConnected() error
	BeginSecuring() error
	MarkSecured() error

	// Deliver runs bytes just read off the wire through the receive chain.
	Deliver(msg []byte)

	// Flush drains the write queue onto the wire, returning true once
	// empty, plus the number of bytes actually written during this call.
	Flush() (empty bool, written int, err error)

	Idle(status idle.Status)
}

// GetAttribute loads the value stored at key on s's attribute store,
// type-asserted to T. ok is false if the key is absent or holds a value of
// a different type.
func GetAttribute[T any](s Session, key string) (val T, ok bool) {
	raw, found := s.Attributes().Load(key)
	if !found {
		return val, false
	}

	val, ok = raw.(T)
	return val, ok
}

// SetAttribute stores value at key on s's attribute store.
func SetAttribute[T any](s Session, key string, value T) {
	s.Attributes().Store(key, value)
}

// Handler receives decoded application messages from the tail of a
// session's receive chain, and lifecycle notifications.
type Handler interface {
	SessionCreated(s Session)
	SessionOpened(s Session)
	SessionClosed(s Session)
	SessionIdle(s Session, status idle.Status)
	MessageReceived(s Session, msg []byte)
	ExceptionCaught(s Session, cause error)
}
