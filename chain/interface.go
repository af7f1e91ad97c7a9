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

// Package chain implements the bidirectional filter pipeline of §4.3: an
// ordered, snapshot-on-session-create sequence of filters, dispatched with a
// controller that carries the cursor so a filter may short-circuit,
// transform, or defer propagation to any later goroutine.
package chain

import "github.com/nabbar/gonio/idle"

// Session is the minimal view of a connection a filter needs. The session
// package's concrete type satisfies this without chain importing session,
// keeping the dependency one-directional (session depends on chain, not the
// reverse).
type Session interface {
	ID() int64
}

// View is a read-only window over bytes owned by the selector loop's shared
// scratch buffer. It is valid only for the duration of one callback,
// mirroring §5's shared-resource policy; a filter that needs the bytes
// afterward must call Clone.
type View []byte

// Clone returns an independent copy of v, safe to retain past the callback
// that handed it out.
func (v View) Clone() []byte {
	c := make([]byte, len(v))
	copy(c, v)
	return c
}

// Controller carries the chain's cursor for one in-flight dispatch. A
// filter calls CallReadNext/CallWriteNext to continue propagation, or
// simply returns without calling it to short-circuit.
type Controller interface {
	// CallReadNext continues receive-direction dispatch with msg (which may
	// be the original message, untouched, or a transformed replacement).
	CallReadNext(s Session, msg View)

	// CallWriteNext continues send-direction dispatch with msg. When the
	// cursor underflows past index 0, msg is the payload enqueued into the
	// session's write queue.
	CallWriteNext(s Session, msg []byte)
}

// Filter is the capability set every chain element implements. Embed
// BaseFilter to get no-op defaults and override only what's needed.
type Filter interface {
	SessionCreated(s Session)
	SessionOpened(s Session)
	SessionClosed(s Session)
	SessionIdle(s Session, status idle.Status)
	MessageReceived(s Session, msg View, ctrl Controller)
	MessageWriting(s Session, msg []byte, ctrl Controller)
	ExceptionCaught(s Session, cause error)
}

// BaseFilter is a no-op Filter implementation. Concrete filters embed it and
// override only the callbacks they care about, the same shape the donor
// codebase uses for its optional-method interfaces.
type BaseFilter struct{}

var _ Filter = BaseFilter{}

func (BaseFilter) SessionCreated(Session)                    {}
func (BaseFilter) SessionOpened(Session)                     {}
func (BaseFilter) SessionClosed(Session)                     {}
func (BaseFilter) SessionIdle(Session, idle.Status)          {}
func (BaseFilter) MessageReceived(Session, View, Controller) {}
func (BaseFilter) MessageWriting(Session, []byte, Controller) {}
func (BaseFilter) ExceptionCaught(Session, error)            {}

// Sink receives whatever reaches the end of a direction: the tail of the
// receive chain (the application handler) or the head of the send chain
// (the session's write queue, via a []byte rather than a View since the
// bytes now belong to the queue, not the loop's scratch buffer).
type Sink interface {
	MessageReceived(s Session, msg []byte)
	MessageWriting(s Session, msg []byte)
}

// Chain is an immutable, snapshot-on-session-create ordered filter list.
type Chain interface {
	// Len returns the number of filters in the chain.
	Len() int

	// FireSessionCreated/Opened/Closed broadcast a lifecycle event to every
	// filter in index order; no cursor, no short-circuiting.
	FireSessionCreated(s Session)
	FireSessionOpened(s Session)
	FireSessionClosed(s Session)
	FireSessionIdle(s Session, status idle.Status)

	// ProcessMessageReceived starts receive-direction dispatch at index 0.
	// With an empty chain, msg reaches sink unchanged (§8 invariant 6).
	ProcessMessageReceived(s Session, msg []byte, sink Sink)

	// ProcessMessageWriting starts send-direction dispatch at index N-1.
	// With an empty chain, msg reaches sink unchanged (§8 invariant 6).
	ProcessMessageWriting(s Session, msg []byte, sink Sink)
}
