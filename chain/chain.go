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

package chain

import (
	"github.com/nabbar/gonio/idle"
	liblog "github.com/nabbar/gonio/logger"
)

type chain struct {
	filters []Filter
	log     liblog.Logger
}

// New takes a snapshot of filters (copied, so a later mutation of the slice
// the caller holds does not affect this chain) paired with a logger used to
// report recovered filter panics. A nil logger is replaced by a discarding
// one.
func New(filters []Filter, log liblog.Logger) Chain {
	snap := make([]Filter, len(filters))
	copy(snap, filters)

	if log == nil {
		log = liblog.Discard()
	}

	return &chain{filters: snap, log: log}
}

func (c *chain) Len() int {
	return len(c.filters)
}

func (c *chain) FireSessionCreated(s Session) {
	for _, f := range c.filters {
		c.guard(s, func() { f.SessionCreated(s) })
	}
}

func (c *chain) FireSessionOpened(s Session) {
	for _, f := range c.filters {
		c.guard(s, func() { f.SessionOpened(s) })
	}
}

func (c *chain) FireSessionClosed(s Session) {
	for _, f := range c.filters {
		c.guard(s, func() { f.SessionClosed(s) })
	}
}

func (c *chain) FireSessionIdle(s Session, status idle.Status) {
	for _, f := range c.filters {
		c.guard(s, func() { f.SessionIdle(s, status) })
	}
}

func (c *chain) ProcessMessageReceived(s Session, msg []byte, sink Sink) {
	ctrl := &readController{chain: c, sink: sink, cursor: 0}
	ctrl.dispatch(s, View(msg))
}

func (c *chain) ProcessMessageWriting(s Session, msg []byte, sink Sink) {
	ctrl := &writeController{chain: c, sink: sink, cursor: len(c.filters) - 1}
	ctrl.dispatch(s, msg)
}

// guard recovers a panicking filter callback, logs it, and re-enters the
// chain at index 0 as ExceptionCaught. A panic raised from within
// ExceptionCaught itself is logged and suppressed, never re-entered, per
// §4.3's recursion guard.
func (c *chain) guard(s Session, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().FieldAdd("panic", r).Log("filter callback panicked")
			c.exceptionCaught(s, ErrorFilterPanic.Error())
		}
	}()

	fn()
}

func (c *chain) exceptionCaught(s Session, cause error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().FieldAdd("panic", r).Log("exceptionCaught itself panicked, suppressing")
		}
	}()

	for _, f := range c.filters {
		f.ExceptionCaught(s, cause)
	}
}

// readController implements Controller for the receive direction: cursor
// starts at 0 and CallReadNext increments it.
type readController struct {
	chain  *chain
	sink   Sink
	cursor int
}

func (r *readController) dispatch(s Session, msg View) {
	if r.cursor >= len(r.chain.filters) {
		r.sink.MessageReceived(s, msg.Clone())
		return
	}

	f := r.chain.filters[r.cursor]
	r.chain.guard(s, func() { f.MessageReceived(s, msg, r) })
}

func (r *readController) CallReadNext(s Session, msg View) {
	r.cursor++
	r.dispatch(s, msg)
}

func (r *readController) CallWriteNext(Session, []byte) {
	// Only meaningful on a writeController; a receive-direction filter that
	// calls this on its own controller is a programming error we choose to
	// ignore rather than panic the loop over.
}

// writeController implements Controller for the send direction: cursor
// starts at N-1 and CallWriteNext decrements it; underflow enqueues.
type writeController struct {
	chain  *chain
	sink   Sink
	cursor int
}

func (w *writeController) dispatch(s Session, msg []byte) {
	if w.cursor < 0 {
		w.sink.MessageWriting(s, msg)
		return
	}

	f := w.chain.filters[w.cursor]
	w.chain.guard(s, func() { f.MessageWriting(s, msg, w) })
}

func (w *writeController) CallWriteNext(s Session, msg []byte) {
	w.cursor--
	w.dispatch(s, msg)
}

func (w *writeController) CallReadNext(Session, View) {
	// See readController.CallWriteNext: wrong-direction call, ignored.
}
