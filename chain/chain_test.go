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

package chain_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/gonio/chain"
	"github.com/nabbar/gonio/idle"
)

type fakeSession struct {
	id int64
}

func (s fakeSession) ID() int64 { return s.id }

type recordingSink struct {
	received [][]byte
	writing  [][]byte
}

func (r *recordingSink) MessageReceived(_ chain.Session, msg []byte) {
	r.received = append(r.received, msg)
}

func (r *recordingSink) MessageWriting(_ chain.Session, msg []byte) {
	r.writing = append(r.writing, msg)
}

// upperFilter uppercases every byte on the way in, leaves writes untouched.
type upperFilter struct {
	chain.BaseFilter
}

func (upperFilter) MessageReceived(s chain.Session, msg chain.View, ctrl chain.Controller) {
	up := bytes.ToUpper(msg.Clone())
	ctrl.CallReadNext(s, up)
}

func (upperFilter) MessageWriting(s chain.Session, msg []byte, ctrl chain.Controller) {
	ctrl.CallWriteNext(s, msg)
}

// haltFilter never calls CallReadNext, short-circuiting the chain.
type haltFilter struct {
	chain.BaseFilter
	seen [][]byte
}

func (h *haltFilter) MessageReceived(_ chain.Session, msg chain.View, _ chain.Controller) {
	h.seen = append(h.seen, msg.Clone())
}

// panicFilter panics on every receive to exercise the exception path.
type panicFilter struct {
	chain.BaseFilter
}

func (panicFilter) MessageReceived(chain.Session, chain.View, chain.Controller) {
	panic("boom")
}

// exceptionRecorder captures ExceptionCaught invocations.
type exceptionRecorder struct {
	chain.BaseFilter
	causes []error
}

func (e *exceptionRecorder) ExceptionCaught(_ chain.Session, cause error) {
	e.causes = append(e.causes, cause)
}

// selfPanickingExceptionFilter panics from within ExceptionCaught itself, to
// verify the recursion guard suppresses it rather than re-entering.
type selfPanickingExceptionFilter struct {
	chain.BaseFilter
	calls int
}

func (f *selfPanickingExceptionFilter) ExceptionCaught(chain.Session, error) {
	f.calls++
	panic("exception handler itself panics")
}

var _ = Describe("Chain", func() {
	s := fakeSession{id: 1}

	It("delivers a message unchanged to the sink when the chain is empty", func() {
		c := chain.New(nil, nil)
		sink := &recordingSink{}

		c.ProcessMessageReceived(s, []byte("hello"), sink)
		Expect(sink.received).To(ConsistOf([]byte("hello")))

		c.ProcessMessageWriting(s, []byte("world"), sink)
		Expect(sink.writing).To(ConsistOf([]byte("world")))
	})

	It("runs receive-direction filters in order and reaches the sink", func() {
		c := chain.New([]chain.Filter{upperFilter{}}, nil)
		sink := &recordingSink{}

		c.ProcessMessageReceived(s, []byte("abc"), sink)
		Expect(sink.received).To(ConsistOf([]byte("ABC")))
	})

	It("runs send-direction filters from the tail backward", func() {
		c := chain.New([]chain.Filter{upperFilter{}}, nil)
		sink := &recordingSink{}

		c.ProcessMessageWriting(s, []byte("xyz"), sink)
		Expect(sink.writing).To(ConsistOf([]byte("xyz")))
	})

	It("lets a filter short-circuit receive dispatch before the sink", func() {
		halt := &haltFilter{}
		c := chain.New([]chain.Filter{halt}, nil)
		sink := &recordingSink{}

		c.ProcessMessageReceived(s, []byte("never reaches sink"), sink)
		Expect(halt.seen).To(ConsistOf([]byte("never reaches sink")))
		Expect(sink.received).To(BeEmpty())
	})

	It("routes a filter panic to ExceptionCaught at index 0", func() {
		rec := &exceptionRecorder{}
		c := chain.New([]chain.Filter{panicFilter{}, rec}, nil)
		sink := &recordingSink{}

		c.ProcessMessageReceived(s, []byte("trigger"), sink)

		Expect(rec.causes).To(HaveLen(1))
		Expect(rec.causes[0]).To(HaveOccurred())
	})

	It("suppresses a panic raised from within ExceptionCaught itself", func() {
		self := &selfPanickingExceptionFilter{}
		c := chain.New([]chain.Filter{panicFilter{}, self}, nil)
		sink := &recordingSink{}

		Expect(func() {
			c.ProcessMessageReceived(s, []byte("trigger"), sink)
		}).ToNot(Panic())
		Expect(self.calls).To(Equal(1))
	})

	It("accepts every lifecycle event without altering the chain", func() {
		rec := &exceptionRecorder{}
		c := chain.New([]chain.Filter{rec}, nil)

		c.FireSessionCreated(s)
		c.FireSessionOpened(s)
		c.FireSessionClosed(s)
		c.FireSessionIdle(s, idle.ReadIdle)

		Expect(c.Len()).To(Equal(1))
	})

	It("reports its length", func() {
		c := chain.New([]chain.Filter{upperFilter{}, &haltFilter{}}, nil)
		Expect(c.Len()).To(Equal(2))
	})

	It("takes a snapshot of the filter slice at construction", func() {
		filters := []chain.Filter{upperFilter{}}
		c := chain.New(filters, nil)

		filters[0] = &haltFilter{}
		sink := &recordingSink{}
		c.ProcessMessageReceived(s, []byte("abc"), sink)

		Expect(sink.received).To(ConsistOf([]byte("ABC")))
	})
})

var _ = Describe("View", func() {
	It("clones bytes independently of the original slice", func() {
		orig := []byte("abc")
		v := chain.View(orig)
		cloned := v.Clone()

		orig[0] = 'z'
		Expect(cloned).To(Equal([]byte("abc")))
	})
})
