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

package session

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/nabbar/gonio/chain"
	libctx "github.com/nabbar/gonio/context"
	"github.com/nabbar/gonio/future"
	"github.com/nabbar/gonio/idle"
	liblog "github.com/nabbar/gonio/logger"
	"github.com/nabbar/gonio/queue"
)

// Flusher is implemented by whatever owns this session's socket (normally
// one of the selector's loops); it is asked to drain the write queue
// whenever Write coalesces a burst into a single flush request.
type Flusher interface {
	RequestFlush(id int64)
}

type session struct {
	id   int64
	conn net.Conn
	ch   chain.Chain
	hdl  Handler
	log  liblog.Logger
	flsh Flusher

	attr libctx.Config[string]
	wq   queue.Queue

	mu    sync.RWMutex
	state State

	readSuspended  atomic.Bool
	writeSuspended atomic.Bool

	closeFuture future.Future[struct{}]
	closeOnce   sync.Once
}

// New wires a session around an established net.Conn. The session starts in
// Created state; the caller (normally the selector loop that accepted or
// completed the connect) is expected to call MarkConnected once the socket
// is registered for I/O.
func New(id int64, conn net.Conn, ch chain.Chain, hdl Handler, log liblog.Logger, flsh Flusher) ConnHandle {
	if log == nil {
		log = liblog.Discard()
	}

	s := &session{
		id:    id,
		conn:  conn,
		ch:    ch,
		hdl:   hdl,
		log:   log,
		flsh:  flsh,
		attr:  libctx.New[string](context.Background()),
		state: Created,
	}

	s.wq = queue.New(func() {
		if s.flsh != nil {
			s.flsh.RequestFlush(s.id)
		}
	})

	return s
}

func (s *session) ID() int64 { return s.id }

func (s *session) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *session) RemoteAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

func (s *session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *session) Attributes() libctx.Config[string] {
	return s.attr
}

// transition enforces the state lattice of state.go, returning
// ErrorStateInvalid for an illegal move.
func (s *session) transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.canTransitionTo(next) {
		return ErrorStateInvalid.Error()
	}

	s.state = next
	return nil
}

// MarkConnected moves Created -> Connected and fires SessionOpened.
func (s *session) MarkConnected() error {
	if err := s.transition(Connected); err != nil {
		return err
	}

	s.ch.FireSessionCreated(s)
	s.ch.FireSessionOpened(s)

	if s.hdl != nil {
		s.hdl.SessionCreated(s)
		s.hdl.SessionOpened(s)
	}

	return nil
}

// BeginSecuring moves Connected -> Securing ahead of a TLS handshake, or
// re-enters Securing from Secured for a renegotiation (§4.5: subsequent
// renegotiations loop through Securing again).
func (s *session) BeginSecuring() error {
	return s.transition(Securing)
}

// MarkSecured moves Securing -> Secured once the TLS handshake (initial or
// a renegotiation) completes.
func (s *session) MarkSecured() error {
	return s.transition(Secured)
}

func (s *session) IsReadSuspended() bool  { return s.readSuspended.Load() }
func (s *session) IsWriteSuspended() bool { return s.writeSuspended.Load() }

func (s *session) SuspendRead()  { s.readSuspended.Store(true) }
func (s *session) ResumeRead() bool {
	return s.readSuspended.CompareAndSwap(true, false)
}

func (s *session) SuspendWrite() { s.writeSuspended.Store(true) }
func (s *session) ResumeWrite() bool {
	return s.writeSuspended.CompareAndSwap(true, false)
}

func (s *session) Write(payload []byte) error {
	_, err := s.enqueue(payload, nil)
	return err
}

func (s *session) WriteFuture(payload []byte) future.Future[struct{}] {
	f := future.New[struct{}]()

	if _, err := s.enqueue(payload, f); err != nil {
		f.Fail(err)
	}

	return f
}

func (s *session) enqueue(payload []byte, f future.Future[struct{}]) (bool, error) {
	switch s.State() {
	case Closing, Closed:
		s.log.Error().FieldAdd("sessionId", s.id).FieldAdd("state", s.State()).Log("write attempted on a closed session")
		return false, ErrorWriteAfterClose.Error()
	}

	ctrl := &writeSink{s: s, f: f}
	s.ch.ProcessMessageWriting(s, payload, ctrl)
	return true, nil
}

// writeSink is the chain.Sink the write direction drains into: the
// session's own queue.
type writeSink struct {
	s *session
	f future.Future[struct{}]
}

func (w *writeSink) MessageReceived(chain.Session, []byte) {}

func (w *writeSink) MessageWriting(_ chain.Session, msg []byte) {
	_ = w.s.wq.Enqueue(queue.Request{Payload: msg, Future: w.f})
}

// readSink is the chain.Sink the receive direction drains into: the
// application Handler.
type readSink struct {
	s *session
}

func (r *readSink) MessageReceived(_ chain.Session, msg []byte) {
	if r.s.hdl != nil {
		r.s.hdl.MessageReceived(r.s, msg)
	}
}

func (r *readSink) MessageWriting(chain.Session, []byte) {}

// Deliver is called by the owning loop with bytes read off the socket; it
// runs them through the receive chain down to the application handler.
func (s *session) Deliver(msg []byte) {
	s.ch.ProcessMessageReceived(s, msg, &readSink{s: s})
}

// Flush is called by the owning loop to drain the write queue onto the
// wire. It returns true once the queue is empty, plus the number of bytes
// written during this call.
func (s *session) Flush() (bool, int, error) {
	if s.conn == nil {
		return true, 0, nil
	}

	return s.wq.Drain(s.conn)
}

func (s *session) Idle(status idle.Status) {
	s.ch.FireSessionIdle(s, status)

	if s.hdl != nil {
		s.hdl.SessionIdle(s, status)
	}
}

func (s *session) Close(graceful bool) future.Future[struct{}] {
	s.closeOnce.Do(func() {
		s.closeFuture = future.New[struct{}]()
		go s.doClose(graceful)
	})

	return s.closeFuture
}

func (s *session) doClose(graceful bool) {
	// Already Closing or Closed from elsewhere is fine here: the first
	// caller's future still owns the outcome.
	_ = s.transition(Closing)

	if graceful {
		for i := 0; i < 1<<20; i++ {
			empty, _, err := s.Flush()
			if err != nil || empty {
				break
			}
		}
	}

	_ = s.wq.Close()

	var closeErr error
	if s.conn != nil {
		closeErr = s.conn.Close()
		if closeErr == io.ErrClosedPipe {
			closeErr = nil
		}
	}

	_ = s.transition(Closed)

	s.ch.FireSessionClosed(s)
	if s.hdl != nil {
		s.hdl.SessionClosed(s)
	}

	if closeErr != nil {
		s.closeFuture.Fail(closeErr)
	} else {
		s.closeFuture.Set(struct{}{})
	}
}

var _ ConnHandle = (*session)(nil)
