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

package service

import (
	"net"
	"syscall"
	"time"

	"github.com/nabbar/gonio/chain"
	"github.com/nabbar/gonio/idle"
	"github.com/nabbar/gonio/selector"
	"github.com/nabbar/gonio/session"
)

// udpConn adapts one remote peer of a shared net.PacketConn into the
// net.Conn a session's write queue drains into (§9(b)'s degenerate UDP
// session: no per-connection socket, just a remote net.Addr sharing the
// listener's packet conn). Read is never called: inbound datagrams reach
// the session through Deliver, driven by the listener's own read loop.
type udpConn struct {
	pc     net.PacketConn
	remote net.Addr
}

func (c *udpConn) Read([]byte) (int, error)         { return 0, net.ErrClosed }
func (c *udpConn) Write(p []byte) (int, error)      { return c.pc.WriteTo(p, c.remote) }
func (c *udpConn) Close() error                     { return nil }
func (c *udpConn) LocalAddr() net.Addr              { return c.pc.LocalAddr() }
func (c *udpConn) RemoteAddr() net.Addr             { return c.remote }
func (c *udpConn) SetDeadline(time.Time) error      { return nil }
func (c *udpConn) SetReadDeadline(time.Time) error  { return nil }
func (c *udpConn) SetWriteDeadline(time.Time) error { return nil }

func packetConnFD(pc net.PacketConn) (int, error) {
	sc, ok := pc.(syscall.Conn)
	if !ok {
		return -1, ErrorListenFailure.Error()
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}

	var fd int
	var ctrlErr error
	if err = rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		ctrlErr = err
	}
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}

// bindPacket opens cfg's packet listener and registers it on the accept
// loop, demultiplexing inbound datagrams onto one boundSession per remote
// address.
func (s *service) bindPacket(cfg Config, acceptLoop selector.Loop) (net.PacketConn, error) {
	pc, err := net.ListenPacket(cfg.Network.String(), cfg.Address)
	if err != nil {
		return nil, ErrorListenFailure.Error(err)
	}

	fd, err := packetConnFD(pc)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	if err = acceptLoop.Register(fd, selector.EventRead, s.packetCallback(pc, cfg)); err != nil {
		_ = pc.Close()
		return nil, err
	}

	return pc, nil
}

func (s *service) packetCallback(pc net.PacketConn, cfg Config) func(selector.Events) {
	buf := make([]byte, 64*1024)
	return func(selector.Events) {
		n, remote, err := pc.ReadFrom(buf)
		if err != nil || n == 0 {
			return
		}

		payload := append([]byte(nil), buf[:n]...)
		bs := s.packetSession(pc, cfg, remote)
		bs.sess.Deliver(payload)
		cfg.Metrics.received(n)
		if cfg.ReadIdleTimeout > 0 {
			_ = s.detector.Track(bs.id, idle.ReadIdle, time.Now(), cfg.ReadIdleTimeout)
		}
	}
}

// packetSession returns the existing session for remote, or creates one.
func (s *service) packetSession(pc net.PacketConn, cfg Config, remote net.Addr) *boundSession {
	key := remote.String()

	s.sessMu.RLock()
	bs, ok := s.udpPeers[key]
	s.sessMu.RUnlock()
	if ok {
		return bs
	}

	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	if bs, ok = s.udpPeers[key]; ok {
		return bs
	}

	_, handler, filters := s.snapshot()
	id := s.node.Generate().Int64()
	ch := chain.New(filters, s.log)
	conn := &udpConn{pc: pc, remote: remote}
	sess := session.New(id, conn, ch, handler, s.log, s)

	bs = &boundSession{id: id, fd: -1, conn: conn, sess: sess, loop: nil, peerKey: key}
	s.udpPeers[key] = bs
	s.sessions[id] = bs

	_ = sess.MarkConnected()
	s.armIdle(cfg, id)
	cfg.Metrics.sessionOpened()

	return bs
}

