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
	"context"
	"net"
	"time"

	"github.com/nabbar/gonio/chain"
	"github.com/nabbar/gonio/idle"
	"github.com/nabbar/gonio/secure"
	"github.com/nabbar/gonio/session"
)

// A secured session's tls.Conn.Read/Write are blocking state-machine calls
// that cannot be bridged onto the selector's non-blocking raw-fd path
// (conn.go) without rewriting the record layer. Instead a secured session
// runs its own goroutine doing blocking reads, and its boundSession carries
// a nil loop: RequestFlush and SessionIdle fall back to running inline
// rather than posting to a loop that does not own this session.

func (s *service) acceptSecured(conn net.Conn, cfg Config) {
	ctx, cancel := context.WithTimeout(context.Background(), s.handshakeTimeout(cfg))
	defer cancel()

	helper := secure.New(cfg.TLS)
	tc, err := helper.ServerHandshake(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return
	}

	_, handler, filters := s.snapshot()
	s.runSecured(tc, cfg, handler, filters)
}

func (s *service) connectSecured(ctx context.Context, conn net.Conn, cfg Config, handler session.Handler, filters []chain.Filter, remote string) (session.Session, error) {
	helper := secure.New(cfg.TLS)

	serverName := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		serverName = host
	}

	hctx, cancel := context.WithTimeout(ctx, s.handshakeTimeout(cfg))
	defer cancel()

	tc, err := helper.ClientHandshake(hctx, conn, serverName)
	if err != nil {
		_ = conn.Close()
		return nil, ErrorConnectFailure.Error(err)
	}

	return s.runSecured(tc, cfg, handler, filters)
}

// runSecured wires a completed tls.Conn into a session with no loop, arms
// idle tracking, and spawns the dedicated reader goroutine.
func (s *service) runSecured(tc net.Conn, cfg Config, handler session.Handler, filters []chain.Filter) (session.Session, error) {
	id := s.node.Generate().Int64()
	ch := chain.New(filters, s.log)
	sess := session.New(id, tc, ch, handler, s.log, s)

	bs := &boundSession{id: id, fd: -1, conn: tc, sess: sess, loop: nil}
	s.register(bs)

	if err := sess.MarkConnected(); err != nil {
		s.closeSession(bs, err)
		return nil, err
	}
	if err := sess.BeginSecuring(); err != nil {
		s.closeSession(bs, err)
		return nil, err
	}
	if err := sess.MarkSecured(); err != nil {
		s.closeSession(bs, err)
		return nil, err
	}

	s.armIdle(cfg, id)
	cfg.Metrics.sessionOpened()

	go s.readSecured(bs, cfg)

	return sess, nil
}

func (s *service) readSecured(bs *boundSession, cfg Config) {
	buf := make([]byte, 64*1024)
	for {
		n, err := bs.conn.Read(buf)
		if n > 0 {
			bs.sess.Deliver(append([]byte(nil), buf[:n]...))
			cfg.Metrics.received(n)
			if cfg.ReadIdleTimeout > 0 {
				_ = s.detector.Track(bs.id, idle.ReadIdle, time.Now(), cfg.ReadIdleTimeout)
			}
		}
		if err != nil {
			s.closeSession(bs, err)
			return
		}
	}
}
