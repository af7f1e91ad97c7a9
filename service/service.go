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
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nabbar/gonio/chain"
	"github.com/nabbar/gonio/idle"
	liblog "github.com/nabbar/gonio/logger"
	"github.com/nabbar/gonio/protocol"
	"github.com/nabbar/gonio/selector"
	"github.com/nabbar/gonio/session"
)

// defaultHandshakeTimeout bounds a TLS handshake when Config.ConnectTimeout
// is not set.
const defaultHandshakeTimeout = 10 * time.Second

// boundSession is everything the façade needs to drive one live session:
// its loop (nil for a TLS session, which runs its own dedicated goroutine
// instead of the selector fast path, see secured.go), and the raw fd the
// selector registered (meaningless when loop is nil).
type boundSession struct {
	id      int64
	fd      int
	conn    net.Conn
	sess    session.ConnHandle
	loop    selector.Loop
	peerKey string
}

type service struct {
	mu  sync.RWMutex
	log liblog.Logger

	cfg     Config
	handler session.Handler
	filters []chain.Filter

	node     *snowflake.Node
	detector idle.Detector

	listener   net.Listener
	packetConn net.PacketConn
	acceptLoop selector.Loop
	loops      []selector.Loop
	nextLoop   atomic.Uint64

	grp *errgroup.Group

	sessMu   sync.RWMutex
	sessions map[int64]*boundSession
	udpPeers map[string]*boundSession

	bound atomic.Bool
}

func newService(log liblog.Logger) *service {
	if log == nil {
		log = liblog.Discard()
	}
	return &service{log: log}
}

func (s *service) SetHandler(h session.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *service) SetFilters(f []chain.Filter) {
	clone := make([]chain.Filter, len(f))
	copy(clone, f)

	s.mu.Lock()
	s.filters = clone
	s.mu.Unlock()
}

func (s *service) snapshot() (Config, session.Handler, []chain.Filter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.handler, s.filters
}

func (s *service) Bind(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound.Load() {
		return ErrorAlreadyBound.Error()
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	horizon := cfg.ReadIdleTimeout
	if cfg.WriteIdleTimeout > horizon {
		horizon = cfg.WriteIdleTimeout
	}
	if horizon <= 0 {
		horizon = idle.DefaultHorizon
	} else if horizon < time.Second {
		horizon = time.Second
	}

	det, err := idle.NewDetector(horizon)
	if err != nil {
		return err
	}

	isPacket := cfg.Network.IsPacket()

	var (
		ln net.Listener
		pc net.PacketConn
		fd int
	)

	if !isPacket {
		ln, err = listenConfig(cfg).Listen(context.Background(), cfg.Network.String(), cfg.Address)
		if err != nil {
			return ErrorListenFailure.Error(err)
		}
		if fd, err = listenerFD(ln); err != nil {
			_ = ln.Close()
			return err
		}
	}

	acceptLoop, err := selector.New(s.log, nil)
	if err != nil {
		if ln != nil {
			_ = ln.Close()
		}
		return err
	}

	loops := make([]selector.Loop, cfg.loopCount())
	for i := range loops {
		lp, lerr := selector.New(s.log, s.onTick(det))
		if lerr != nil {
			_ = acceptLoop.Stop()
			for j := 0; j < i; j++ {
				_ = loops[j].Stop()
			}
			if ln != nil {
				_ = ln.Close()
			}
			return lerr
		}
		loops[i] = lp
	}

	if cfg.Metrics != nil {
		if err = cfg.Metrics.register(prometheus.DefaultRegisterer); err != nil {
			if ln != nil {
				_ = ln.Close()
			}
			return err
		}
	}

	s.cfg = cfg
	s.node = node
	s.detector = det
	s.listener = ln
	s.acceptLoop = acceptLoop
	s.loops = loops
	s.sessions = make(map[int64]*boundSession)
	s.udpPeers = make(map[string]*boundSession)
	s.grp = &errgroup.Group{}

	s.grp.Go(acceptLoop.Run)
	for _, lp := range loops {
		lpc := lp
		s.grp.Go(lpc.Run)
	}

	if isPacket {
		if pc, err = s.bindPacket(cfg, acceptLoop); err != nil {
			return err
		}
		s.packetConn = pc
	} else if err = acceptLoop.Register(fd, selector.EventRead, s.acceptCallback()); err != nil {
		return err
	}

	s.bound.Store(true)
	return nil
}

func (s *service) Unbind() error {
	s.mu.Lock()
	if !s.bound.Load() {
		s.mu.Unlock()
		return ErrorNotBound.Error()
	}
	s.bound.Store(false)

	ln := s.listener
	pc := s.packetConn
	acceptLoop := s.acceptLoop
	loops := s.loops
	grp := s.grp
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if pc != nil {
		_ = pc.Close()
	}
	_ = acceptLoop.Stop()
	for _, lp := range loops {
		_ = lp.Stop()
	}

	s.sessMu.Lock()
	sessions := make([]*boundSession, 0, len(s.sessions))
	for _, bs := range s.sessions {
		sessions = append(sessions, bs)
	}
	s.sessions = make(map[int64]*boundSession)
	s.sessMu.Unlock()

	for _, bs := range sessions {
		bs.sess.Close(false)
	}

	return grp.Wait()
}

func (s *service) onTick(det idle.Detector) func(time.Time) {
	return func(now time.Time) {
		det.Tick(now, s)
	}
}

// SessionIdle implements idle.Notifier: the detector calls this from
// whichever loop's onTick happens to fire next, so the actual dispatch to
// the session is re-posted onto that session's own loop (or run inline for
// a TLS session with no loop).
func (s *service) SessionIdle(id int64, status idle.Status) {
	s.sessMu.RLock()
	bs, ok := s.sessions[id]
	s.sessMu.RUnlock()
	if !ok {
		return
	}

	fire := func() {
		bs.sess.Idle(status)
		s.rearm(bs.id, status)
	}

	if bs.loop == nil {
		fire()
		return
	}
	bs.loop.Post(fire)
}

func (s *service) rearm(id int64, status idle.Status) {
	cfg, _, _ := s.snapshot()
	now := time.Now()
	switch status {
	case idle.ReadIdle:
		if cfg.ReadIdleTimeout > 0 {
			_ = s.detector.Track(id, idle.ReadIdle, now, cfg.ReadIdleTimeout)
		}
	case idle.WriteIdle:
		if cfg.WriteIdleTimeout > 0 {
			_ = s.detector.Track(id, idle.WriteIdle, now, cfg.WriteIdleTimeout)
		}
	}
}

// RequestFlush implements session.Flusher.
func (s *service) RequestFlush(id int64) {
	s.sessMu.RLock()
	bs, ok := s.sessions[id]
	s.sessMu.RUnlock()
	if !ok {
		return
	}

	cfg, _, _ := s.snapshot()

	drain := func() {
		empty, written, err := bs.sess.Flush()
		cfg.Metrics.sent(written)
		if err != nil {
			s.closeSession(bs, err)
			return
		}
		if bs.loop != nil && !empty {
			_ = bs.loop.Modify(bs.fd, selector.EventRead|selector.EventWrite)
		}
	}

	if bs.loop == nil {
		drain()
		return
	}
	bs.loop.Post(drain)
}

func (s *service) nextWorkLoop() selector.Loop {
	n := s.nextLoop.Add(1)
	return s.loops[n%uint64(len(s.loops))]
}

func (s *service) register(bs *boundSession) {
	s.sessMu.Lock()
	s.sessions[bs.id] = bs
	s.sessMu.Unlock()
}

func (s *service) closeSession(bs *boundSession, cause error) {
	s.sessMu.Lock()
	_, existed := s.sessions[bs.id]
	delete(s.sessions, bs.id)
	if bs.peerKey != "" {
		delete(s.udpPeers, bs.peerKey)
	}
	s.sessMu.Unlock()

	if !existed {
		return
	}

	if s.detector != nil {
		s.detector.Untrack(bs.id)
	}
	if bs.loop != nil {
		_ = bs.loop.Unregister(bs.fd)
	}

	bs.sess.Close(false)

	cfg, handler, _ := s.snapshot()
	cfg.Metrics.sessionClosed()

	if cause != nil && handler != nil {
		handler.ExceptionCaught(bs.sess, cause)
		cfg.Metrics.exception()
	}
}

func (s *service) acceptCallback() func(selector.Events) {
	return func(selector.Events) {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		cfg, _, _ := s.snapshot()
		if err = applyConnOptions(conn, cfg); err != nil {
			_ = conn.Close()
			return
		}

		if cfg.TLS != nil {
			s.acceptSecured(conn, cfg)
			return
		}

		s.acceptPlain(conn, cfg)
	}
}

func (s *service) acceptPlain(conn net.Conn, cfg Config) {
	rc, err := newRawConn(conn)
	if err != nil {
		_ = conn.Close()
		return
	}

	id := s.node.Generate().Int64()
	_, handler, filters := s.snapshot()
	ch := chain.New(filters, s.log)
	sess := session.New(id, rc, ch, handler, s.log, s)
	lp := s.nextWorkLoop()

	bs := &boundSession{id: id, fd: rc.fd, conn: rc, sess: sess, loop: lp}

	if err = lp.Register(rc.fd, selector.EventRead, s.dataCallback(bs)); err != nil {
		_ = conn.Close()
		return
	}

	s.register(bs)
	_ = sess.MarkConnected()
	s.armIdle(cfg, id)
	cfg.Metrics.sessionOpened()
}

func (s *service) dataCallback(bs *boundSession) func(selector.Events) {
	return func(ev selector.Events) {
		if ev&(selector.EventError|selector.EventHangup) != 0 {
			s.closeSession(bs, ErrorConnectFailure.Error())
			return
		}

		cfg, _, _ := s.snapshot()

		if ev&selector.EventWrite != 0 {
			empty, written, err := bs.sess.Flush()
			cfg.Metrics.sent(written)
			if err != nil {
				s.closeSession(bs, err)
				return
			}
			if empty {
				_ = bs.loop.Modify(bs.fd, selector.EventRead)
			}
			if cfg.WriteIdleTimeout > 0 {
				_ = s.detector.Track(bs.id, idle.WriteIdle, time.Now(), cfg.WriteIdleTimeout)
			}
		}

		if ev&selector.EventRead != 0 {
			buf := make([]byte, 64*1024)
			n, err := bs.conn.Read(buf)
			if err != nil {
				s.closeSession(bs, err)
				return
			}
			if n > 0 {
				bs.sess.Deliver(append([]byte(nil), buf[:n]...))
				cfg.Metrics.received(n)
				if cfg.ReadIdleTimeout > 0 {
					_ = s.detector.Track(bs.id, idle.ReadIdle, time.Now(), cfg.ReadIdleTimeout)
				}
			}
		}
	}
}

func (s *service) armIdle(cfg Config, id int64) {
	now := time.Now()
	if cfg.ReadIdleTimeout > 0 {
		_ = s.detector.Track(id, idle.ReadIdle, now, cfg.ReadIdleTimeout)
	}
	if cfg.WriteIdleTimeout > 0 {
		_ = s.detector.Track(id, idle.WriteIdle, now, cfg.WriteIdleTimeout)
	}
}

func (s *service) Connect(ctx context.Context, remote string, local string) (session.Session, error) {
	cfg, handler, filters := s.snapshot()
	if !s.bound.Load() {
		return nil, ErrorNotBound.Error()
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	if local != "" {
		la, err := protocol.Address(cfg.Network, local)
		if err != nil {
			return nil, err
		}
		dialer.LocalAddr = la
	}

	conn, err := dialer.DialContext(ctx, cfg.Network.String(), remote)
	if err != nil {
		return nil, ErrorConnectFailure.Error(err)
	}

	if err = applyConnOptions(conn, cfg); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.TLS != nil {
		return s.connectSecured(ctx, conn, cfg, handler, filters, remote)
	}

	return s.connectPlain(conn, cfg, handler, filters)
}

func (s *service) connectPlain(conn net.Conn, cfg Config, handler session.Handler, filters []chain.Filter) (session.Session, error) {
	rc, err := newRawConn(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	id := s.node.Generate().Int64()
	ch := chain.New(filters, s.log)
	sess := session.New(id, rc, ch, handler, s.log, s)
	lp := s.nextWorkLoop()

	bs := &boundSession{id: id, fd: rc.fd, conn: rc, sess: sess, loop: lp}

	if err = lp.Register(rc.fd, selector.EventRead, s.dataCallback(bs)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.register(bs)
	if err = sess.MarkConnected(); err != nil {
		return nil, err
	}

	s.armIdle(cfg, id)
	cfg.Metrics.sessionOpened()

	return sess, nil
}

func (s *service) handshakeTimeout(cfg Config) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return defaultHandshakeTimeout
}
