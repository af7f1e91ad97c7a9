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

// Package secure wraps the certificates package's TLSConfig into the
// handshake helper the selector loop calls when a session moves through
// the Securing state, keeping the crypto/tls engine itself (there being no
// ecosystem alternative in the donor pack) behind a small surface.
package secure

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/nabbar/gonio/certificates"
	"github.com/nabbar/gonio/future"
)

// Helper builds *tls.Config instances and drives handshakes for sessions
// entering the Securing state.
type Helper interface {
	// Config returns a clone of the underlying TLS configuration for
	// serverName (may be empty for a server-side config with no SNI
	// override).
	Config(serverName string) *tls.Config

	// ServerHandshake wraps conn in a server-side tls.Conn and runs the
	// handshake to completion before returning.
	ServerHandshake(ctx context.Context, conn net.Conn) (*tls.Conn, error)

	// ClientHandshake wraps conn in a client-side tls.Conn for serverName
	// and runs the handshake to completion before returning.
	ClientHandshake(ctx context.Context, conn net.Conn, serverName string) (*tls.Conn, error)

	// ServerHandshakeFuture runs ServerHandshake on its own goroutine and
	// reports the outcome through the returned Future, for callers that
	// don't want to block the selector loop on a handshake.
	ServerHandshakeFuture(conn net.Conn) future.Future[*tls.Conn]

	// ClientHandshakeFuture is ClientHandshake's Future-returning sibling.
	ClientHandshakeFuture(conn net.Conn, serverName string) future.Future[*tls.Conn]
}

type helper struct {
	cfg certificates.TLSConfig
}

// New builds a Helper around an already-validated certificates.TLSConfig.
// A nil cfg is valid: every handshake then fails with ErrorConfigMissing.
func New(cfg certificates.TLSConfig) Helper {
	return &helper{cfg: cfg}
}

func (h *helper) Config(serverName string) *tls.Config {
	if h.cfg == nil {
		return nil
	}

	return h.cfg.TlsConfig(serverName)
}

func (h *helper) ServerHandshake(ctx context.Context, conn net.Conn) (*tls.Conn, error) {
	cfg := h.Config("")
	if cfg == nil {
		return nil, ErrorConfigMissing.Error()
	}

	tc := tls.Server(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, ErrorHandshakeFailed.Error(err)
	}

	return tc, nil
}

func (h *helper) ClientHandshake(ctx context.Context, conn net.Conn, serverName string) (*tls.Conn, error) {
	cfg := h.Config(serverName)
	if cfg == nil {
		return nil, ErrorConfigMissing.Error()
	}

	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, ErrorHandshakeFailed.Error(err)
	}

	return tc, nil
}

func (h *helper) ServerHandshakeFuture(conn net.Conn) future.Future[*tls.Conn] {
	f := future.New[*tls.Conn]()

	go func() {
		tc, err := h.ServerHandshake(context.Background(), conn)
		if err != nil {
			f.Fail(err)
			return
		}
		f.Set(tc)
	}()

	return f
}

func (h *helper) ClientHandshakeFuture(conn net.Conn, serverName string) future.Future[*tls.Conn] {
	f := future.New[*tls.Conn]()

	go func() {
		tc, err := h.ClientHandshake(context.Background(), conn, serverName)
		if err != nil {
			f.Fail(err)
			return
		}
		f.Set(tc)
	}()

	return f
}
