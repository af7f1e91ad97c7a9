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

// Package service is the externally visible façade of §4.8: it owns one
// accept selector.Loop, a pool of read/write selector.Loops, a snowflake
// node for session ids, and the socket/TLS/idle wiring that turns a
// protocol.Network + address into a live population of session.Session.
package service

import (
	"context"

	"github.com/nabbar/gonio/chain"
	liblog "github.com/nabbar/gonio/logger"
	"github.com/nabbar/gonio/session"
)

// Service is the façade bound to exactly one listening address (or, before
// Bind/after Unbind, to none).
type Service interface {
	// Bind opens the listener described by cfg and starts the accept loop
	// plus the configured pool of worker loops. Returns ErrorAlreadyBound
	// if already bound.
	Bind(cfg Config) error

	// Unbind closes the listener, stops every loop, and waits for them to
	// return. Returns ErrorNotBound if not currently bound.
	Unbind() error

	// Connect dials remote (optionally from local) using the bound
	// Config's network and options, returning a live session once the
	// connection (and, if configured, its TLS handshake) completes.
	Connect(ctx context.Context, remote string, local string) (session.Session, error)

	// SetHandler installs the lifecycle/message handler used by sessions
	// created after this call. Existing sessions keep their prior handler.
	SetHandler(h session.Handler)

	// SetFilters installs the filter chain used by sessions created after
	// this call. Existing sessions keep their prior chain.
	SetFilters(f []chain.Filter)
}

// New returns an unbound Service. log may be nil.
func New(log liblog.Logger) Service {
	return newService(log)
}
