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
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// rawConn wraps a net.Conn accepted or dialed by the service, routing Read
// and Write through direct non-blocking syscalls against the underlying fd
// instead of Go's own runtime netpoller. The selector loop already knows
// exactly when the fd is readable or writable; going through net.Conn's
// blocking Read/Write here would risk parking the loop's single goroutine
// in the Go runtime's poller instead of ours.
type rawConn struct {
	net.Conn
	fd int
}

func newRawConn(conn net.Conn) (*rawConn, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, ErrorListenFailure.Error()
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, err
	}

	var fd int
	var ctrlErr error
	if err = rc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		ctrlErr = err
	}
	if ctrlErr != nil {
		return nil, ctrlErr
	}

	return &rawConn{Conn: conn, fd: fd}, nil
}

// Read performs exactly one non-blocking read. It is only ever called by
// the owning loop in response to an EventRead readiness notification, so a
// zero-byte, nil-error result never happens in practice: the kernel has
// already confirmed data is waiting.
func (c *rawConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write performs one non-blocking write attempt. A full kernel send buffer
// is reported as (0, nil), matching queue.Queue.Drain's partial-write
// contract: draining stops until the next EventWrite notification rather
// than being treated as a transport error.
func (c *rawConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}
