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

	"golang.org/x/sys/unix"
)

// listenConfig builds the net.ListenConfig applying the listener-level
// socket option named in §6: SO_REUSEADDR.
func listenConfig(cfg Config) *net.ListenConfig {
	return &net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			if !cfg.ReuseAddress {
				return nil
			}

			var ctrlErr error
			if err := c.Control(func(fd uintptr) {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return ctrlErr
		},
	}
}

// applyConnOptions wires the remaining per-connection socket options named
// in §6 onto an accepted or dialed connection, before it is handed to the
// selector loop or the TLS handshake.
func applyConnOptions(conn net.Conn, cfg Config) error {
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(cfg.NoDelay); err != nil {
			return err
		}

		if cfg.KeepAlive {
			if err := tc.SetKeepAlive(true); err != nil {
				return err
			}
			if cfg.KeepAlivePeriod > 0 {
				if err := tc.SetKeepAlivePeriod(cfg.KeepAlivePeriod); err != nil {
					return err
				}
			}
		}

		if cfg.Linger != 0 {
			if err := tc.SetLinger(cfg.Linger); err != nil {
				return err
			}
		}
	}

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}

	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}

	var ctrlErr error
	err = rc.Control(func(fd uintptr) {
		if cfg.SendBuffer > 0 {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBuffer); e != nil {
				ctrlErr = e
				return
			}
		}
		if cfg.RecvBuffer > 0 {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.RecvBuffer); e != nil {
				ctrlErr = e
				return
			}
		}
		if cfg.TrafficClass != 0 {
			_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, cfg.TrafficClass)
		}
		if cfg.OOBInline {
			_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_OOBINLINE, 1)
		}
	})
	if err != nil {
		return err
	}
	return ctrlErr
}

// listenerFD extracts the raw fd backing a stream listener, for accept
// readiness registration with the selector loop.
func listenerFD(ln net.Listener) (int, error) {
	sc, ok := ln.(syscall.Conn)
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
