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

//go:build darwin

package selector

import "golang.org/x/sys/unix"

// wakeup is a self-pipe used to break a Loop out of its blocking Wait as
// soon as a Post, Register, Modify or Unregister call needs attention.
// Darwin has no eventfd equivalent, so a non-blocking pipe pair stands in,
// the same trade the donor pack makes for its Darwin build.
type wakeup struct {
	readFd  int
	writeFd int
}

func newWakeup() (*wakeup, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}

	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])

	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, err
	}

	return &wakeup{readFd: fds[0], writeFd: fds[1]}, nil
}

func (w *wakeup) fileDescriptor() int {
	return w.readFd
}

func (w *wakeup) signal() {
	buf := [1]byte{1}
	_, _ = unix.Write(w.writeFd, buf[:])
}

func (w *wakeup) drain() {
	var buf [64]byte
	for {
		if _, err := unix.Read(w.readFd, buf[:]); err != nil {
			return
		}
	}
}

func (w *wakeup) close() error {
	_ = unix.Close(w.writeFd)
	return unix.Close(w.readFd)
}
