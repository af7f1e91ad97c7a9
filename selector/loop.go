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

package selector

import (
	"sync"
	"sync/atomic"
	"time"

	liblog "github.com/nabbar/gonio/logger"
)

// tickInterval bounds how long Wait blocks before Run re-checks stop and
// fires the optional onTick hook, mirroring the one-second idle-detector
// resolution.
const tickInterval = time.Second

type loop struct {
	poller Poller
	wake   *wakeup
	onTick func(now time.Time)
	log    liblog.Logger

	cmdMu sync.Mutex
	cmds  []func()

	running atomic.Bool
	closed  atomic.Bool
	stopCh  chan struct{}
	stopOne sync.Once
}

// New builds a Loop backed by the platform poller (epoll on Linux, kqueue
// on Darwin) and a wakeup fd used to interrupt a blocked Wait. onTick, if
// non-nil, is invoked once per Run iteration with the time the tick fired,
// giving the caller a hook to drive an idle.Detector.Tick.
func New(log liblog.Logger, onTick func(now time.Time)) (Loop, error) {
	if log == nil {
		log = liblog.Discard()
	}

	p := newPoller()
	if err := p.Init(); err != nil {
		return nil, err
	}

	w, err := newWakeup()
	if err != nil {
		_ = p.Close()
		return nil, err
	}

	l := &loop{
		poller: p,
		wake:   w,
		onTick: onTick,
		log:    log,
		stopCh: make(chan struct{}),
	}

	if err := p.RegisterFD(w.fileDescriptor(), EventRead, func(Events) { w.drain() }); err != nil {
		_ = w.close()
		_ = p.Close()
		return nil, err
	}

	return l, nil
}

func (l *loop) Run() error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrorLoopAlreadyRunning.Error()
	}
	defer l.running.Store(false)

	for {
		select {
		case <-l.stopCh:
			l.closed.Store(true)
			_ = l.wake.close()
			return l.poller.Close()
		default:
		}

		if _, err := l.poller.Wait(tickInterval); err != nil {
			l.closed.Store(true)
			_ = l.wake.close()
			_ = l.poller.Close()
			return err
		}

		l.drainCommands()

		if l.onTick != nil {
			l.onTick(time.Now())
		}
	}
}

func (l *loop) Stop() error {
	l.stopOne.Do(func() {
		close(l.stopCh)
		l.wake.signal()
	})
	return nil
}

func (l *loop) Post(fn func()) {
	if l.closed.Load() || fn == nil {
		return
	}
	l.cmdMu.Lock()
	l.cmds = append(l.cmds, fn)
	l.cmdMu.Unlock()
	l.wake.signal()
}

func (l *loop) drainCommands() {
	l.cmdMu.Lock()
	cmds := l.cmds
	l.cmds = nil
	l.cmdMu.Unlock()

	for _, fn := range cmds {
		fn()
	}
}

// exec posts fn to run on the loop's own goroutine and blocks the caller
// until it has run, so that Register/Modify/Unregister can still hand back
// a synchronous error despite the actual syscall happening on the next wake.
func (l *loop) exec(fn func() error) error {
	if l.closed.Load() {
		return ErrorLoopClosed.Error()
	}

	done := make(chan error, 1)
	l.Post(func() { done <- fn() })
	return <-done
}

func (l *loop) Register(fd int, events Events, cb Callback) error {
	return l.exec(func() error { return l.poller.RegisterFD(fd, events, cb) })
}

func (l *loop) Modify(fd int, events Events) error {
	return l.exec(func() error { return l.poller.ModifyFD(fd, events) })
}

func (l *loop) Unregister(fd int) error {
	return l.exec(func() error { return l.poller.UnregisterFD(fd) })
}

var _ Loop = (*loop)(nil)
