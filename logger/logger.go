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

package logger

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

type logger struct {
	mx      sync.Mutex
	discard bool
	out     *logrus.Logger
	std     HookStandard
	extra   []io.WriteCloser
}

// New builds a Logger whose records go to stdout/stderr through a colorized
// hook split by level, the same way the donor codebase wires its console
// output. lvl sets the initial minimum level; call SetLevel to change it.
func New(lvl Level) Logger {
	out := logrus.New()
	out.SetOutput(io.Discard)
	out.SetLevel(lvl.Logrus())

	std := NewHookStandard()
	out.AddHook(std)

	return &logger{
		out: out,
		std: std,
	}
}

func (l *logger) entry(lvl Level) Entry {
	if l.discard || l.out == nil {
		return newEntry(nil, NilLevel)
	}

	return newEntry(l.out, lvl)
}

func (l *logger) Panic() Entry   { return l.entry(PanicLevel) }
func (l *logger) Fatal() Entry   { return l.entry(FatalLevel) }
func (l *logger) Error() Entry   { return l.entry(ErrorLevel) }
func (l *logger) Warning() Entry { return l.entry(WarnLevel) }
func (l *logger) Info() Entry    { return l.entry(InfoLevel) }
func (l *logger) Debug() Entry   { return l.entry(DebugLevel) }

func (l *logger) SetLevel(lvl Level) {
	if l.discard || l.out == nil {
		return
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	l.out.SetLevel(lvl.Logrus())
}

func (l *logger) GetLevel() Level {
	if l.discard || l.out == nil {
		return NilLevel
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	switch l.out.GetLevel() {
	case logrus.PanicLevel:
		return PanicLevel
	case logrus.FatalLevel:
		return FatalLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.DebugLevel:
		return DebugLevel
	}

	return NilLevel
}

func (l *logger) SetOutput(w io.WriteCloser) error {
	if l.discard || l.out == nil {
		return nil
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	l.extra = append(l.extra, w)
	l.out.AddHook(newWriterHook(w, l.out.Formatter))

	return nil
}

func (l *logger) Close() error {
	if l.discard {
		return nil
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	var err error

	for _, w := range l.extra {
		if e := w.Close(); e != nil {
			err = e
		}
	}

	if l.std != nil {
		if e := l.std.Close(); e != nil {
			err = e
		}
	}

	return err
}

// writerHook forwards every record at or below its logger's level to an
// extra io.Writer, mirroring the donor codebase's file-hook idiom without
// dragging in its syslog/gorm/spf13 integrations.
type writerHook struct {
	w   io.Writer
	fmt logrus.Formatter
}

func newWriterHook(w io.Writer, f logrus.Formatter) *writerHook {
	return &writerHook{w: w, fmt: f}
}

func (h *writerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *writerHook) Fire(e *logrus.Entry) error {
	b, err := h.fmt.Format(e)
	if err != nil {
		return err
	}

	_, err = h.w.Write(b)
	return err
}
