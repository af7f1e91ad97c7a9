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
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// StdWriter selects which standard stream a level's record goes to.
type StdWriter uint8

const (
	StdOut StdWriter = iota
	StdErr
)

func (s StdWriter) writer() io.Writer {
	if s == StdErr {
		return colorable.NewColorable(os.Stderr)
	}
	return colorable.NewColorable(os.Stdout)
}

// HookStandard is a logrus.Hook that writes colorized, level-appropriate
// records to stdout or stderr: Panic/Fatal/Error to stderr in red, Warning
// in yellow, Info/Debug to stdout uncolored-ish (cyan/white), matching the
// split the donor codebase uses for its console hook.
type HookStandard interface {
	logrus.Hook
	io.WriteCloser

	RegisterHook(log *logrus.Logger)
}

type hookStd struct {
	mx     sync.Mutex
	closed bool
}

func NewHookStandard() HookStandard {
	return &hookStd{}
}

func (h *hookStd) RegisterHook(log *logrus.Logger) {
	log.AddHook(h)
}

func (h *hookStd) Levels() []logrus.Level {
	return logrus.AllLevels
}

func colorForLevel(lvl logrus.Level) *color.Color {
	switch lvl {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return color.New(color.FgRed)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.InfoLevel:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

func streamForLevel(lvl logrus.Level) StdWriter {
	switch lvl {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel:
		return StdErr
	default:
		return StdOut
	}
}

func (h *hookStd) Fire(e *logrus.Entry) error {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.closed {
		return nil
	}

	line, err := e.String()
	if err != nil {
		return err
	}

	c := colorForLevel(e.Level)
	w := streamForLevel(e.Level).writer()

	_, err = fmt.Fprint(w, c.Sprint(line))
	return err
}

func (h *hookStd) Write(p []byte) (int, error) {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.closed {
		return 0, io.ErrClosedPipe
	}

	return colorable.NewColorable(os.Stdout).Write(p)
}

func (h *hookStd) Close() error {
	h.mx.Lock()
	defer h.mx.Unlock()

	h.closed = true
	return nil
}
