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

// Package logger provides the structured, leveled logging used across this
// module. It trims the donor codebase's logger down to what an I/O engine
// actually needs: logrus-backed entries, a colorized standard-stream hook,
// an optional file hook, and a discarding no-op for tests and library
// consumers that don't want opinions about logging.
package logger

import "io"

// Logger builds one Entry per level. Every method returns immediately with
// a chainable Entry; nothing is written until Entry.Log is called.
type Logger interface {
	Panic() Entry
	Fatal() Entry
	Error() Entry
	Warning() Entry
	Info() Entry
	Debug() Entry

	SetLevel(lvl Level)
	GetLevel() Level

	// SetOutput registers an additional destination writer (e.g. a file), on
	// top of whatever standard-stream hook was configured at New time.
	SetOutput(w io.WriteCloser) error

	Close() error
}

// Discard returns a Logger whose entries are built but never written
// anywhere; every Entry.Log call is a no-op. Used as the default when a
// caller (such as the filter chain) isn't given one.
func Discard() Logger {
	return &logger{discard: true}
}
