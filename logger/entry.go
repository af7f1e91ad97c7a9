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
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one in-flight log record. Every mutator returns a new Entry
// (built on Fields' immutable-clone pattern) so a base entry can be reused
// as a template by several call sites without interfering with each other.
type Entry interface {
	FieldAdd(key string, val interface{}) Entry
	FieldMerge(f Fields) Entry
	ErrorAdd(err error) Entry
	Message(msg string) Entry

	// Log emits the entry. A message may be passed directly, overriding any
	// previously set via Message; with no argument the entry's current
	// message (possibly empty) is used as-is.
	Log(message ...string)
}

type entry struct {
	out    *logrus.Logger
	level  Level
	time   time.Time
	msg    string
	fields Fields
	errs   []error
	caller string
}

func newEntry(out *logrus.Logger, lvl Level) Entry {
	return &entry{
		out:   out,
		level: lvl,
		time:  time.Now(),
	}
}

func (e *entry) clone() *entry {
	n := &entry{
		out:    e.out,
		level:  e.level,
		time:   e.time,
		msg:    e.msg,
		fields: e.fields,
		caller: e.caller,
	}

	if len(e.errs) > 0 {
		n.errs = make([]error, len(e.errs))
		copy(n.errs, e.errs)
	}

	return n
}

func (e *entry) FieldAdd(key string, val interface{}) Entry {
	n := e.clone()
	n.fields = n.fields.Add(key, val)
	return n
}

func (e *entry) FieldMerge(f Fields) Entry {
	n := e.clone()
	n.fields = n.fields.Merge(f)
	return n
}

func (e *entry) ErrorAdd(err error) Entry {
	if err == nil {
		return e
	}

	n := e.clone()
	n.errs = append(n.errs, err)
	return n
}

func (e *entry) Message(msg string) Entry {
	n := e.clone()
	n.msg = msg
	return n
}

func (e *entry) Log(message ...string) {
	if e.out == nil || e.level == NilLevel {
		return
	}

	msg := e.msg
	if len(message) > 0 {
		msg = message[0]
	}

	fields := e.fields.clone()
	if len(e.errs) > 0 {
		errStr := make([]string, 0, len(e.errs))
		for _, er := range e.errs {
			errStr = append(errStr, er.Error())
		}
		fields["errors"] = errStr
	}

	e.out.WithFields(fields).WithTime(e.time).Log(e.level.Logrus(), msg)
}
