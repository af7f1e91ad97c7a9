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

package idle

import (
	"container/list"
	"sync"
	"time"
)

// DefaultHorizon bounds the circular bucket array when the caller does not
// request a specific maximum idle timeout.
const DefaultHorizon = time.Hour

type entry struct {
	id       int64
	deadline int64
}

type ref struct {
	bucket int
	elem   *list.Element
}

type wheel struct {
	buckets []*list.List
	elems   map[int64]*ref
}

func newWheel(size int) *wheel {
	w := &wheel{
		buckets: make([]*list.List, size),
		elems:   make(map[int64]*ref),
	}
	for i := range w.buckets {
		w.buckets[i] = list.New()
	}
	return w
}

func (w *wheel) remove(id int64) {
	if r, ok := w.elems[id]; ok {
		w.buckets[r.bucket].Remove(r.elem)
		delete(w.elems, id)
	}
}

func (w *wheel) track(id int64, idx int, deadline int64) {
	w.remove(id)
	e := w.buckets[idx].PushBack(&entry{id: id, deadline: deadline})
	w.elems[id] = &ref{bucket: idx, elem: e}
}

func (w *wheel) fire(idx int, status Status, now int64, n Notifier) {
	lst := w.buckets[idx]

	for e := lst.Front(); e != nil; {
		next := e.Next()
		en := e.Value.(*entry)

		if en.deadline <= now {
			lst.Remove(e)
			delete(w.elems, en.id)
			n.SessionIdle(en.id, status)
		}

		e = next
	}
}

type detector struct {
	mu          sync.Mutex
	size        int64
	initialized bool
	lastTickSec int64
	read        *wheel
	write       *wheel
}

// NewDetector returns a Detector whose circular bucket array covers horizon
// of one-second slots. horizon should be at least as large as the largest
// idle timeout the caller intends to track.
func NewDetector(horizon time.Duration) (Detector, error) {
	sec := int64(horizon / time.Second)
	if sec <= 0 {
		return nil, ErrorTimeoutInvalid.Error()
	}

	return &detector{
		size:  sec,
		read:  newWheel(int(sec)),
		write: newWheel(int(sec)),
	}, nil
}

func (d *detector) wheelFor(status Status) *wheel {
	if status == WriteIdle {
		return d.write
	}
	return d.read
}

func (d *detector) Track(id int64, status Status, now time.Time, idleTimeout time.Duration) error {
	if idleTimeout <= 0 {
		d.mu.Lock()
		d.wheelFor(status).remove(id)
		d.mu.Unlock()
		return nil
	}

	deadline := now.Add(idleTimeout).Unix()
	idx := int(((deadline % d.size) + d.size) % d.size)

	d.mu.Lock()
	d.wheelFor(status).track(id, idx, deadline)
	d.mu.Unlock()

	return nil
}

func (d *detector) Untrack(id int64) {
	d.mu.Lock()
	d.read.remove(id)
	d.write.remove(id)
	d.mu.Unlock()
}

func (d *detector) Tick(now time.Time, n Notifier) {
	cur := now.Unix()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		d.lastTickSec = cur - 1
		d.initialized = true
	}

	if cur <= d.lastTickSec {
		return
	}

	from := d.lastTickSec + 1
	if cur-from >= d.size {
		// More than one full rotation elapsed: every bucket is due at most
		// once, scanning the whole wheel once is equivalent and bounded.
		from = cur - d.size + 1
	}

	for sec := from; sec <= cur; sec++ {
		idx := int(((sec % d.size) + d.size) % d.size)
		d.read.fire(idx, ReadIdle, sec, n)
		d.write.fire(idx, WriteIdle, sec, n)
	}

	d.lastTickSec = cur
}
