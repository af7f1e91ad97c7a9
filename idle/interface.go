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

// Package idle implements the indexed idle detector: a one-second-resolution,
// wheel-indexed structure that classifies read-idle and write-idle sessions
// in amortized O(1) per tick, per §4.6.
package idle

import "time"

// Status is the direction an idle event fired for.
type Status uint8

const (
	ReadIdle Status = iota
	WriteIdle
)

func (s Status) String() string {
	if s == WriteIdle {
		return "write-idle"
	}
	return "read-idle"
}

// Notifier receives sessionIdle callbacks from the detector. The id passed
// is opaque to the detector; it is whatever was supplied to Track.
type Notifier interface {
	SessionIdle(id int64, status Status)
}

// Detector tracks read and write idleness for a population of sessions
// sharing a single maximum timeout horizon.
type Detector interface {
	// Track begins or re-indexes tracking of id for the given direction,
	// due to fire idleTimeout after now if no further activity touches it.
	// idleTimeout <= 0 removes the session from that direction's tracking.
	Track(id int64, status Status, now time.Time, idleTimeout time.Duration) error

	// Untrack removes id from both directions, e.g. on session close.
	Untrack(id int64)

	// Tick advances the detector to now, firing SessionIdle on n for every
	// bucket whose deadline has elapsed, then re-arms nothing: a session
	// that fires is dropped from tracking until Track is called again
	// (the loop re-Tracks it immediately after dispatching the event, so
	// that a still-idle session keeps firing once per elapsed window).
	Tick(now time.Time, n Notifier)
}
