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

package session

// State is a position in the session lifecycle lattice of §4.2: Created,
// Connected, optionally Securing/Secured for a TLS handshake, then Closing
// and finally Closed.
type State uint8

const (
	Created State = iota
	Connected
	Securing
	Secured
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Connected:
		return "connected"
	case Securing:
		return "securing"
	case Secured:
		return "secured"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}

	return "unknown"
}

// allowed enumerates every legal transition. A transition absent from this
// table is a programming error surfaced as ErrorStateInvalid rather than
// silently accepted.
var allowed = map[State]map[State]bool{
	Created:   {Connected: true, Securing: true, Closing: true},
	Connected: {Securing: true, Closing: true},
	Securing:  {Secured: true, Closing: true},
	Secured:   {Connected: true, Securing: true, Closing: true},
	Closing:   {Closed: true},
	Closed:    {},
}

func (s State) canTransitionTo(next State) bool {
	m, ok := allowed[s]
	if !ok {
		return false
	}

	return m[next]
}
