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
	"bytes"

	"github.com/fxamacker/cbor/v2"

	"github.com/nabbar/gonio/chain"
)

// EchoFilter is a pass-through chain.Filter: every received and written
// message travels through it unchanged. Paired with a session.Handler whose
// MessageReceived writes the bytes straight back (as this package's
// echoHandler test double does), it reproduces §8's Echo scenario: the
// filter itself transforms nothing, it only proves a trivial filter can sit
// in the chain without altering the round trip.
type EchoFilter struct {
	chain.BaseFilter
}

func (EchoFilter) MessageReceived(s chain.Session, msg chain.View, ctrl chain.Controller) {
	ctrl.CallReadNext(s, msg)
}

func (EchoFilter) MessageWriting(s chain.Session, msg []byte, ctrl chain.Controller) {
	ctrl.CallWriteNext(s, msg)
}

var _ chain.Filter = EchoFilter{}

// UpperCaseFilter upper-cases every message on the way in and leaves writes
// untouched, §8's Framed transform scenario: "abc" in, "ABC" back out once
// the echo handler writes the transformed bytes.
type UpperCaseFilter struct {
	chain.BaseFilter
}

func (UpperCaseFilter) MessageReceived(s chain.Session, msg chain.View, ctrl chain.Controller) {
	ctrl.CallReadNext(s, bytes.ToUpper(msg.Clone()))
}

func (UpperCaseFilter) MessageWriting(s chain.Session, msg []byte, ctrl chain.Controller) {
	ctrl.CallWriteNext(s, msg)
}

var _ chain.Filter = UpperCaseFilter{}

// framedEnvelope is the CBOR wire shape FramedFilter frames every message
// in, so the encoding carries a typed field rather than a bare byte slice.
type framedEnvelope struct {
	Payload []byte `cbor:"payload"`
}

// FramedFilter rides the chain with a real wire codec (fxamacker/cbor/v2)
// instead of raw bytes: MessageWriting wraps the outgoing payload in a CBOR
// envelope, MessageReceived decodes the envelope back out and forwards the
// unwrapped payload downstream. A decode failure drops the message rather
// than forwarding garbage to the handler.
//
// It assumes one Deliver call carries exactly one envelope, which holds for
// a loopback connection where each Write reaches the peer as a single read;
// a transport that can coalesce or split reads would need a length prefix
// and a reassembly buffer ahead of the decode.
type FramedFilter struct {
	chain.BaseFilter
}

func (FramedFilter) MessageReceived(s chain.Session, msg chain.View, ctrl chain.Controller) {
	var env framedEnvelope
	if err := cbor.Unmarshal(msg.Clone(), &env); err != nil {
		return
	}
	ctrl.CallReadNext(s, env.Payload)
}

func (FramedFilter) MessageWriting(s chain.Session, msg []byte, ctrl chain.Controller) {
	enc, err := cbor.Marshal(framedEnvelope{Payload: msg})
	if err != nil {
		return
	}
	ctrl.CallWriteNext(s, enc)
}

var _ chain.Filter = FramedFilter{}
