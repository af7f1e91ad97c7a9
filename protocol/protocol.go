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

// Package protocol enumerates the transports the service façade accepts and
// validates the addresses bound or dialed against them.
package protocol

import (
	"net"
	"strings"

	liberr "github.com/nabbar/gonio/errors"
)

// Network identifies the transport a service binds or dials.
type Network uint8

const (
	NetworkUnknown Network = iota
	NetworkTCP
	NetworkTCP4
	NetworkTCP6
	NetworkUDP
	NetworkUDP4
	NetworkUDP6
	NetworkUnix
	NetworkUnixGram
)

var names = map[Network]string{
	NetworkTCP:      "tcp",
	NetworkTCP4:     "tcp4",
	NetworkTCP6:     "tcp6",
	NetworkUDP:      "udp",
	NetworkUDP4:     "udp4",
	NetworkUDP6:     "udp6",
	NetworkUnix:     "unix",
	NetworkUnixGram: "unixgram",
}

// String returns the net.Dial/net.Listen network string for n, or "" if n
// is not a recognized value.
func (n Network) String() string {
	return names[n]
}

// Parse resolves a net.Dial/net.Listen style network string back to a
// Network constant. Comparison is case-insensitive.
func Parse(s string) Network {
	s = strings.ToLower(strings.TrimSpace(s))
	for n, v := range names {
		if v == s {
			return n
		}
	}
	return NetworkUnknown
}

// Check reports whether n is a value this package knows how to drive.
func Check(n Network) bool {
	return n != NetworkUnknown && names[n] != ""
}

// IsStream reports whether n is a connection-oriented transport requiring
// Accept/Dial semantics (the session state lattice's Securing/Secured states
// apply only to these).
func (n Network) IsStream() bool {
	switch n {
	case NetworkTCP, NetworkTCP4, NetworkTCP6, NetworkUnix:
		return true
	default:
		return false
	}
}

// IsPacket reports whether n is a connectionless transport multiplexed over
// a single net.PacketConn, per the degenerate UDP session model (§9(b)).
func (n Network) IsPacket() bool {
	switch n {
	case NetworkUDP, NetworkUDP4, NetworkUDP6, NetworkUnixGram:
		return true
	default:
		return false
	}
}

func (n Network) Validate() liberr.Error {
	if !Check(n) {
		return ErrorNetworkUnknown.Error()
	}
	return nil
}

// Address validates addr for the given network, returning a resolved
// net.Addr usable by both the selector's accept path and the service's
// dial path.
func Address(n Network, addr string) (net.Addr, liberr.Error) {
	if !Check(n) {
		return nil, ErrorNetworkUnknown.Error()
	}

	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, ErrorAddressEmpty.Error()
	}

	var (
		a   net.Addr
		err error
	)

	switch {
	case n.IsStream() && n != NetworkUnix:
		a, err = net.ResolveTCPAddr(n.String(), addr)
	case n == NetworkUnix, n == NetworkUnixGram:
		a = &net.UnixAddr{Name: addr, Net: n.String()}
	default:
		a, err = net.ResolveUDPAddr(n.String(), addr)
	}

	if err != nil {
		return nil, ErrorAddressInvalid.Error(err)
	}

	return a, nil
}
