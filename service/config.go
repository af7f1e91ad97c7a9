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
	"runtime"
	"time"

	libtls "github.com/nabbar/gonio/certificates"
	liberr "github.com/nabbar/gonio/errors"
	"github.com/nabbar/gonio/protocol"
)

// Config is the externally visible, tag-annotated configuration for a
// Service. Callers may populate it by hand or unmarshal it from their own
// JSON/YAML/TOML/mapstructure loader; this package performs no file or
// environment loading of its own.
type Config struct {
	Network protocol.Network `mapstructure:"network" json:"network" yaml:"network" toml:"network" validate:"required"`
	Address string           `mapstructure:"address" json:"address" yaml:"address" toml:"address" validate:"required"`

	// Loops sizes the pool of read/write selector.Loop workers. 0 defaults
	// to runtime.NumCPU().
	Loops int `mapstructure:"loops" json:"loops" yaml:"loops" toml:"loops" validate:"gte=0"`

	ConnectTimeout time.Duration `mapstructure:"connectTimeout" json:"connectTimeout" yaml:"connectTimeout" toml:"connectTimeout"`

	KeepAlive      bool          `mapstructure:"keepAlive" json:"keepAlive" yaml:"keepAlive" toml:"keepAlive"`
	KeepAlivePeriod time.Duration `mapstructure:"keepAlivePeriod" json:"keepAlivePeriod" yaml:"keepAlivePeriod" toml:"keepAlivePeriod"`
	ReuseAddress   bool          `mapstructure:"reuseAddress" json:"reuseAddress" yaml:"reuseAddress" toml:"reuseAddress"`
	NoDelay        bool          `mapstructure:"noDelay" json:"noDelay" yaml:"noDelay" toml:"noDelay"`
	SendBuffer     int           `mapstructure:"sendBuffer" json:"sendBuffer" yaml:"sendBuffer" toml:"sendBuffer" validate:"gte=0"`
	RecvBuffer     int           `mapstructure:"recvBuffer" json:"recvBuffer" yaml:"recvBuffer" toml:"recvBuffer" validate:"gte=0"`
	TrafficClass   int           `mapstructure:"trafficClass" json:"trafficClass" yaml:"trafficClass" toml:"trafficClass"`
	// Linger mirrors SO_LINGER semantics: negative lets the OS finish
	// sending in the background, positive is the linger time in seconds.
	// Zero (the default) leaves the socket option untouched.
	Linger int `mapstructure:"linger" json:"linger" yaml:"linger" toml:"linger"`
	// OOBInline mirrors SO_OOBINLINE; meaningful for stream sockets only.
	OOBInline bool `mapstructure:"oobInline" json:"oobInline" yaml:"oobInline" toml:"oobInline"`

	ReadIdleTimeout  time.Duration `mapstructure:"readIdleTimeout" json:"readIdleTimeout" yaml:"readIdleTimeout" toml:"readIdleTimeout"`
	WriteIdleTimeout time.Duration `mapstructure:"writeIdleTimeout" json:"writeIdleTimeout" yaml:"writeIdleTimeout" toml:"writeIdleTimeout"`

	// TLS, when non-nil, secures every accepted/dialed session through the
	// secure package's handshake helper.
	TLS libtls.TLSConfig `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// Metrics, when non-nil, is registered by Bind against
	// prometheus.DefaultRegisterer.
	Metrics *Metrics `mapstructure:"-" json:"-" yaml:"-" toml:"-"`
}

func (c *Config) loopCount() int {
	if c.Loops > 0 {
		return c.Loops
	}
	return runtime.NumCPU()
}

func (c *Config) Validate() liberr.Error {
	if err := c.Network.Validate(); err != nil {
		return err
	}

	if _, err := protocol.Address(c.Network, c.Address); err != nil {
		return err
	}

	return validateStruct(c)
}
