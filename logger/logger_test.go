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

package logger_test

import (
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/gonio/logger"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

var _ = Describe("Level", func() {
	DescribeTable("round-trips through String/ParseLevel",
		func(lvl logger.Level) {
			Expect(logger.ParseLevel(lvl.String())).To(Equal(lvl))
		},
		Entry("panic", logger.PanicLevel),
		Entry("fatal", logger.FatalLevel),
		Entry("error", logger.ErrorLevel),
		Entry("warning", logger.WarnLevel),
		Entry("info", logger.InfoLevel),
		Entry("debug", logger.DebugLevel),
	)

	It("falls back to NilLevel for unknown strings", func() {
		Expect(logger.ParseLevel("bogus")).To(Equal(logger.NilLevel))
	})
})

var _ = Describe("Fields", func() {
	It("never mutates the receiver on Add", func() {
		base := logger.NewFields().Add("a", 1)
		derived := base.Add("b", 2)

		Expect(base).To(HaveLen(1))
		Expect(derived).To(HaveLen(2))
	})
})

var _ = Describe("Logger", func() {
	It("discards every entry without panicking", func() {
		l := logger.Discard()
		Expect(func() {
			l.Error().FieldAdd("key", "val").Log("discarded message")
		}).ToNot(Panic())
	})

	It("builds and logs an entry with fields and an attached error", func() {
		l := logger.New(logger.DebugLevel)
		defer func() { _ = l.Close() }()

		Expect(func() {
			l.Info().
				FieldAdd("session", int64(42)).
				ErrorAdd(errors.New("boom")).
				Log("hello")
		}).ToNot(Panic())
	})

	It("reports the level it was configured with", func() {
		l := logger.New(logger.WarnLevel)
		defer func() { _ = l.Close() }()

		Expect(l.GetLevel()).To(Equal(logger.WarnLevel))

		l.SetLevel(logger.DebugLevel)
		Expect(l.GetLevel()).To(Equal(logger.DebugLevel))
	})

	It("accepts an extra output writer", func() {
		l := logger.New(logger.InfoLevel)
		defer func() { _ = l.Close() }()

		Expect(l.SetOutput(nopWriteCloser{io.Discard})).To(Succeed())
		Expect(func() { l.Info().Log("to extra writer too") }).ToNot(Panic())
	})
})
