// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package transport

import (
	"context"
	"io"
)

// Stream abstracts the framed message transport a conn reads from and
// writes to. It pairs a Reader and Writer (produced by a Framer around a
// byte stream) with the ability to close the underlying connection.
type Stream interface {
	Reader
	Writer
	io.Closer
}

type stream struct {
	reader Reader
	writer Writer
	closer io.Closer
}

// NewStream builds a Stream by wrapping rwc's bytes using framer for
// message boundaries.
func NewStream(rwc io.ReadWriteCloser, framer Framer) Stream {
	return &stream{
		reader: framer.Reader(rwc),
		writer: framer.Writer(rwc),
		closer: rwc,
	}
}

// Read implements Reader.
func (s *stream) Read(ctx context.Context) (Message, int64, error) {
	return s.reader.Read(ctx)
}

// Write implements Writer.
func (s *stream) Write(ctx context.Context, msg Message) (int64, error) {
	return s.writer.Write(ctx, msg)
}

// Close closes the underlying connection.
func (s *stream) Close() error {
	return s.closer.Close()
}
