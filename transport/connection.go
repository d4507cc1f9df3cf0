// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package transport

import (
	"context"
	"io"
)

// Binder is invoked once per accepted or dialed connection to produce the
// Handler that will serve it. It lets a Server or Dial caller observe the
// Conn for a given connection (to stash it, wrap it, issue calls back on
// it) before any message is processed.
type Binder func(ctx context.Context, conn Conn) Handler

// Framing controls how a Connection frames messages over the raw byte
// stream it is given. Defaults to HeaderFramer, matching the
// Content-Length-delimited framing most bridge transports use.
var Framing Framer = HeaderFramer()

// Connection pairs a Conn with the goroutine driving it, so a Server can
// wait for it to finish.
type Connection struct {
	Conn
	async async
}

// Wait blocks until the connection's run loop has terminated.
func (c *Connection) Wait() error {
	<-c.Conn.Done()
	return c.Conn.Err()
}

func newConnection(ctx context.Context, rwc io.ReadWriteCloser, binder Binder) (*Connection, error) {
	str := NewStream(rwc, Framing)
	c := NewConn(str)

	connection := &Connection{Conn: c}
	connection.async.init()

	handler := binder(ctx, c)
	c.Go(ctx, handler)

	go func() {
		<-c.Done()
		connection.async.setError(c.Err())
		connection.async.done()
	}()

	return connection, nil
}
