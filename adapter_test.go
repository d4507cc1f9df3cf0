// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabsorb-go/bridge/transport"
)

// TestServeJSONRPC2DispatchesOverRealConn drives a real transport.Conn
// (framing, the connection read loop, pending-call bookkeeping) through
// Bridge.ServeJSONRPC2, the same path transport/serve_test.go exercises
// with its ad-hoc pingHandler, but with an actual registered bridge
// object on the other end instead of a stub.
func TestServeJSONRPC2DispatchesOverRealConn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := New()
	b.RegisterObject("echo", echoService{}, nil)

	listener, err := transport.NetPipe(ctx)
	require.NoError(t, err)
	defer listener.Close()

	binder := func(ctx context.Context, conn transport.Conn) transport.Handler {
		return b.ServeJSONRPC2
	}

	server, err := transport.Serve(ctx, listener, binder)
	require.NoError(t, err)

	client, err := transport.Dial(ctx, listener.Dialer(), binder)
	require.NoError(t, err)
	defer client.Close()

	var got string
	_, err = client.Call(ctx, "echo.Echo", []string{"hello"}, &got)
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	require.NoError(t, client.Close())
	require.NoError(t, listener.Close())
	_ = server.Wait()
}

// TestServeJSONRPC2PropagatesDispatchErrorOverRealConn checks that a
// bridge-level dispatch failure (not a transport error) surfaces as the
// Call's returned error, exercising ServeJSONRPC2's error-reply branch
// over the real stream rather than only against an in-process []byte
// request the way bridge_test.go's TestBridgeMissingMethodReturnsNoSuchMethod
// does.
func TestServeJSONRPC2PropagatesDispatchErrorOverRealConn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := New()

	listener, err := transport.NetPipe(ctx)
	require.NoError(t, err)
	defer listener.Close()

	binder := func(ctx context.Context, conn transport.Conn) transport.Handler {
		return b.ServeJSONRPC2
	}

	server, err := transport.Serve(ctx, listener, binder)
	require.NoError(t, err)

	client, err := transport.Dial(ctx, listener.Dialer(), binder)
	require.NoError(t, err)
	defer client.Close()

	var got string
	_, err = client.Call(ctx, "nothing.Here", nil, &got)
	require.Error(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, listener.Close())
	_ = server.Wait()
}
