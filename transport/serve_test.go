// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabsorb-go/bridge/transport"
)

func TestIdleTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	listener, err := transport.NetListener(ctx, "tcp", "localhost:0", &transport.ListenOptions{})
	require.NoError(t, err)

	listener = transport.NewIdleListener(100*time.Millisecond, listener)
	defer listener.Close()

	binder := func(ctx context.Context, conn transport.Conn) transport.Handler {
		return transport.MethodNotFoundHandler
	}

	server, err := transport.Serve(ctx, listener, binder)
	require.NoError(t, err)

	connect := func() *transport.Connection {
		client, err := transport.Dial(ctx, listener.Dialer(), binder)
		require.NoError(t, err)
		return client
	}

	conn1 := connect()
	conn2 := connect()

	require.NoError(t, conn1.Close())
	require.NoError(t, conn2.Close())

	conn3 := connect()
	require.NoError(t, conn3.Close())

	serverErr := server.Wait()
	if !errors.Is(serverErr, transport.ErrIdleTimeout) && serverErr != nil {
		t.Fatalf("run() returned error %v, want %v or nil", serverErr, transport.ErrIdleTimeout)
	}
}

type pingResult struct {
	Msg string `json:"Msg"`
}

func pingHandler(ctx context.Context, reply transport.Replier, req transport.Requester) error {
	if req.Method() != "ping" {
		return transport.MethodNotFoundHandler(ctx, reply, req)
	}
	return reply(ctx, &pingResult{Msg: "pong"}, nil)
}

func TestServe(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		factory func(context.Context) (transport.Listener, error)
	}{
		"tcp": {
			factory: func(ctx context.Context) (transport.Listener, error) {
				return transport.NetListener(ctx, "tcp", "localhost:0", &transport.ListenOptions{})
			},
		},
		"pipe": {
			factory: transport.NetPipe,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			listener, err := tt.factory(ctx)
			require.NoError(t, err)
			listener = transport.NewIdleListener(200*time.Millisecond, listener)
			defer listener.Close()

			binder := func(ctx context.Context, conn transport.Conn) transport.Handler {
				return pingHandler
			}

			server, err := transport.Serve(ctx, listener, binder)
			require.NoError(t, err)

			client, err := transport.Dial(ctx, listener.Dialer(), binder)
			require.NoError(t, err)
			defer client.Close()

			var got pingResult
			_, err = client.Call(ctx, "ping", nil, &got)
			require.NoError(t, err)
			require.Equal(t, "pong", got.Msg)

			require.NoError(t, client.Close())
			require.NoError(t, listener.Close())
			_ = server.Wait()
		})
	}
}
