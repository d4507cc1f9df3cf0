// SPDX-FileCopyrightText: 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jabsorb-go/bridge/transport"
)

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		build func(t *testing.T) transport.Message
	}{
		"notification": {
			build: func(t *testing.T) transport.Message {
				msg, err := transport.NewNotification("alive", nil)
				require.NoError(t, err)
				return msg
			},
		},
		"call with string id": {
			build: func(t *testing.T) transport.Message {
				msg, err := transport.NewRequest(transport.NewStringID("msg1"), "ping", nil)
				require.NoError(t, err)
				return msg
			},
		},
		"call with numeric id": {
			build: func(t *testing.T) transport.Message {
				msg, err := transport.NewRequest(transport.NewNumberID(1), "poke", nil)
				require.NoError(t, err)
				return msg
			},
		},
		"response": {
			build: func(t *testing.T) transport.Message {
				msg, err := transport.NewResponse(transport.NewStringID("msg2"), "pong", nil)
				require.NoError(t, err)
				return msg
			},
		},
		"error response": {
			build: func(t *testing.T) transport.Message {
				msg, err := transport.NewResponse(transport.NewNumberID(3), nil, transport.NewError(0, "computing fix edits"))
				require.NoError(t, err)
				return msg
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			want := tt.build(t)

			buf, err := transport.EncodeMessage(want)
			require.NoError(t, err)

			got, err := transport.DecodeMessage(buf)
			require.NoError(t, err)
			assert.IsType(t, want, got)
		})
	}
}
