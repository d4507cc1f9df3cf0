// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"

	"github.com/jabsorb-go/bridge/transport"
	"github.com/segmentio/encoding/json"
)

// ServeJSONRPC2 adapts Bridge to transport.Handler, so a transport.Conn can
// carry bridge calls over either of its framings (raw JSON values or
// Content-Length headers), on any Listener or Dialer, without knowing
// anything about method dispatch. Pass it to Conn.Go as the handler, or
// return it from the Binder given to transport.Serve or transport.Dial.
func (b *Bridge) ServeJSONRPC2(ctx context.Context, reply transport.Replier, req transport.Requester) error {
	call, ok := req.(*transport.Request)
	if !ok {
		// Notifications carry no id to reply to; dispatch and discard the
		// response rather than reply to a call that was never made.
		envelope, err := json.Marshal(struct {
			Method string              `json:"method"`
			Params transport.RawMessage `json:"params,omitempty"`
		}{Method: req.Method(), Params: req.Params()})
		if err != nil {
			return err
		}
		b.Call(ctx, envelope)
		return nil
	}

	id := call.ID()
	idBytes, err := id.MarshalJSON()
	if err != nil {
		return reply(ctx, nil, err)
	}
	envelope, err := json.Marshal(struct {
		Method string              `json:"method"`
		ID     json.RawMessage     `json:"id"`
		Params transport.RawMessage `json:"params,omitempty"`
	}{Method: call.Method(), ID: idBytes, Params: call.Params()})
	if err != nil {
		return reply(ctx, nil, err)
	}

	respBytes := b.Call(ctx, envelope)
	var resp ResponseMessage
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return reply(ctx, nil, err)
	}
	if resp.Error != nil {
		return reply(ctx, nil, resp.Error)
	}
	return reply(ctx, resp.Result, nil)
}
