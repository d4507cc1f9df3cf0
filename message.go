// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import "github.com/segmentio/encoding/json"

// rawRequest is the as-received request object, kept as a field bag so
// both the nested (method/id/params/fixups) and flat (method/id/params
// plus arbitrary "_n" sibling buckets) wire shapes can be read off the
// same decode.
type rawRequest struct {
	Method string
	ID     json.RawMessage
	Params json.RawMessage
	Fixups json.RawMessage
	Buckets map[string]json.RawMessage
}

func parseRawRequest(data []byte) (*rawRequest, *Error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, Errorf(CodeParseError, "malformed request: %v", err)
	}

	req := &rawRequest{Buckets: make(map[string]json.RawMessage)}
	for k, v := range fields {
		switch k {
		case "method":
			if err := json.Unmarshal(v, &req.Method); err != nil {
				return nil, Errorf(CodeParseError, "malformed method field: %v", err)
			}
		case "id":
			req.ID = v
		case "params":
			req.Params = v
		case "fixups":
			req.Fixups = v
		default:
			if isFlatToken(k) {
				req.Buckets[k] = v
			}
		}
	}
	if req.Method == "" {
		return nil, Errorf(CodeParseError, "request is missing method")
	}
	if len(req.Params) == 0 {
		req.Params = json.RawMessage("[]")
	}
	return req, nil
}

// ResponseMessage is the wire shape of a JSON-RPC response: id and
// exactly one of result or error, with an optional fixups array and an
// optional serverURL redirect hint. Extra carries
// flat-mode's hoisted "_n" buckets, which ride alongside id/result as
// additional top-level siblings.
type ResponseMessage struct {
	ID        json.RawMessage        `json:"id"`
	Result    interface{}            `json:"result,omitempty"`
	Error     *Error                 `json:"error,omitempty"`
	Fixups    json.RawMessage        `json:"fixups,omitempty"`
	ServerURL string                 `json:"serverURL,omitempty"`
	Extra     map[string]interface{} `json:"-"`
}

// MarshalJSON implements json.Marshaler, merging Extra's flat-mode
// buckets as additional top-level fields alongside the fixed ones.
func (r *ResponseMessage) MarshalJSON() ([]byte, error) {
	type alias ResponseMessage
	base, err := json.Marshal((*alias)(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = data
	}
	return json.Marshal(fields)
}
