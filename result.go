// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import "github.com/segmentio/encoding/json"

// Result is the outcome of one dispatched call, before it is shaped into
// a ResponseMessage.
type Result interface {
	response(id json.RawMessage) *ResponseMessage
}

// SuccessfulResult carries a marshalled return value plus whatever
// fixups/flat buckets its marshal produced.
type SuccessfulResult struct {
	Value  interface{}
	Fixups []Fixup
	Flat   map[string]interface{}
}

func (r *SuccessfulResult) response(id json.RawMessage) *ResponseMessage {
	resp := &ResponseMessage{ID: id, Result: r.Value}
	if len(r.Fixups) > 0 {
		resp.Fixups = EncodeFixups(r.Fixups)
	}
	if r.Flat != nil {
		// Flat-mode buckets ride alongside result/error as additional
		// top-level response fields: mergeFlatResponse puts them in Extra,
		// which ResponseMessage.MarshalJSON merges into the envelope.
		flat := mergeFlatResponse(id, r.Flat)
		resp.Result = flat.Result
		resp.Extra = flat.Extra
	}
	return resp
}

// FailedResult is a dispatch-pipeline failure: parse, unmarshal, marshal,
// or dispatch errors that never reach the user's method.
type FailedResult struct {
	Err *Error
}

func (r *FailedResult) response(id json.RawMessage) *ResponseMessage {
	return &ResponseMessage{ID: id, Error: r.Err}
}

// RemoteFailedResult wraps an error returned by the invoked method itself.
// Its Data carries a sanitized textual trace: implementations must never
// leak raw stack frames to the wire.
type RemoteFailedResult struct {
	Err *Error
}

func (r *RemoteFailedResult) response(id json.RawMessage) *ResponseMessage {
	return &ResponseMessage{ID: id, Error: r.Err}
}

// ExceptionTransformer rewrites an error returned by an invoked method
// before it is wrapped as a RemoteFailedResult. The identity transformer (the default) passes
// the error through unchanged.
type ExceptionTransformer func(err error) error

func identityTransformer(err error) error { return err }

// remoteFailure builds a RemoteFailedResult from a user method's error,
// sanitizing it through transform and stripping any stack-trace-shaped
// data before it is exposed.
func remoteFailure(transform ExceptionTransformer, err error) *RemoteFailedResult {
	if transform == nil {
		transform = identityTransformer
	}
	transformed := transform(err)
	return &RemoteFailedResult{Err: Errorf(CodeRemoteException, "%s", transformed.Error()).withData(transformed.Error())}
}
