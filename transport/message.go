// Copyright 2020 The Go Language Server Authors.
// SPDX-License-Identifier: BSD-3-Clause

package transport

import (
	"errors"
	"fmt"

	"github.com/segmentio/encoding/json"
)

// RawMessage is a raw encoded JSON value: an alias of the segmentio/encoding/json
// codec's RawMessage type.
type RawMessage = json.RawMessage

// Message is the interface to all wire message types.
//
// They share no common functionality, but are a closed set of concrete types
// that are allowed to implement this interface: *Request, *Response and
// *Notification.
type Message interface {
	isMessage()
}

// Requester is the shared interface to messages that request a method be
// invoked. The request types are a closed set of *Request and
// *Notification.
type Requester interface {
	Message

	// Method is a string containing the method name to invoke.
	Method() string
	// Params is an ordered array with the parameters of the method.
	Params() RawMessage

	isRequester()
}

// Request is a request that expects a response.
//
// The response will have a matching ID.
type Request struct {
	method string
	params RawMessage
	id     ID
}

var (
	_ json.Marshaler   = (*Request)(nil)
	_ json.Unmarshaler = (*Request)(nil)
)

// NewRequest constructs a new Call message for the supplied ID, method and
// parameters.
func NewRequest(id ID, method string, params interface{}) (*Request, error) {
	p, merr := marshalInterface(params)
	req := &Request{
		id:     id,
		method: method,
		params: p,
	}
	return req, merr
}

func (r *Request) Method() string     { return r.method }
func (r *Request) Params() RawMessage { return r.params }
func (r *Request) ID() ID             { return r.id }
func (r *Request) isMessage()         {}
func (r *Request) isRequester()       {}

// MarshalJSON implements json.Marshaler.
func (r *Request) MarshalJSON() ([]byte, error) {
	req := wireRequest{
		Method: r.method,
		Params: &r.params,
		ID:     &r.id,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return data, fmt.Errorf("marshaling call: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	req := wireRequest{}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("unmarshaling call: %w", err)
	}
	r.method = req.Method
	if req.Params != nil {
		r.params = *req.Params
	}
	if req.ID != nil {
		r.id = *req.ID
	}
	return nil
}

// Response is a reply to a Request.
//
// It will have the same ID as the call it is a response to.
type Response struct {
	result    RawMessage
	err       error
	id        ID
	serverURL *string
}

var (
	_ json.Marshaler   = (*Response)(nil)
	_ json.Unmarshaler = (*Response)(nil)
)

// NewResponse constructs a new Response message that is a reply to the
// supplied call. If err is set, result may be ignored.
func NewResponse(id ID, result interface{}, err error) (*Response, error) {
	r, merr := marshalInterface(result)
	resp := &Response{
		id:     id,
		result: r,
		err:    err,
	}
	return resp, merr
}

func (r *Response) Result() RawMessage   { return r.result }
func (r *Response) Err() error           { return r.err }
func (r *Response) ID() ID               { return r.id }
func (r *Response) ServerURL() *string   { return r.serverURL }
func (r *Response) SetServerURL(u string) { r.serverURL = &u }
func (r *Response) isMessage()           {}

// MarshalJSON implements json.Marshaler.
func (r *Response) MarshalJSON() ([]byte, error) {
	resp := &wireResponse{
		Error:     toError(r.err),
		ID:        &r.id,
		ServerURL: r.serverURL,
	}
	if resp.Error == nil {
		resp.Result = &r.result
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return data, fmt.Errorf("marshaling response: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	resp := wireResponse{}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}
	if resp.Result != nil {
		r.result = *resp.Result
	}
	if resp.Error != nil {
		r.err = resp.Error
	}
	if resp.ID != nil {
		r.id = *resp.ID
	}
	r.serverURL = resp.ServerURL
	return nil
}

func toError(err error) *Error {
	if err == nil {
		return nil
	}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		return wrapped
	}
	return &Error{Message: err.Error()}
}

// Notification is a request for which a response cannot occur, and as such
// it has no ID.
type Notification struct {
	method string
	params RawMessage
}

var (
	_ json.Marshaler   = (*Notification)(nil)
	_ json.Unmarshaler = (*Notification)(nil)
)

// NewNotification constructs a new Notification message for the supplied
// method and parameters.
func NewNotification(method string, params interface{}) (*Notification, error) {
	p, merr := marshalInterface(params)
	notify := &Notification{
		method: method,
		params: p,
	}
	return notify, merr
}

func (r *Notification) Method() string     { return r.method }
func (r *Notification) Params() RawMessage { return r.params }
func (r *Notification) isMessage()         {}
func (r *Notification) isRequester()       {}

// MarshalJSON implements json.Marshaler.
func (r *Notification) MarshalJSON() ([]byte, error) {
	req := wireRequest{
		Method: r.method,
		Params: &r.params,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return data, fmt.Errorf("marshaling notification: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Notification) UnmarshalJSON(data []byte) error {
	req := wireRequest{}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("unmarshaling notification: %w", err)
	}
	r.method = req.Method
	if req.Params != nil {
		r.params = *req.Params
	}
	return nil
}

// marshalInterface marshals obj to a RawMessage.
func marshalInterface(obj interface{}) (RawMessage, error) {
	if obj == nil {
		return nil, nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return RawMessage(data), nil
}

// DecodeMessage decodes data into the appropriate Message implementation.
func DecodeMessage(data []byte) (Message, error) {
	msg := combined{}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshaling message: %w", err)
	}

	if msg.Method == "" {
		if msg.ID == nil {
			return nil, errInvalidReq
		}
		resp := &Response{id: *msg.ID}
		if msg.Error != nil {
			resp.err = msg.Error
		}
		if msg.Result != nil {
			resp.result = *msg.Result
		}
		return resp, nil
	}

	if msg.ID == nil {
		notify := &Notification{method: msg.Method}
		if msg.Params != nil {
			notify.params = *msg.Params
		}
		return notify, nil
	}

	req := &Request{method: msg.Method, id: *msg.ID}
	if msg.Params != nil {
		req.params = *msg.Params
	}
	return req, nil
}

// EncodeMessage encodes msg to its wire form.
func EncodeMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case json.Marshaler:
		return m.MarshalJSON()
	default:
		return nil, errors.New("transport: message does not implement json.Marshaler")
	}
}
