// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"fmt"

	"github.com/segmentio/encoding/json"
	"golang.org/x/xerrors"
)

// Code is a dispatch-result error code.
//
// Unlike the transport-level JSON-RPC codes (kept in the transport package
// for the framing layer), these are the bridge's own fixed result codes,
// one per failure category from the invocation pipeline.
type Code int64

// Fixed dispatch failure codes. These never change: clients key error
// handling off of these values.
const (
	// CodeParseError means the request bytes could not be parsed into a
	// wire message at all. The id is unknown in this case.
	CodeParseError Code = 590

	// CodeNoSuchMethod means no method matched the requested name and
	// argument count.
	CodeNoSuchMethod Code = 591

	// CodeUnmarshalError means an argument or the javaClass-hinted value
	// could not be unmarshalled into the type the method requires, or the
	// hinted type was refused by the ClassResolver.
	CodeUnmarshalError Code = 592

	// CodeMarshalError means the return value could not be marshalled to
	// JSON.
	CodeMarshalError Code = 593

	// CodeNoConstructor means a constructor or fixup application failed.
	CodeNoConstructor Code = 594

	// CodeRemoteException means the invoked method itself returned an
	// error.
	CodeRemoteException Code = 490
)

// Error is the wire shape of a dispatch failure, and also the error type
// returned internally whenever the core must report an error without
// escaping the call boundary.
type Error struct {
	// Code indicates the error category.
	Code Code `json:"code"`

	// Message is a short human description.
	Message string `json:"message"`

	// Data carries extra information about the error. For CodeRemoteException
	// this is a sanitized textual trace with stack frames stripped.
	Data *json.RawMessage `json:"data"`

	frame xerrors.Frame
	err   error
}

var _ error = (*Error)(nil)

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Format implements fmt.Formatter.
func (e *Error) Format(s fmt.State, c rune) {
	xerrors.FormatError(e, s, c)
}

// FormatError implements xerrors.Formatter.
func (e *Error) FormatError(p xerrors.Printer) (next error) {
	if e.Message == "" {
		p.Printf("code=%v", e.Code)
	} else {
		p.Printf("%s (code=%v)", e.Message, e.Code)
	}
	e.frame.Format(p)
	return e.err
}

// Unwrap implements xerrors.Wrapper.
func (e *Error) Unwrap() error {
	return e.err
}

// NewError builds an Error for the supplied code and message.
func NewError(c Code, args ...interface{}) *Error {
	e := &Error{
		Code:    c,
		Message: fmt.Sprint(args...),
		frame:   xerrors.Caller(1),
	}
	e.err = xerrors.New(e.Message)
	return e
}

// Errorf builds an Error for the supplied code and formatted message.
func Errorf(c Code, format string, args ...interface{}) *Error {
	e := &Error{
		Code:    c,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(1),
	}
	e.err = xerrors.New(e.Message)
	return e
}

// withData attaches a JSON data payload to an existing Error, returning it
// for chaining.
func (e *Error) withData(data interface{}) *Error {
	raw, err := json.Marshal(data)
	if err != nil {
		return e
	}
	rm := json.RawMessage(raw)
	e.Data = &rm
	return e
}
