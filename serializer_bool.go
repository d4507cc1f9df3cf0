// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"

	"github.com/segmentio/encoding/json"
)

// booleanSerializer handles Go bool. A wire string "true"/"false" is
// accepted as a RoughlySimilar match; any other string
// fails.
type booleanSerializer struct{}

func newBooleanSerializer() *booleanSerializer { return &booleanSerializer{} }

func (s *booleanSerializer) Name() string { return "boolean" }

func (s *booleanSerializer) CanMarshal(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}

func (s *booleanSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return t.Kind() == reflect.Bool
}

func (s *booleanSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	return v.Bool(), nil
}

func (s *booleanSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	b, ok := parseBool(raw)
	if !ok {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "not a boolean: %s", raw)
	}
	out := reflect.New(t).Elem()
	out.SetBool(b)
	return out, nil
}

func (s *booleanSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	if text, ok := stringLiteral(raw); ok {
		switch text {
		case "true", "false":
			return NewMatch(RoughlySimilar)
		default:
			return nil
		}
	}
	switch string(raw) {
	case "true", "false":
		return NewMatch(Okay)
	}
	return nil
}

func parseBool(raw json.RawMessage) (bool, bool) {
	if text, ok := stringLiteral(raw); ok {
		switch text {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	}
	switch string(raw) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
