// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"

	"github.com/segmentio/encoding/json"
)

// stringSerializer handles Go string, including named string types.
type stringSerializer struct{}

func newStringSerializer() *stringSerializer { return &stringSerializer{} }

func (s *stringSerializer) Name() string { return "string" }

func (s *stringSerializer) CanMarshal(t reflect.Type) bool {
	return t.Kind() == reflect.String
}

func (s *stringSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return t.Kind() == reflect.String
}

func (s *stringSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	return v.String(), nil
}

func (s *stringSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	text, ok := stringLiteral(raw)
	if !ok {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "not a string: %s", raw)
	}
	out := reflect.New(t).Elem()
	out.SetString(text)
	return out, nil
}

func (s *stringSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	if _, ok := stringLiteral(raw); ok {
		return NewMatch(Okay)
	}
	return nil
}
