// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"fmt"
	"reflect"

	"github.com/segmentio/encoding/json"
)

// Enumer is implemented by named types that behave like Java enums: a
// fixed, named set of values. Its values must be registered once per enum
// type with RegisterEnum so the serializer can look names back up on unmarshal; Go has no
// runtime enumeration of named constants.
type Enumer interface {
	fmt.Stringer
}

// enumSerializer marshals an enum value as its name and unmarshals by
// name lookup against a per-type registered value set.
type enumSerializer struct {
	values map[reflect.Type]map[string]reflect.Value
}

func newEnumSerializer() *enumSerializer {
	return &enumSerializer{values: make(map[reflect.Type]map[string]reflect.Value)}
}

// RegisterEnum installs the full value set for an enum type, keyed by the
// name each value's String() produces.
func (s *enumSerializer) RegisterEnum(t reflect.Type, values ...interface{}) {
	set := make(map[string]reflect.Value, len(values))
	for _, v := range values {
		rv := reflect.ValueOf(v)
		name := rv.Interface().(fmt.Stringer).String()
		set[name] = rv
	}
	s.values[t] = set
}

func (s *enumSerializer) Name() string { return "enum" }

func (s *enumSerializer) isEnum(t reflect.Type) bool {
	_, ok := s.values[t]
	return ok
}

func (s *enumSerializer) CanMarshal(t reflect.Type) bool       { return s.isEnum(t) }
func (s *enumSerializer) CanUnmarshalInto(t reflect.Type) bool { return s.isEnum(t) }

func (s *enumSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	stringer, ok := v.Interface().(fmt.Stringer)
	if !ok {
		return nil, Errorf(CodeMarshalError, "enum serializer requires fmt.Stringer, got %s", v.Type())
	}
	return stringer.String(), nil
}

func (s *enumSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	name, ok := stringLiteral(raw)
	if !ok {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "enum value must be a string, got %s", raw)
	}
	set, ok := s.values[t]
	if !ok {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "unregistered enum type %s", t)
	}
	v, ok := set[name]
	if !ok {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "%q is not a member of enum %s", name, t)
	}
	return v, nil
}

func (s *enumSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	name, ok := stringLiteral(raw)
	if !ok {
		return nil
	}
	set, ok := s.values[t]
	if !ok {
		return nil
	}
	if _, ok := set[name]; !ok {
		return nil
	}
	return NewMatch(Okay)
}
