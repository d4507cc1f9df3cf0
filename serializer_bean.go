// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"

	"github.com/segmentio/encoding/json"
)

const javaClassField = "javaClass"

// beanSerializer is the catch-all for any concrete struct type not
// claimed by an earlier, more specific serializer.
// It must be registered last: every other serializer gets first refusal.
type beanSerializer struct {
	json  *JSONSerializer
	hints HintPolicy
}

func newBeanSerializer(j *JSONSerializer, hints HintPolicy) *beanSerializer {
	return &beanSerializer{json: j, hints: hints}
}

func (s *beanSerializer) Name() string { return "bean" }

func (s *beanSerializer) CanMarshal(t reflect.Type) bool {
	return t.Kind() == reflect.Struct
}

func (s *beanSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return t.Kind() == reflect.Struct || (t == anyType && s.json.resolver != nil)
}

// wireName is the javaClass hint for t: the allow-list name it was
// registered under, if the resolver knows one, else its Go package-
// qualified name.
func (s *beanSerializer) wireName(t reflect.Type) string {
	if s.json.resolver != nil {
		if name, ok := s.json.resolver.NameOf(t); ok {
			return name
		}
	}
	return t.String()
}

func (s *beanSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	t := v.Type()
	data := s.json.analyzer.Analyze(t)

	out := make(map[string]interface{}, len(data.fields)+1)
	// v is the struct value itself, which has no tracked identity, so this
	// records nothing; a property referring back to the bean through its
	// pointer is caught by the Push that MarshalChild made on that pointer.
	state.SetSerialized(v, out)

	if s.hints == HintsOn {
		out[javaClassField] = s.wireName(t)
	}

	for _, f := range data.fields {
		fv := v.FieldByIndex(f.index)
		child, err := s.json.MarshalChild(state, FieldName(f.wireName), fv)
		if err != nil {
			return nil, err
		}
		out[f.wireName] = child
	}
	return out, nil
}

func (s *beanSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "not a bean object: %v", err)
	}

	target := t
	if t == anyType {
		hintRaw, ok := object[javaClassField]
		if !ok {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "dynamic bean value requires a javaClass hint")
		}
		hint, ok := stringLiteral(hintRaw)
		if !ok {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "javaClass hint must be a string")
		}
		resolved, ok := s.json.resolver.TryResolve(context.Background(), hint)
		if !ok {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "class %q is not allowed for dispatch", hint)
		}
		target = resolved
	}

	out := reflect.New(target).Elem()
	data := s.json.analyzer.Analyze(target)
	for _, f := range data.fields {
		propRaw, present := object[f.wireName]
		if !present {
			continue
		}
		fv := out.FieldByIndex(f.index)
		if !fv.CanSet() {
			continue
		}
		val, err := s.json.unmarshalValue(state, propRaw, fv.Type())
		if err != nil {
			return reflect.Value{}, err
		}
		fv.Set(val)
	}
	return out, nil
}

func (s *beanSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil
	}
	if t == anyType {
		if _, ok := object[javaClassField]; !ok {
			return nil
		}
	}
	return NewMatch(Okay)
}
