// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"

	"github.com/segmentio/encoding/json"
)

var (
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
	anyType        = reflect.TypeOf((*interface{})(nil)).Elem()
)

// rawSerializer handles values that are already untyped JSON trees:
// map[string]interface{}, []interface{}, and json.RawMessage. Unlike
// collectionSerializer/arraySerializer it never wraps the result in a
// javaClass envelope, it passes the shape through as-is, but it still
// re-enters MarshalChild for every element so a shared or cyclic subgraph
// living inside an untyped tree still gets a fixup instead of an infinite
// descent or a silent second copy.
type rawSerializer struct {
	json *JSONSerializer
}

func newRawSerializer(j *JSONSerializer) *rawSerializer {
	return &rawSerializer{json: j}
}

func (s *rawSerializer) Name() string { return "raw" }

func (s *rawSerializer) CanMarshal(t reflect.Type) bool {
	if t == rawMessageType {
		return true
	}
	switch t.Kind() {
	case reflect.Map:
		return t.Key().Kind() == reflect.String && t.Elem() == anyType
	case reflect.Slice:
		return t.Elem() == anyType
	}
	return false
}

func (s *rawSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return s.CanMarshal(t) || t == anyType
}

func (s *rawSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	if v.Type() == rawMessageType {
		var generic interface{}
		raw := v.Interface().(json.RawMessage)
		if len(raw) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, Errorf(CodeMarshalError, "raw value is not valid JSON: %v", err)
		}
		return s.json.MarshalChild(state, FieldName("raw"), reflect.ValueOf(generic))
	}

	switch v.Kind() {
	case reflect.Map:
		out := make(map[string]interface{}, v.Len())
		state.SetSerialized(v, out)
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			child, err := s.json.MarshalChild(state, FieldName(key), iter.Value())
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil

	case reflect.Slice:
		out := make([]interface{}, v.Len())
		state.SetSerialized(v, out)
		for i := 0; i < v.Len(); i++ {
			child, err := s.json.MarshalChild(state, Index(i), v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	}
	return nil, Errorf(CodeMarshalError, "raw serializer cannot marshal %s", v.Type())
}

func (s *rawSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	if t == rawMessageType {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		return reflect.ValueOf(cp), nil
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "malformed JSON: %v", err)
	}
	if t == anyType {
		return reflect.ValueOf(&generic).Elem(), nil
	}

	out := reflect.New(t).Elem()
	if generic == nil {
		return out, nil
	}
	gv := reflect.ValueOf(generic)
	if !gv.Type().AssignableTo(t) {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "decoded JSON shape %s does not match %s", gv.Type(), t)
	}
	out.Set(gv)
	return out, nil
}

func (s *rawSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	if t == anyType {
		return NewMatch(Okay)
	}
	if generic == nil {
		return NewMatch(Okay)
	}
	if reflect.TypeOf(generic).AssignableTo(t) {
		return NewMatch(Okay)
	}
	return nil
}
