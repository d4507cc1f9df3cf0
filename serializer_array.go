// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"

	"github.com/segmentio/encoding/json"
)

// arraySerializer handles Go slices and arrays of any element kind. It
// creates the JSON array and records it in state before populating
// elements, so a self-referencing element (the array containing itself)
// resolves to this array's own slot rather than recursing forever.
type arraySerializer struct {
	json *JSONSerializer
}

func newArraySerializer(j *JSONSerializer) *arraySerializer {
	return &arraySerializer{json: j}
}

func (s *arraySerializer) Name() string { return "array" }

func (s *arraySerializer) CanMarshal(t reflect.Type) bool {
	if t == rawMessageType || (t.Kind() == reflect.Slice && t.Elem() == anyType) {
		return false
	}
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

func (s *arraySerializer) CanUnmarshalInto(t reflect.Type) bool {
	return s.CanMarshal(t)
}

func (s *arraySerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	out := make([]interface{}, v.Len())
	// Record this array's own (still-empty) serialized form immediately,
	// ahead of descending into elements, so a cyclic element pointing
	// back at this array resolves via fixup instead of infinite descent.
	state.SetSerialized(v, out)

	for i := 0; i < v.Len(); i++ {
		elem, err := s.json.MarshalChild(state, Index(i), v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

func (s *arraySerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "not an array: %v", err)
	}

	elemType := t.Elem()
	out := reflect.MakeSlice(reflect.SliceOf(elemType), len(items), len(items))
	for i, item := range items {
		v, err := s.json.Unmarshall(item, elemType)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(v)
	}

	if t.Kind() == reflect.Array {
		arr := reflect.New(t).Elem()
		reflect.Copy(arr, out)
		return arr, nil
	}
	return out, nil
}

func (s *arraySerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	elemType := t.Elem()
	worst := NewMatch(Okay)
	for _, item := range items {
		m := s.json.TryUnmarshall(item, elemType)
		if m == nil {
			return nil
		}
		worst = Max(worst, m)
	}
	return worst
}
