// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"

	"github.com/segmentio/encoding/json"
)

// collectionSerializer handles Go maps, wrapping the payload as
// {javaClass, "map": <payload>} the way the original platform's List/Set/Map/Dictionary
// category does. Go has no built-in Set or ordered-List type distinct
// from a slice, so those two wire categories collapse onto the array
// serializer here; only the keyed Map/Dictionary category needs its own
// serializer. Per the REDESIGN flag on map keys: a non-string key type is
// a hard error (CodeMarshalError when marshalling, CodeUnmarshalError when
// unmarshalling), not a silently-coerced textual key.
type collectionSerializer struct {
	json  *JSONSerializer
	hints HintPolicy
}

func newCollectionSerializer(j *JSONSerializer, hints HintPolicy) *collectionSerializer {
	return &collectionSerializer{json: j, hints: hints}
}

type mapWire struct {
	JavaClass string                 `json:"javaClass,omitempty"`
	Map       map[string]interface{} `json:"map"`
}

func (s *collectionSerializer) Name() string { return "collection" }

func (s *collectionSerializer) CanMarshal(t reflect.Type) bool {
	if t.Kind() != reflect.Map {
		return false
	}
	return !(t.Key().Kind() == reflect.String && t.Elem() == anyType)
}

func (s *collectionSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return s.CanMarshal(t)
}

func (s *collectionSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, Errorf(CodeMarshalError, "map keys must be strings, got %s", v.Type().Key())
	}

	payload := make(map[string]interface{}, v.Len())
	// Record the payload map itself before populating, so a value nested in it that
	// refers back to this same map resolves via fixup.
	state.SetSerialized(v, payload)

	iter := v.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		val, err := s.json.MarshalChild(state, FieldName(key), iter.Value())
		if err != nil {
			return nil, err
		}
		payload[key] = val
	}

	out := mapWire{Map: payload}
	if s.hints == HintsOn {
		out.JavaClass = "java.util.HashMap"
	}
	return out, nil
}

func (s *collectionSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	if t.Key().Kind() != reflect.String {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "map keys must be strings, got %s", t.Key())
	}

	var wire mapWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		var plain map[string]json.RawMessage
		if err2 := json.Unmarshal(raw, &plain); err2 != nil {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "not a map: %v", err)
		}
		return s.unmarshalEntries(plain, t)
	}
	if wire.Map == nil {
		var plain map[string]json.RawMessage
		if err := json.Unmarshal(raw, &plain); err == nil {
			return s.unmarshalEntries(plain, t)
		}
		return reflect.Value{}, Errorf(CodeUnmarshalError, "malformed map wire value")
	}

	entries := make(map[string]json.RawMessage, len(wire.Map))
	for k, v := range wire.Map {
		data, err := json.Marshal(v)
		if err != nil {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "re-encoding map entry %q: %v", k, err)
		}
		entries[k] = data
	}
	return s.unmarshalEntries(entries, t)
}

func (s *collectionSerializer) unmarshalEntries(entries map[string]json.RawMessage, t reflect.Type) (reflect.Value, error) {
	valueType := t.Elem()
	out := reflect.MakeMapWithSize(t, len(entries))
	for k, raw := range entries {
		v, err := s.json.Unmarshall(raw, valueType)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), v)
	}
	return out, nil
}

func (s *collectionSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	if t.Key().Kind() != reflect.String {
		return nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return NewMatch(Okay)
	}

	var wire mapWire
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Map != nil {
		return NewMatch(Okay)
	}
	return nil
}
