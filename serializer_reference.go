// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"

	"github.com/segmentio/encoding/json"
)

// referenceWire is the wire shape of a reference handle: JSONRPCType is "Reference" for a plain handle or "CallableReference"
// when the source type was registered as callable.
type referenceWire struct {
	JSONRPCType string `json:"JSONRPCType"`
	JavaClass   string `json:"javaClass,omitempty"`
	ObjectID    int64  `json:"objectID"`
}

// referenceSerializer must be registered before beanSerializer: any type
// registered on the bridge's registry as a reference type is returned as
// an opaque handle instead of being property-extracted.
type referenceSerializer struct {
	registry *registry
	hints    HintPolicy
}

func newReferenceSerializer(reg *registry, hints HintPolicy) *referenceSerializer {
	return &referenceSerializer{registry: reg, hints: hints}
}

func (s *referenceSerializer) Name() string { return "reference" }

func (s *referenceSerializer) CanMarshal(t reflect.Type) bool {
	isRef, _ := s.registry.IsReferenceType(t)
	return isRef
}

func (s *referenceSerializer) CanUnmarshalInto(t reflect.Type) bool {
	isRef, _ := s.registry.IsReferenceType(t)
	return isRef
}

func (s *referenceSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	t := v.Type()
	_, isCallable := s.registry.IsReferenceType(t)

	id := s.registry.PutReference(context.Background(), v.Interface())

	out := referenceWire{ObjectID: id}
	if isCallable {
		out.JSONRPCType = "CallableReference"
	} else {
		out.JSONRPCType = "Reference"
	}
	if s.hints == HintsOn {
		out.JavaClass = t.String()
	}
	return out, nil
}

func (s *referenceSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	var wire referenceWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "malformed reference: %v", err)
	}
	instance, ok := s.registry.ResolveReference(context.Background(), wire.ObjectID)
	if !ok {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "unknown objectID %d", wire.ObjectID)
	}
	v := reflect.ValueOf(instance)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "reference %d is a %s, not assignable to %s", wire.ObjectID, v.Type(), t)
	}
	return v, nil
}

func (s *referenceSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	var wire referenceWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	if wire.JSONRPCType != "Reference" && wire.JSONRPCType != "CallableReference" {
		return nil
	}
	return NewMatch(Okay)
}
