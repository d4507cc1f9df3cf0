// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
)

// Serializer is one entry in the ordered registry a JSONSerializer walks
// to marshal/unmarshal values. Order matters: ReferenceSerializer must be
// registered before BeanSerializer so registered reference types come
// back as handles, not property-extracted beans.
type Serializer interface {
	// Name identifies the serializer for logging.
	Name() string

	// CanMarshal reports whether this serializer claims values of type t
	// for the marshal direction.
	CanMarshal(t reflect.Type) bool

	// Marshal produces the JSON-ready value for v (a map, slice, string,
	// number, bool, or nil, whatever encoding/json can then render).
	// state is used to record v for duplicate/cycle detection when v is a
	// composite value.
	Marshal(state *SerializerState, v reflect.Value) (interface{}, error)

	// CanUnmarshalInto reports whether this serializer claims the
	// destination type t for the unmarshal direction.
	CanUnmarshalInto(t reflect.Type) bool

	// Unmarshal decodes raw into a new reflect.Value assignable to t.
	Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error)

	// TryUnmarshal reports how well raw would fit t without committing to
	// producing a value; used by the method resolver to rank overloads.
	TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch
}

// HintPolicy controls whether marshalled composite values carry a
// "javaClass" field naming their source type.
type HintPolicy int

const (
	// HintsOff never emits javaClass.
	HintsOff HintPolicy = iota
	// HintsOn always emits javaClass on composite values.
	HintsOn
)

// JSONSerializer is the entry-point façade: it owns the ordered Serializer
// list, the hint policy, and per-call SerializerState creation.
type JSONSerializer struct {
	serializers []Serializer
	hints       HintPolicy
	log         *zap.Logger
	analyzer    *classAnalyzer
	resolver    *ClassResolver
	enums       *enumSerializer
}

// NewJSONSerializer builds a façade with the default serializer ordering:
// reference types first, then the scalar kinds, then collections, then
// beans and raw passthrough last. resolver may be nil; when set, it gates
// dynamic (javaClass-hinted, interface{}-declared) bean unmarshal against
// the allow-list.
func NewJSONSerializer(log *zap.Logger, hints HintPolicy, registry *registry, resolver *ClassResolver) *JSONSerializer {
	if log == nil {
		log = zap.NewNop()
	}
	j := &JSONSerializer{hints: hints, log: log, analyzer: newClassAnalyzer(), resolver: resolver}
	enums := newEnumSerializer()
	j.enums = enums
	j.serializers = []Serializer{
		newReferenceSerializer(registry, hints),
		// enums must precede the primitive serializers: a RegisterEnum'd
		// type very often has an Int/String underlying Kind (Go's usual
		// "type Color int" idiom), and numberSerializer/stringSerializer
		// claim by Kind alone, so they would otherwise shadow every
		// numeric- or string-backed enum permanently.
		enums,
		newNumberSerializer(),
		newBooleanSerializer(),
		newStringSerializer(),
		newDateSerializer(hints),
		newArraySerializer(j),
		newCollectionSerializer(j, hints),
		newRawSerializer(j),
		newBeanSerializer(j, hints),
	}
	return j
}

// RegisterEnum installs the value set for an enum type so the enum
// serializer can marshal/unmarshal it by name.
func (j *JSONSerializer) RegisterEnum(t reflect.Type, values ...interface{}) {
	j.enums.RegisterEnum(t, values...)
}

// Register appends an additional serializer after the built-ins
// (e.g. a test double), preserving the built-in precedence.
func (j *JSONSerializer) Register(s Serializer) {
	j.serializers = append(j.serializers, s)
}

// Marshall walks v with a fresh SerializerState under policy and produces
// the wire-ready document. When policy is FixupFlat, the returned fixups
// slice is always empty and the caller should use state.FlatOutput
// instead; callers needing flat output should use MarshallFlat.
func (j *JSONSerializer) Marshall(v interface{}, policy FixupPolicy) (interface{}, []Fixup, error) {
	state := NewSerializerState(policy)
	out, err := j.MarshalChild(state, FieldName("result"), reflect.ValueOf(v))
	if err != nil {
		j.log.Debug("marshal failed", zap.Error(err))
		return nil, nil, err
	}
	return out, state.Fixups(), nil
}

// MarshallFlat behaves like Marshall but under FixupFlat policy, returning
// the assembled {"result":..., "_1":..., ...} document.
func (j *JSONSerializer) MarshallFlat(v interface{}) (map[string]interface{}, error) {
	state := NewSerializerState(FixupFlat)
	out, err := j.MarshalChild(state, FieldName("result"), reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return state.FlatOutput(out), nil
}

// MarshalChild marshals v as the child of the current descent at key,
// running it through the SerializerState's push/pop bookkeeping so
// duplicate or circular encounters produce a fixup (or flat-mode token)
// instead of infinitely recursing. Concrete serializers for composite
// types (array, collection, bean) call this for each of their own
// children instead of calling a serializer's Marshal method directly.
func (j *JSONSerializer) MarshalChild(state *SerializerState, key PathComponent, v reflect.Value) (interface{}, error) {
	if !v.IsValid() {
		return nil, nil
	}
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}
	if (v.Kind() == reflect.Ptr || v.Kind() == reflect.Map || v.Kind() == reflect.Slice) && v.IsNil() {
		return nil, nil
	}

	// identity is captured before the pointer is dereferenced: a pointer's
	// own address is what makes two visits to the same *Bean the same
	// node, and that identity would be lost once v becomes the pointed-to
	// struct value (struct kinds carry no aliasing identity of their own).
	identity := v
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	result, placeholder, err := state.Push(identity, key)
	if err != nil {
		return nil, err
	}
	switch result {
	case pushFixup, pushToken:
		return placeholder, nil
	}
	defer state.Pop(identity)

	t := v.Type()
	for _, s := range j.serializers {
		if s.CanMarshal(t) {
			out, err := s.Marshal(state, v)
			if err != nil {
				return nil, err
			}
			state.SetSerialized(identity, out)
			if result == pushFreshBoxed {
				// Flat mode: out is the boxed value's contents, not what
				// the parent embeds inline; the parent gets the token
				// Push already reserved, and out is filed under it.
				state.FillBucket(identity, out)
				return placeholder, nil
			}
			return out, nil
		}
	}
	return nil, Errorf(CodeMarshalError, "no serializer for type %s", t)
}

// Unmarshall decodes raw into a value assignable to t, using a fresh
// single-use SerializerState (fixups within a single argument's subtree
// are not meaningful outside a whole-request parse, so unmarshal uses
// FixupNone).
func (j *JSONSerializer) Unmarshall(raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	state := NewSerializerState(FixupNone)
	return j.unmarshalValue(state, raw, t)
}

func (j *JSONSerializer) unmarshalValue(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	if bs := j.dynamicBeanSerializer(t, raw); bs != nil {
		return bs.Unmarshal(state, raw, t)
	}
	for _, s := range j.serializers {
		if s.CanUnmarshalInto(t) {
			return s.Unmarshal(state, raw, t)
		}
	}
	return reflect.Value{}, Errorf(CodeUnmarshalError, "no serializer accepts destination type %s", t)
}

// TryUnmarshall reports the best mismatch any registered serializer
// reports for raw against t, without producing a value. Used by the
// method resolver's overload ranking.
func (j *JSONSerializer) TryUnmarshall(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	if bs := j.dynamicBeanSerializer(t, raw); bs != nil {
		return bs.TryUnmarshal(raw, t)
	}
	for _, s := range j.serializers {
		if s.CanUnmarshalInto(t) {
			return s.TryUnmarshal(raw, t)
		}
	}
	return nil
}

// dynamicBeanSerializer returns the registry's beanSerializer when t is the
// interface{} destination, a resolver is installed, and raw is an object
// carrying a javaClass hint. rawSerializer also claims interface{}
// unconditionally; without this check it would always run first in the
// chain and the allow-list gate in beanSerializer.Unmarshal would never
// execute, silently defeating the ClassResolver security check for every
// dynamically-typed parameter.
func (j *JSONSerializer) dynamicBeanSerializer(t reflect.Type, raw json.RawMessage) *beanSerializer {
	if t != anyType || j.resolver == nil || !hasClassHint(raw) {
		return nil
	}
	for _, s := range j.serializers {
		if bs, ok := s.(*beanSerializer); ok {
			return bs
		}
	}
	return nil
}

// hasClassHint reports whether raw is a JSON object carrying a javaClass
// property, without committing to a full decode.
func hasClassHint(raw json.RawMessage) bool {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return false
	}
	_, ok := object[javaClassField]
	return ok
}
