// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"
	"time"

	"github.com/dromara/carbon/v2"
	"github.com/segmentio/encoding/json"
)

// Wire hint strings for the temporal subtypes the date serializer
// dispatches unmarshal to.
const (
	hintDateTime  = "time.Time"
	hintDateOnly  = "time.Time#date"
	hintSQLDate   = "time.Time#sql"
	hintTimeOnly  = "time.Time#time"
)

type dateWire struct {
	JavaClass string `json:"javaClass,omitempty"`
	Time      int64  `json:"time"`
}

// dateSerializer marshals time.Time and carbon.Carbon values to
// {javaClass, time: epoch-millis} and dispatches unmarshal on the
// javaClass hint to the matching temporal subtype.
type dateSerializer struct {
	hints      HintPolicy
	timeType   reflect.Type
	carbonType reflect.Type
}

func newDateSerializer(hints HintPolicy) *dateSerializer {
	return &dateSerializer{
		hints:      hints,
		timeType:   reflect.TypeOf(time.Time{}),
		carbonType: reflect.TypeOf(carbon.Carbon{}),
	}
}

func (s *dateSerializer) Name() string { return "date" }

func (s *dateSerializer) CanMarshal(t reflect.Type) bool {
	return t == s.timeType || t == s.carbonType
}

func (s *dateSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return t == s.timeType || t == s.carbonType
}

func (s *dateSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	var millis int64
	switch v.Type() {
	case s.timeType:
		millis = v.Interface().(time.Time).UnixMilli()
	case s.carbonType:
		c := v.Interface().(carbon.Carbon)
		millis = c.TimestampMilli()
	default:
		return nil, Errorf(CodeMarshalError, "date serializer cannot marshal %s", v.Type())
	}

	out := dateWire{Time: millis}
	if s.hints == HintsOn {
		out.JavaClass = hintDateTime
	}
	return out, nil
}

func (s *dateSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	var wire dateWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return reflect.Value{}, Errorf(CodeUnmarshalError, "malformed date: %v", err)
	}

	switch t {
	case s.timeType:
		tm := time.UnixMilli(wire.Time).UTC()
		switch wire.JavaClass {
		case "", hintDateTime:
		case hintDateOnly, hintSQLDate:
			tm = time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
		case hintTimeOnly:
			// keep only wall-clock time, anchored to the epoch date
			tm = time.Date(1970, 1, 1, tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond(), time.UTC)
		default:
			return reflect.Value{}, Errorf(CodeUnmarshalError, "unknown date hint %q", wire.JavaClass)
		}
		return reflect.ValueOf(tm), nil

	case s.carbonType:
		c := carbon.CreateFromTimestampMilli(wire.Time)
		return reflect.ValueOf(*c), nil
	}

	return reflect.Value{}, Errorf(CodeUnmarshalError, "date serializer cannot unmarshal into %s", t)
}

func (s *dateSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	var wire dateWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	return NewMatch(Okay)
}
