// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
)

// numberSerializer handles every Go numeric kind plus decimal.Decimal for wire numbers that would lose
// precision as float64.
//
// Per the numeric-serializer REDESIGN flag: the fallback path parses using
// each destination width's own exact textual parser. It never reuses a
// wider integer parse and truncates, which is the bug the design
// notes call out in the original.
type numberSerializer struct {
	decimalType reflect.Type
}

func newNumberSerializer() *numberSerializer {
	return &numberSerializer{decimalType: reflect.TypeOf(decimal.Decimal{})}
}

func (s *numberSerializer) Name() string { return "number" }

func (s *numberSerializer) CanMarshal(t reflect.Type) bool {
	if t == s.decimalType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (s *numberSerializer) CanUnmarshalInto(t reflect.Type) bool {
	return s.CanMarshal(t)
}

func (s *numberSerializer) Marshal(state *SerializerState, v reflect.Value) (interface{}, error) {
	if v.Type() == s.decimalType {
		d := v.Interface().(decimal.Decimal)
		return json.Number(d.String()), nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}
	return nil, Errorf(CodeMarshalError, "number serializer cannot marshal %s", v.Type())
}

func (s *numberSerializer) Unmarshal(state *SerializerState, raw json.RawMessage, t reflect.Type) (reflect.Value, error) {
	if t == s.decimalType {
		d, err := parseDecimal(raw)
		if err != nil {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "not a number: %v", err)
		}
		return reflect.ValueOf(d), nil
	}

	text, isString := stringLiteral(raw)
	if !isString {
		text = strings.TrimSpace(string(raw))
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		n, err := strconv.ParseInt(text, 10, bits)
		if err != nil {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "not a number: %q", text)
		}
		out := reflect.New(t).Elem()
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := t.Bits()
		n, err := strconv.ParseUint(text, 10, bits)
		if err != nil {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "not a number: %q", text)
		}
		out := reflect.New(t).Elem()
		out.SetUint(n)
		return out, nil

	case reflect.Float32, reflect.Float64:
		bits := t.Bits()
		f, err := strconv.ParseFloat(text, bits)
		if err != nil {
			return reflect.Value{}, Errorf(CodeUnmarshalError, "not a number: %q", text)
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f)
		return out, nil
	}
	return reflect.Value{}, Errorf(CodeUnmarshalError, "number serializer cannot unmarshal into %s", t)
}

func (s *numberSerializer) TryUnmarshal(raw json.RawMessage, t reflect.Type) *ObjectMatch {
	if t == s.decimalType {
		if _, err := parseDecimal(raw); err != nil {
			return nil
		}
		return NewMatch(Okay)
	}

	text, isString := stringLiteral(raw)
	if !isString {
		text = strings.TrimSpace(string(raw))
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if _, err := strconv.ParseInt(text, 10, t.Bits()); err != nil {
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if _, err := strconv.ParseUint(text, 10, t.Bits()); err != nil {
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if _, err := strconv.ParseFloat(text, t.Bits()); err != nil {
			return nil
		}
	default:
		return nil
	}

	if isString {
		return NewMatch(RoughlySimilar)
	}
	return NewMatch(Okay)
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	if text, ok := stringLiteral(raw); ok {
		return decimal.NewFromString(text)
	}
	return decimal.NewFromString(strings.TrimSpace(string(raw)))
}

// stringLiteral reports whether raw is a JSON string literal and, if so,
// its unquoted content.
func stringLiteral(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
