// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSerializer() *JSONSerializer {
	return NewJSONSerializer(nil, HintsOff, newRegistry(), nil)
}

func TestPrimitiveRoundTrips(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()

	t.Run("string", func(t *testing.T) {
		t.Parallel()
		out, _, err := j.Marshall("hello", FixupNone)
		require.NoError(t, err)
		raw, err := json.Marshal(out)
		require.NoError(t, err)

		v, err := j.Unmarshall(raw, reflect.TypeOf(""))
		require.NoError(t, err)
		assert.Equal(t, "hello", v.Interface())
	})

	t.Run("bool", func(t *testing.T) {
		t.Parallel()
		out, _, err := j.Marshall(true, FixupNone)
		require.NoError(t, err)
		raw, err := json.Marshal(out)
		require.NoError(t, err)

		v, err := j.Unmarshall(raw, reflect.TypeOf(true))
		require.NoError(t, err)
		assert.Equal(t, true, v.Interface())
	})

	t.Run("int", func(t *testing.T) {
		t.Parallel()
		out, _, err := j.Marshall(42, FixupNone)
		require.NoError(t, err)
		raw, err := json.Marshal(out)
		require.NoError(t, err)

		v, err := j.Unmarshall(raw, reflect.TypeOf(int(0)))
		require.NoError(t, err)
		assert.Equal(t, 42, v.Interface())
	})

	t.Run("decimal", func(t *testing.T) {
		t.Parallel()
		d := decimal.NewFromFloat(3.14)
		out, _, err := j.Marshall(d, FixupNone)
		require.NoError(t, err)
		raw, err := json.Marshal(out)
		require.NoError(t, err)

		v, err := j.Unmarshall(raw, reflect.TypeOf(decimal.Decimal{}))
		require.NoError(t, err)
		assert.True(t, d.Equal(v.Interface().(decimal.Decimal)))
	})
}

func TestDateSerializerRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	out, _, err := j.Marshall(now, FixupNone)
	require.NoError(t, err)
	raw, err := json.Marshal(out)
	require.NoError(t, err)

	v, err := j.Unmarshall(raw, reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	got := v.Interface().(time.Time)
	assert.True(t, now.Equal(got))
}

func TestArraySerializerRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	in := []int{1, 2, 3}

	out, _, err := j.Marshall(in, FixupNone)
	require.NoError(t, err)
	raw, err := json.Marshal(out)
	require.NoError(t, err)

	v, err := j.Unmarshall(raw, reflect.TypeOf([]int(nil)))
	require.NoError(t, err)
	assert.Equal(t, in, v.Interface())
}

func TestCollectionSerializerRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	in := map[string]int{"a": 1, "b": 2}

	out, _, err := j.Marshall(in, FixupNone)
	require.NoError(t, err)
	raw, err := json.Marshal(out)
	require.NoError(t, err)

	v, err := j.Unmarshall(raw, reflect.TypeOf(map[string]int(nil)))
	require.NoError(t, err)
	assert.Equal(t, in, v.Interface())
}

func TestCollectionSerializerRejectsNonStringKey(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	_, _, err := j.Marshall(map[int]string{1: "a"}, FixupNone)
	assert.Error(t, err)
}

type testBean struct {
	Name  string
	Count int
}

func TestBeanSerializerRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	in := testBean{Name: "widget", Count: 7}

	out, _, err := j.Marshall(in, FixupNone)
	require.NoError(t, err)
	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var asMap map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &asMap))
	assert.Equal(t, "widget", asMap["name"])
	assert.EqualValues(t, 7, asMap["count"])

	v, err := j.Unmarshall(raw, reflect.TypeOf(testBean{}))
	require.NoError(t, err)
	assert.Equal(t, in, v.Interface())
}

type cyclicNode struct {
	Name string
	Next *cyclicNode
}

func TestBeanSerializerCircularReferenceProducesFixup(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	a := &cyclicNode{Name: "a"}
	a.Next = a

	out, fixups, err := j.Marshall(a, FixupCircular)
	require.NoError(t, err)
	require.NotEmpty(t, fixups)

	asMap, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a", asMap["name"])
}

func TestBeanSerializerDuplicateWithoutCyclePolicyErrors(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	a := &cyclicNode{Name: "a"}
	a.Next = a

	_, _, err := j.Marshall(a, FixupNone)
	assert.Error(t, err, "a true cycle under FixupNone must be fatal")
}

func TestFlatModeHoistsSharedSubgraph(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	shared := &cyclicNode{Name: "shared"}
	type holder struct {
		First  *cyclicNode
		Second *cyclicNode
	}
	in := holder{First: shared, Second: shared}

	out, err := j.MarshallFlat(in)
	require.NoError(t, err)
	assert.Contains(t, out, "result")
	assert.Contains(t, out, "_1")
}

// TestFlatModeBoxesEveryCompositeValue checks the shape
// {"result":"_1","_1":{"foo":"_2"},"_2":{"bar":1}}: flat mode is a universal boxing transform, not a
// duplicate-only optimization. A root object with a single, never-repeated
// nested object still has both hoisted to top-level buckets and referenced
// only by token.
func TestFlatModeBoxesEveryCompositeValue(t *testing.T) {
	t.Parallel()

	type inner struct{ Bar int }
	type outer struct{ Foo *inner }

	j := newTestSerializer()
	root := &outer{Foo: &inner{Bar: 1}}

	out, err := j.MarshallFlat(root)
	require.NoError(t, err)

	resultToken, ok := out["result"].(string)
	require.True(t, ok, "root result must be a flat-mode token, not the inlined object")
	assert.Equal(t, "_1", resultToken)

	outerMap, ok := out["_1"].(map[string]interface{})
	require.True(t, ok)
	fooToken, ok := outerMap["foo"].(string)
	require.True(t, ok, "nested composite field must also be a token, not inlined")
	assert.Equal(t, "_2", fooToken)

	innerMap, ok := out[fooToken].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, innerMap["bar"])
}

func TestReferenceSerializerMarshalsAsHandle(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	type refType struct{ ID int }
	reg.RegisterReferenceType(reflect.TypeOf(refType{}), false)

	j := NewJSONSerializer(nil, HintsOff, reg, nil)
	out, _, err := j.Marshall(refType{ID: 5}, FixupNone)
	require.NoError(t, err)

	wire, ok := out.(referenceWire)
	require.True(t, ok)
	assert.Equal(t, "Reference", wire.JSONRPCType)

	instance, ok := reg.ResolveReference(context.Background(), wire.ObjectID)
	require.True(t, ok)
	assert.Equal(t, refType{ID: 5}, instance)
}

func TestReferenceSerializerReusesObjectIDForSameInstance(t *testing.T) {
	t.Parallel()

	reg := newRegistry()
	type refType struct{ ID int }
	reg.RegisterReferenceType(reflect.TypeOf(refType{}), false)

	j := NewJSONSerializer(nil, HintsOff, reg, nil)
	same := &refType{ID: 5}

	first, _, err := j.Marshall(same, FixupNone)
	require.NoError(t, err)
	second, _, err := j.Marshall(same, FixupNone)
	require.NoError(t, err)

	firstWire, ok := first.(referenceWire)
	require.True(t, ok)
	secondWire, ok := second.(referenceWire)
	require.True(t, ok)

	assert.Equal(t, firstWire.ObjectID, secondWire.ObjectID,
		"the same instance marshalled across two separate calls must keep the same handle")
}

type colorEnum int

const (
	colorRed colorEnum = iota
	colorGreen
)

func (c colorEnum) String() string {
	switch c {
	case colorRed:
		return "RED"
	case colorGreen:
		return "GREEN"
	}
	return "UNKNOWN"
}

func TestEnumSerializerRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSerializer()
	j.RegisterEnum(reflect.TypeOf(colorRed), colorRed, colorGreen)

	out, _, err := j.Marshall(colorGreen, FixupNone)
	require.NoError(t, err)
	assert.Equal(t, "GREEN", out)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	v, err := j.Unmarshall(raw, reflect.TypeOf(colorRed))
	require.NoError(t, err)
	assert.Equal(t, colorGreen, v.Interface())
}
