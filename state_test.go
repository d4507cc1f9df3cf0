// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateNode struct {
	Name string
	Next *stateNode
}

func TestSerializerStatePushFreshThenDuplicate(t *testing.T) {
	t.Parallel()

	shared := &stateNode{Name: "shared"}
	s := NewSerializerState(FixupDuplicates)

	res, _, err := s.Push(reflect.ValueOf(shared), FieldName("first"))
	require.NoError(t, err)
	assert.Equal(t, pushFresh, res)
	s.SetSerialized(reflect.ValueOf(shared), map[string]interface{}{"name": "shared"})
	s.Pop(reflect.ValueOf(shared))

	res, placeholder, err := s.Push(reflect.ValueOf(shared), FieldName("second"))
	require.NoError(t, err)
	assert.Equal(t, pushFixup, res)
	assert.NotNil(t, placeholder)
	require.Len(t, s.Fixups(), 1)
	assert.Equal(t, "second", s.Fixups()[0].Target[len(s.Fixups()[0].Target)-1].String())
	assert.Equal(t, "first", s.Fixups()[0].Source[len(s.Fixups()[0].Source)-1].String())
}

func TestSerializerStateFixupNoneRejectsCycle(t *testing.T) {
	t.Parallel()

	node := &stateNode{Name: "self"}
	s := NewSerializerState(FixupNone)

	res, _, err := s.Push(reflect.ValueOf(node), FieldName("root"))
	require.NoError(t, err)
	assert.Equal(t, pushFresh, res)

	// Revisiting while still on the descent path (onPath == true) is a cycle.
	_, _, err = s.Push(reflect.ValueOf(node), FieldName("next"))
	assert.Error(t, err)
}

func TestSerializerStateFixupCircularAllowsSelfReference(t *testing.T) {
	t.Parallel()

	node := &stateNode{Name: "self"}
	s := NewSerializerState(FixupCircular)

	res, _, err := s.Push(reflect.ValueOf(node), FieldName("root"))
	require.NoError(t, err)
	assert.Equal(t, pushFresh, res)

	res, placeholder, err := s.Push(reflect.ValueOf(node), FieldName("next"))
	require.NoError(t, err)
	assert.Equal(t, pushFixup, res)
	assert.Nil(t, placeholder) // nothing set yet via SetSerialized
	require.Len(t, s.Fixups(), 1)
}

func TestSerializerStateFlatModeBoxesOnFirstEncounter(t *testing.T) {
	t.Parallel()

	shared := &stateNode{Name: "shared"}
	s := NewSerializerState(FixupFlat)

	res, token, err := s.Push(reflect.ValueOf(shared), FieldName("first"))
	require.NoError(t, err)
	assert.Equal(t, pushFreshBoxed, res)
	assert.Equal(t, "_1", token)
	s.SetSerialized(reflect.ValueOf(shared), "serialized-form")
	s.FillBucket(reflect.ValueOf(shared), "serialized-form")
	s.Pop(reflect.ValueOf(shared))

	res, token, err = s.Push(reflect.ValueOf(shared), FieldName("second"))
	require.NoError(t, err)
	assert.Equal(t, pushToken, res)
	assert.Equal(t, "_1", token)

	out := s.FlatOutput("root-result")
	assert.Equal(t, "root-result", out["result"])
	assert.Equal(t, "serialized-form", out["_1"])
}

func TestSerializerStateFlatModeBoxesRootResult(t *testing.T) {
	t.Parallel()

	root := &stateNode{Name: "root"}
	s := NewSerializerState(FixupFlat)

	res, token, err := s.Push(reflect.ValueOf(root), FieldName("result"))
	require.NoError(t, err)
	assert.Equal(t, pushFreshBoxed, res)
	assert.Equal(t, "_1", token)
	s.FillBucket(reflect.ValueOf(root), map[string]interface{}{"Name": "root"})
	s.Pop(reflect.ValueOf(root))

	out := s.FlatOutput(token)
	assert.Equal(t, "_1", out["result"])
	assert.Equal(t, map[string]interface{}{"Name": "root"}, out["_1"])
}

func TestSerializerStateUntrackableValuesAlwaysFresh(t *testing.T) {
	t.Parallel()

	s := NewSerializerState(FixupDuplicates)

	res1, _, err := s.Push(reflect.ValueOf(42), FieldName("a"))
	require.NoError(t, err)
	assert.Equal(t, pushFresh, res1)

	res2, _, err := s.Push(reflect.ValueOf(42), FieldName("b"))
	require.NoError(t, err)
	assert.Equal(t, pushFresh, res2)
}
