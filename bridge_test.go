// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoService struct{}

func (echoService) Echo(s string) string      { return s }
func (echoService) EchoInts(xs []int) []int   { return xs }

type cycleService struct{}

func (cycleService) SelfReferencing() *cyclicNode {
	n := &cyclicNode{Name: "root"}
	n.Next = n
	return n
}

func addInts(a, b int) int         { return a + b }
func addFloats(a, b float64) float64 { return a + b }

func decodeResponse(t *testing.T, raw []byte) ResponseMessage {
	t.Helper()
	var resp ResponseMessage
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestBridgeEchoString(t *testing.T) {
	t.Parallel()

	b := New()
	b.RegisterObject("echo", echoService{}, nil)

	raw := b.Call(context.Background(), []byte(`{"method":"echo.Echo","id":1,"params":["hello"]}`))
	resp := decodeResponse(t, raw)

	require.Nil(t, resp.Error)
	assert.Equal(t, "hello", resp.Result)
}

func TestBridgeEchoIntArray(t *testing.T) {
	t.Parallel()

	b := New()
	b.RegisterObject("echo", echoService{}, nil)

	raw := b.Call(context.Background(), []byte(`{"method":"echo.EchoInts","id":2,"params":[[1,2,3]]}`))
	resp := decodeResponse(t, raw)

	require.Nil(t, resp.Error)
	result, ok := resp.Result.([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, result)
}

func TestBridgeBeanCycleProducesFixups(t *testing.T) {
	t.Parallel()

	b := New(WithFixupPolicy(FixupCircular))
	b.RegisterObject("cycles", cycleService{}, nil)

	raw := b.Call(context.Background(), []byte(`{"method":"cycles.SelfReferencing","id":3,"params":[]}`))
	resp := decodeResponse(t, raw)

	require.Nil(t, resp.Error)
	assert.NotEmpty(t, resp.Fixups)
}

func TestBridgeMissingMethodReturnsNoSuchMethod(t *testing.T) {
	t.Parallel()

	b := New()

	raw := b.Call(context.Background(), []byte(`{"method":"nothing.Here","id":4,"params":[]}`))
	resp := decodeResponse(t, raw)

	require.NotNil(t, resp.Error)
	assert.EqualValues(t, CodeNoSuchMethod, resp.Error.Code)
}

func TestBridgeDisallowedClassHintRejected(t *testing.T) {
	t.Parallel()

	b := New()
	b.RegisterStaticMethod("Demo", "Accept", func(v interface{}) interface{} { return v })

	raw := b.Call(context.Background(), []byte(`{"method":"Demo.Accept","id":5,"params":[{"javaClass":"evil.Unregistered","foo":"bar"}]}`))
	resp := decodeResponse(t, raw)

	require.NotNil(t, resp.Error)
	assert.EqualValues(t, CodeUnmarshalError, resp.Error.Code)
}

func TestBridgeOverloadResolutionPicksMatchingNumericType(t *testing.T) {
	t.Parallel()

	b := New()
	b.RegisterStaticMethod("Calc", "Add", addInts)
	b.RegisterStaticMethod("Calc", "Add", addFloats)

	rawInt := b.Call(context.Background(), []byte(`{"method":"Calc.Add","id":6,"params":[1,2]}`))
	respInt := decodeResponse(t, rawInt)
	require.Nil(t, respInt.Error)
	assert.EqualValues(t, 3, respInt.Result)

	rawFloat := b.Call(context.Background(), []byte(`{"method":"Calc.Add","id":7,"params":[1.5,2.5]}`))
	respFloat := decodeResponse(t, rawFloat)
	require.Nil(t, respFloat.Error)
	assert.EqualValues(t, 4.0, respFloat.Result)
}

func TestBridgeSystemListMethods(t *testing.T) {
	t.Parallel()

	b := New()
	b.RegisterObject("echo", echoService{}, nil)
	b.RegisterStaticMethod("Calc", "Add", addInts)

	raw := b.Call(context.Background(), []byte(`{"method":"system.listMethods","id":8,"params":[]}`))
	resp := decodeResponse(t, raw)

	require.Nil(t, resp.Error)
	names, ok := resp.Result.([]interface{})
	require.True(t, ok)
	assert.Contains(t, names, "echo.Echo")
	assert.Contains(t, names, "Calc.Add")
}

func TestBridgeRemoteErrorFromMethod(t *testing.T) {
	t.Parallel()

	b := New()
	b.RegisterStaticMethod("Demo", "Fail", func() (int, error) {
		return 0, assertError{"boom"}
	})

	raw := b.Call(context.Background(), []byte(`{"method":"Demo.Fail","id":9,"params":[]}`))
	resp := decodeResponse(t, raw)

	require.NotNil(t, resp.Error)
	assert.EqualValues(t, CodeRemoteException, resp.Error.Code)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
