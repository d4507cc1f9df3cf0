// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct{ UserID string }

func add(a int, b int) int                      { return a + b }
func addWithSession(a int, sess fakeSession) int { return a + len(sess.UserID) }

func TestCandidateArityExcludesLocalArgs(t *testing.T) {
	t.Parallel()

	locals := newLocalArgRegistry()
	sessionType := reflect.TypeOf(fakeSession{})
	locals.Register(sessionType, LocalArgResolverFunc(func(context.Context) (interface{}, error) {
		return fakeSession{UserID: "u1"}, nil
	}))

	plain := buildCandidate(reflect.ValueOf(add))
	assert.Equal(t, 2, plain.arity(locals))
	assert.Len(t, plain.wireParams(locals), 2)

	withSession := buildCandidate(reflect.ValueOf(addWithSession))
	assert.Equal(t, 1, withSession.arity(locals), "session param is local, must not count toward wire arity")
	require.Len(t, withSession.wireParams(locals), 1)
	assert.Equal(t, reflect.TypeOf(0), withSession.wireParams(locals)[0])
}

func TestMoreSpecificPrimitiveRanking(t *testing.T) {
	t.Parallel()

	assert.True(t, moreSpecific(reflect.TypeOf(int32(0)), reflect.TypeOf(int64(0))))
	assert.False(t, moreSpecific(reflect.TypeOf(int64(0)), reflect.TypeOf(int32(0))))
	assert.False(t, moreSpecific(reflect.TypeOf(int32(0)), reflect.TypeOf(int32(0))), "identical types are never more specific than each other")
}

func TestMoreSpecificReferenceTypesUseAssignability(t *testing.T) {
	t.Parallel()

	type base struct{}

	// base is assignable to interface{} but not vice versa.
	assert.True(t, moreSpecific(reflect.TypeOf(base{}), reflect.TypeOf((*interface{})(nil)).Elem()))
	assert.False(t, moreSpecific(reflect.TypeOf((*interface{})(nil)).Elem(), reflect.TypeOf(base{})))
}

func TestCompareSignaturesPicksMoreSpecificOverload(t *testing.T) {
	t.Parallel()

	a := []reflect.Type{reflect.TypeOf(int32(0))}
	b := []reflect.Type{reflect.TypeOf(int64(0))}

	assert.Equal(t, 1, compareSignatures(a, b))
	assert.Equal(t, -1, compareSignatures(b, a))
}

func TestCompareSignaturesTieKeepsFirstRegistered(t *testing.T) {
	t.Parallel()

	a := []reflect.Type{reflect.TypeOf(int32(0))}
	b := []reflect.Type{reflect.TypeOf(int32(0))}

	assert.Equal(t, 0, compareSignatures(a, b))
}
