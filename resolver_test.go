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

type demoWidget struct {
	Name string
}

func TestClassResolverAllowAndTryResolve(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	r.Allow("demo.Widget", reflect.TypeOf(demoWidget{}))

	got, ok := r.TryResolve(context.Background(), "demo.Widget")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(demoWidget{}), got)
}

func TestClassResolverRejectsUnregistered(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	_, ok := r.TryResolve(context.Background(), "demo.Unregistered")
	assert.False(t, ok)
}

func TestClassResolverRejectsMissingPackage(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	r.Allow("Widget", reflect.TypeOf(demoWidget{}))

	_, ok := r.TryResolve(context.Background(), "Widget")
	assert.False(t, ok, "a name with no dotted package must never resolve")
}

func TestClassResolverDisallowPrefix(t *testing.T) {
	t.Parallel()

	r := NewClassResolver("javax.", "com.sun.", "sun.")
	r.Allow("javax.management.MBean", reflect.TypeOf(demoWidget{}))

	_, ok := r.TryResolve(context.Background(), "javax.management.MBean")
	assert.False(t, ok, "disallow-prefix entries must never resolve even if allow-listed")
}

func TestClassResolverArraySyntaxNormalization(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	r.Allow("demo.Widget", reflect.TypeOf(demoWidget{}))

	got, ok := r.TryResolve(context.Background(), "[Ldemo.Widget;")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(demoWidget{}), got)
}

func TestClassResolverCasingNormalization(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	r.Allow("demo.my_widget", reflect.TypeOf(demoWidget{}))

	got, ok := r.TryResolve(context.Background(), "demo.MyWidget")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(demoWidget{}), got)
}

func TestClassResolverNameOf(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	r.Allow("demo.Widget", reflect.TypeOf(demoWidget{}))

	name, ok := r.NameOf(reflect.TypeOf(demoWidget{}))
	require.True(t, ok)
	assert.Equal(t, "demo.Widget", name)

	_, ok = r.NameOf(reflect.TypeOf(0))
	assert.False(t, ok)
}

func TestClassResolverRejectsOverlongName(t *testing.T) {
	t.Parallel()

	r := NewClassResolver()
	long := "demo." + string(make([]byte, maxClassNameLength))
	_, ok := r.TryResolve(context.Background(), long)
	assert.False(t, ok)
}
