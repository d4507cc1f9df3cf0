// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"
	"sync"
)

// LocalArgResolver resolves a method parameter from the invocation context
// rather than from the wire. This generalizes the mechanism
// for the JVM-servlet "local argument" injection (HTTP request/response,
// session): the core only implements the type-keyed registry, never any
// concrete HTTP types.
type LocalArgResolver interface {
	Resolve(ctx context.Context) (interface{}, error)
}

// LocalArgResolverFunc adapts a plain function to LocalArgResolver.
type LocalArgResolverFunc func(ctx context.Context) (interface{}, error)

// Resolve implements LocalArgResolver.
func (f LocalArgResolverFunc) Resolve(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// localArgRegistry is a type-keyed registry of LocalArgResolver. A
// parameter type present here is never unmarshalled from the wire; it is
// excluded from the arity count used to key the method map.
type localArgRegistry struct {
	mu        sync.RWMutex
	resolvers map[reflect.Type]LocalArgResolver
}

func newLocalArgRegistry() *localArgRegistry {
	return &localArgRegistry{resolvers: make(map[reflect.Type]LocalArgResolver)}
}

// Register installs resolver for parameters of type t.
func (l *localArgRegistry) Register(t reflect.Type, resolver LocalArgResolver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resolvers[t] = resolver
}

// IsLocal reports whether t is resolved from context rather than the wire.
func (l *localArgRegistry) IsLocal(t reflect.Type) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.resolvers[t]
	return ok
}

// Resolve runs the registered resolver for t, if any.
func (l *localArgRegistry) Resolve(ctx context.Context, t reflect.Type) (interface{}, bool, error) {
	l.mu.RLock()
	r, ok := l.resolvers[t]
	l.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	v, err := r.Resolve(ctx)
	return v, true, err
}
