// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
	"go.uber.org/atomic"
)

const (
	defaultReferenceCapacity  = 10000
	defaultReferenceShards    = 32
	defaultReferenceTTL       = 30 * time.Minute
	defaultReferenceEviction  = 10
)

// exportedClass is a class-map entry: a Go type registered under a name.
type exportedClass struct {
	name string
	typ  reflect.Type
}

// exportedObject is an object-map entry: a live instance plus the
// interface or type that restricts which of its methods are callable.
type exportedObject struct {
	instance interface{}
	declared reflect.Type
}

// registry is the per-bridge exported-object registry: the
// classMap, objectMap, referenceMap/referenceSet/callableReferenceSet, and
// the referencesEnabled gate. classMap/objectMap use xsync.Map for the hot
// method-lookup/reference-resolution read path, same shape of problem the
// teacher solves for its Conn.pending map but without blocking readers
// against each other. The reference store itself is backed by sturdyc so
// it is bounded and TTL-evicting instead of growing without bound.
type registry struct {
	classMap  *xsync.MapOf[string, *exportedClass]
	objectMap *xsync.MapOf[string, *exportedObject]

	referenceSet         *xsync.MapOf[reflect.Type, struct{}]
	callableReferenceSet *xsync.MapOf[reflect.Type, struct{}]

	referencesEnabled atomic.Bool

	referenceStore *sturdyc.Client[interface{}]
	referenceIDs   *xsync.MapOf[interface{}, int64]
	nextObjectID   atomic.Int64
}

func newRegistry() *registry {
	r := &registry{
		classMap:             xsync.NewMapOf[string, *exportedClass](),
		objectMap:            xsync.NewMapOf[string, *exportedObject](),
		referenceSet:         xsync.NewMapOf[reflect.Type, struct{}](),
		callableReferenceSet: xsync.NewMapOf[reflect.Type, struct{}](),
		referenceIDs:         xsync.NewMapOf[interface{}, int64](),
		referenceStore: sturdyc.New[interface{}](
			defaultReferenceCapacity,
			defaultReferenceShards,
			defaultReferenceTTL,
			defaultReferenceEviction,
		),
	}
	r.referencesEnabled.Store(true)
	return r
}

// RegisterClass records t in the class map under name.
func (r *registry) RegisterClass(name string, t reflect.Type) {
	r.classMap.Store(name, &exportedClass{name: name, typ: t})
}

// DeregisterClass removes a previously exported class.
func (r *registry) DeregisterClass(name string) {
	r.classMap.Delete(name)
}

// RegisterObject exports instance under key, restricting visible methods
// to those declared on restrictTo (nil means the instance's own type).
func (r *registry) RegisterObject(key string, instance interface{}, restrictTo reflect.Type) {
	if restrictTo == nil {
		restrictTo = reflect.TypeOf(instance)
	}
	r.objectMap.Store(key, &exportedObject{instance: instance, declared: restrictTo})
}

// DeregisterObject removes a previously exported object.
func (r *registry) DeregisterObject(key string) {
	r.objectMap.Delete(key)
}

// RegisterReferenceType marks t as a type whose instances are marshalled
// as opaque reference handles rather than bean-decomposed.
func (r *registry) RegisterReferenceType(t reflect.Type, callable bool) {
	r.referenceSet.Store(t, struct{}{})
	if callable {
		r.callableReferenceSet.Store(t, struct{}{})
	}
}

// IsReferenceType reports whether t (or callable) was registered via
// RegisterReferenceType.
func (r *registry) IsReferenceType(t reflect.Type) (isReference, isCallable bool) {
	_, isCallable = r.callableReferenceSet.Load(t)
	if isCallable {
		return true, true
	}
	_, isReference = r.referenceSet.Load(t)
	return isReference, false
}

// PutReference assigns instance an object ID, reusing the ID already
// assigned to the same instance (by pointer/map/slice identity) rather than
// minting a new one on every marshal, per spec.md §3's "referenceMap:
// identity-hash → live instance" — the same object must round-trip to the
// same handle across calls, not just within one marshal's duplicate/fixup
// tracking. Values with no trackable identity (arrays, structs passed by
// value) always get a fresh ID, matching identityKey's own scope.
func (r *registry) PutReference(ctx context.Context, instance interface{}) int64 {
	if key, ok := identityKey(reflect.ValueOf(instance)); ok {
		if id, found := r.referenceIDs.Load(key); found {
			return id
		}
		id := r.nextObjectID.Inc()
		actual, loaded := r.referenceIDs.LoadOrStore(key, id)
		if loaded {
			return actual
		}
		r.storeInstance(ctx, actual, instance)
		return actual
	}

	id := r.nextObjectID.Inc()
	r.storeInstance(ctx, id, instance)
	return id
}

func (r *registry) storeInstance(ctx context.Context, id int64, instance interface{}) {
	_, _ = r.referenceStore.GetOrFetch(ctx, referenceKey(id), func(context.Context) (interface{}, error) {
		return instance, nil
	})
}

// ResolveReference looks up a previously assigned reference by object ID.
func (r *registry) ResolveReference(ctx context.Context, id int64) (interface{}, bool) {
	v, err := r.referenceStore.GetOrFetch(ctx, referenceKey(id), func(context.Context) (interface{}, error) {
		return nil, sturdyc.ErrNotFound
	})
	if err != nil {
		return nil, false
	}
	return v, true
}

func referenceKey(id int64) string {
	return "ref:" + strconv.FormatInt(id, 10)
}
