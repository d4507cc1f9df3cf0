// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gobeam/stringy"
	"github.com/viccon/sturdyc"
)

const (
	maxClassNameLength = 256

	resolverCapacity           = 2000
	resolverShards              = 8
	resolverTTL                 = 10 * time.Minute
	resolverEvictionPercentage  = 10
)

// ClassResolver maps a wire-carried type name (the "javaClass" hint) to a
// registered Go type, guarded by an allow-list and a disallow-prefix list,
// so that an unmarshal can never be tricked into instantiating an arbitrary
// type. Results are cached: a positive cache keyed on the resolved name,
// and sturdyc's missing-record storage standing in for the "weak negative
// cache", so a later reload can still revisit a prior
// negative result once its short TTL has elapsed.
type ClassResolver struct {
	mu             sync.RWMutex
	allow          map[string]reflect.Type
	disallowPrefix []string

	cache *sturdyc.Client[reflect.Type]
}

// NewClassResolver builds a resolver with the given disallow-prefixes
// (defaults to the classic javax./com.sun./sun. set when nil).
func NewClassResolver(disallowPrefixes ...string) *ClassResolver {
	if len(disallowPrefixes) == 0 {
		disallowPrefixes = []string{"javax.", "com.sun.", "sun."}
	}
	return &ClassResolver{
		allow:          make(map[string]reflect.Type),
		disallowPrefix: disallowPrefixes,
		cache: sturdyc.New[reflect.Type](
			resolverCapacity,
			resolverShards,
			resolverTTL,
			resolverEvictionPercentage,
			sturdyc.WithMissingRecordStorage(),
		),
	}
}

// Allow registers name as resolvable to t. name is the allow-list entry
// exactly as it would appear in a javaClass hint, e.g. "pkg.MyBean".
func (r *ClassResolver) Allow(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allow[name] = t
	r.cache.Delete(name)
}

// NameOf returns the allow-list name t was registered under, if any. Used
// to pick the javaClass hint a marshalled bean carries, so a round trip
// through Allow(name, t) emits the same name it would accept back.
func (r *ClassResolver) NameOf(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, candidate := range r.allow {
		if candidate == t {
			return name, true
		}
	}
	return "", false
}

// TryResolve resolves name to a registered type, applying the rules from
// the allow-list: length bound, dotted-package requirement, array-syntax
// normalization, allow-list membership (normalized via gobeam/stringy so
// casing/separator differences between registration time and wire time
// don't cause spurious rejections), and disallow-prefix exclusion.
func (r *ClassResolver) TryResolve(ctx context.Context, name string) (reflect.Type, bool) {
	if name == "" || len(name) > maxClassNameLength {
		return nil, false
	}

	element := normalizeArraySyntax(name)
	if !strings.Contains(element, ".") {
		return nil, false
	}

	for _, prefix := range r.disallowPrefix {
		if strings.HasPrefix(element, prefix) {
			return nil, false
		}
	}

	t, err := r.cache.GetOrFetch(ctx, element, func(ctx context.Context) (reflect.Type, error) {
		found, ok := r.lookup(element)
		if !ok {
			return nil, sturdyc.ErrNotFound
		}
		return found, nil
	})
	if err != nil {
		return nil, false
	}
	return t, true
}

// lookup performs the uncached allow-list scan, normalizing both sides
// with gobeam/stringy so "pkg.MyBean" matches a type registered as
// "pkg.my_bean" or "pkg.My-Bean".
func (r *ClassResolver) lookup(element string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.allow[element]; ok {
		return t, true
	}

	normalized := normalizeClassName(element)
	for name, t := range r.allow {
		if normalizeClassName(name) == normalized {
			return t, true
		}
	}
	return nil, false
}

// normalizeClassName lower-cases and strips separator style differences
// using gobeam/stringy's CamelCase transform as a canonical form.
func normalizeClassName(name string) string {
	parts := strings.Split(name, ".")
	pkg := strings.Join(parts[:len(parts)-1], ".")
	last := parts[len(parts)-1]
	return strings.ToLower(pkg) + "." + strings.ToLower(stringy.New(last).CamelCase().Get())
}

// normalizeArraySyntax strips a leading "[" run, an optional "L" object
// marker, and a trailing ";" from a Java-style array type descriptor,
// returning the element type name. Names with no array syntax pass
// through unchanged.
func normalizeArraySyntax(name string) string {
	i := 0
	for i < len(name) && name[i] == '[' {
		i++
	}
	if i == 0 {
		return name
	}
	elem := name[i:]
	if strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";") {
		elem = elem[1 : len(elem)-1]
	}
	return elem
}
