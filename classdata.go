// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gobeam/stringy"
)

// beanField describes one exported, bean-visible field of a struct: its
// index path (for embedded-field support) and the name it carries on the
// wire.
type beanField struct {
	index    []int
	wireName string
}

// classData is the one-shot analysis result for a bean type: its wire
// field list. Go has no runtime introspection of getter/setter pairs the
// way the source language does, so analysis is purely over exported
// struct fields and the `bridge:"name"` tag.
type classData struct {
	fields []beanField
}

// classAnalyzer caches classData per type behind a single lock.
type classAnalyzer struct {
	mu    sync.Mutex
	cache map[reflect.Type]*classData
}

func newClassAnalyzer() *classAnalyzer {
	return &classAnalyzer{cache: make(map[reflect.Type]*classData)}
}

// Analyze returns the cached classData for t, computing it on first
// request.
func (a *classAnalyzer) Analyze(t reflect.Type) *classData {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := a.cache[t]; ok {
		return d
	}
	d := analyzeBeanType(t)
	a.cache[t] = d
	return d
}

// Invalidate empties the cache, forcing re-analysis on next use.
func (a *classAnalyzer) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[reflect.Type]*classData)
}

// No declaringClass-style filter is needed here: enum-like types
// (registered via RegisterEnum) are claimed by enumSerializer earlier in
// the registry order (see serializer.go) and never reach beanSerializer
// at all, so the narrowing falls out of serializer ordering instead of a
// field-name blocklist.

func analyzeBeanType(t reflect.Type) *classData {
	d := &classData{}
	collectBeanFields(t, nil, &d.fields)
	return d
}

func collectBeanFields(t reflect.Type, prefix []int, out *[]beanField) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue // unexported
		}
		if tag, ok := f.Tag.Lookup("bridge"); ok {
			if tag == "-" {
				continue
			}
		}

		idx := append(append([]int{}, prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectBeanFields(f.Type, idx, out)
			continue
		}

		name := wireFieldName(f)
		*out = append(*out, beanField{index: idx, wireName: name})
	}
}

// wireFieldName derives the wire property name for a struct field: the
// `bridge:"name"` tag if present, else the field name lower-camel-cased
// via gobeam/stringy so Go's exported-field convention (PascalCase) maps
// onto the bean convention (camelCase) JSON clients expect.
func wireFieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("bridge"); ok && tag != "" {
		return tag
	}
	pascal := stringy.New(f.Name).CamelCase().Get()
	if pascal == "" {
		return pascal
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}
