// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import "reflect"

// OverloadProvider lets an exported type contribute additional dispatch
// candidates under a method name Go itself cannot express twice. BridgeOverloads returns,
// per dispatch name, extra bound func values (closures over the receiver)
// to consider alongside the single reflected Go method of that name.
type OverloadProvider interface {
	BridgeOverloads() map[string][]interface{}
}

// candidate is one callable shape competing for a (name, arity) dispatch
// slot: a bound, ready-to-Call function plus the parameter types used for
// unmarshal/ranking (excluding the receiver, including local-argument
// types which are filtered out only when computing arity).
type candidate struct {
	fn            reflect.Value
	params        []reflect.Type
	isConstructor bool
	resultType    reflect.Type // for constructors: the type produced
}

func buildCandidate(fn reflect.Value) candidate {
	t := fn.Type()
	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}
	return candidate{fn: fn, params: params}
}

// arity reports the candidate's wire-visible argument count: parameters
// whose type is resolved from context rather than from the wire don't count.
func (c candidate) arity(locals *localArgRegistry) int {
	n := 0
	for _, p := range c.params {
		if !locals.IsLocal(p) {
			n++
		}
	}
	return n
}

// wireParams returns the candidate's parameter types in wire-argument
// order, i.e. with local-argument types removed.
func (c candidate) wireParams(locals *localArgRegistry) []reflect.Type {
	out := make([]reflect.Type, 0, len(c.params))
	for _, p := range c.params {
		if !locals.IsLocal(p) {
			out = append(out, p)
		}
	}
	return out
}

// primitiveRank is the authoritative ordering required for
// overload-tie signature comparison: byte < short < int < long < float <
// double < boolean. Go's rune/int/uint default-width kinds are folded
// into the nearest rank below their bit width.
var primitiveRank = map[reflect.Kind]int{
	reflect.Int8:   0,
	reflect.Uint8:  0,
	reflect.Int16:  1,
	reflect.Uint16: 1,
	reflect.Int32:  2,
	reflect.Uint32: 2,
	reflect.Int:    2,
	reflect.Uint:   2,
	reflect.Int64:  3,
	reflect.Uint64: 3,
	reflect.Float32: 4,
	reflect.Float64: 5,
	reflect.Bool:   6,
}

// moreSpecific reports whether a is strictly more specific than b at one
// parameter position, per the primitive-ranking table for numeric/bool
// kinds, and "assignable to" for reference (struct/interface/pointer)
// types.
func moreSpecific(a, b reflect.Type) bool {
	if a == b {
		return false
	}
	ra, aOk := primitiveRank[a.Kind()]
	rb, bOk := primitiveRank[b.Kind()]
	if aOk && bOk {
		return ra < rb
	}
	if aOk != bOk {
		return false
	}
	return a.AssignableTo(b) && !b.AssignableTo(a)
}

// compareSignatures breaks an overload-ranking tie: for every parameter
// position where the two candidates differ, count which side is more
// specific, and return the side with more wins (+1 favors a, -1 favors
// b, 0 a genuine tie meaning "keep first-registered").
func compareSignatures(a, b []reflect.Type) int {
	aWins, bWins := 0, 0
	for i := range a {
		if i >= len(b) {
			break
		}
		switch {
		case moreSpecific(a[i], b[i]):
			aWins++
		case moreSpecific(b[i], a[i]):
			bWins++
		}
	}
	switch {
	case aWins > bWins:
		return 1
	case bWins > aWins:
		return -1
	default:
		return 0
	}
}
