// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"reflect"
	"strconv"

	"github.com/segmentio/encoding/json"
)

// FixupPolicy controls how SerializerState reacts when a value is visited a
// second time during one marshal.
type FixupPolicy int

const (
	// FixupNone means cycles are a fatal error and duplicates are
	// serialized again as independent copies.
	FixupNone FixupPolicy = iota
	// FixupDuplicates means non-ancestor duplicates are deduplicated via a
	// fixup; cycles (ancestor revisits) are still fatal.
	FixupDuplicates
	// FixupCircular means both non-ancestor duplicates and true cycles
	// produce fixups.
	FixupCircular
	// FixupFlat means the whole graph is flattened: every composite value
	// is hoisted to a top-level "_n" bucket and referenced by its string
	// token wherever else it occurs.
	FixupFlat
)

// Fixup is one instruction to replace the value at Target with the value
// already present at Source.
type Fixup struct {
	Target Path
	Source Path
}

// processedObject is the per-instance bookkeeping record SerializerState
// keeps for every composite value it has started to serialize.
type processedObject struct {
	path       Path
	serialized interface{}
	parent     *processedObject
	onPath     bool // true while an ancestor of the current descent
}

// CircularReferenceHandler decides what happens when the current descent
// revisits one of its own ancestors. Returning true emits a fixup to the
// ancestor's location; returning false makes the cycle a fatal
// CodeMarshalError.
type CircularReferenceHandler func(ancestor Path) (fixup bool)

// SerializerState is the per-call scratchpad threaded through every
// serializer invocation. It is never shared across calls or goroutines:
// callers must create a fresh one per Bridge.Call.
type SerializerState struct {
	Policy  FixupPolicy
	OnCycle CircularReferenceHandler

	processed map[interface{}]*processedObject
	path      Path
	fixups    []Fixup

	// flat mode bookkeeping
	buckets   []interface{}
	bucketOf  map[interface{}]int
	nextToken int
}

// NewSerializerState builds a state for one marshal/unmarshal call.
func NewSerializerState(policy FixupPolicy) *SerializerState {
	return &SerializerState{
		Policy:    policy,
		processed: make(map[interface{}]*processedObject),
		bucketOf:  make(map[interface{}]int),
		OnCycle: func(Path) bool {
			return policy == FixupCircular || policy == FixupFlat
		},
	}
}

// identityKey returns a key suitable for map lookup that captures pointer
// identity for reference kinds (pointer, map, slice, chan, func) and is
// otherwise unused: primitives, strings and bools are never tracked since
// they cannot alias.
func identityKey(v reflect.Value) (interface{}, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return nil, false
		}
		return v.Pointer(), true
	case reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
		return v.Pointer(), true
	case reflect.Interface:
		if v.IsNil() {
			return nil, false
		}
		return identityKey(v.Elem())
	default:
		return nil, false
	}
}

// pushResult reports what the caller should do after Push.
type pushResult int

const (
	// pushFresh means this is a first encounter; proceed to serialize
	// normally and call SetSerialized/Pop when done.
	pushFresh pushResult = iota
	// pushFreshBoxed means flat mode reserved a bucket token for this
	// first encounter; the caller must still serialize normally, but once
	// done must call FillBucket with the result and return the token
	// (already given back as the placeholder) to its own caller instead
	// of the freshly serialized value.
	pushFreshBoxed
	// pushFixup means a fixup was recorded; the caller must emit the
	// placeholder serialized value returned and skip re-descending.
	pushFixup
	// pushToken means flat mode found an already-boxed value; the caller
	// must emit that token string in place of a fresh subtree.
	pushToken
)

// Push registers original's entry into the current descent at key. It
// returns how the caller should proceed and, for pushFixup/pushToken/
// pushFreshBoxed, the placeholder value to emit instead of the freshly
// produced subtree.
func (s *SerializerState) Push(original reflect.Value, key PathComponent) (pushResult, interface{}, error) {
	id, ok := identityKey(original)
	if !ok {
		// Not trackable for aliasing; just extend the path. Flat mode only
		// boxes composite (identity-bearing) values: scalars stay inlined
		// wherever they occur.
		s.path = s.path.Append(key)
		return pushFresh, nil, nil
	}

	if s.Policy == FixupFlat {
		// Flat mode boxes every composite value into a top-level "_n"
		// bucket on its first encounter, not only on a repeat visit: the
		// result field and every nested composite are referenced purely by
		// token, e.g. {"result":"_1","_1":{"foo":"_2"},"_2":{"bar":1}}. The
		// token is
		// reserved before descending so a self-referencing value can still
		// resolve its own token mid-serialization.
		if token, boxed := s.bucketOf[id]; boxed {
			return pushToken, flatToken(token), nil
		}
		token := s.nextToken
		s.nextToken++
		s.bucketOf[id] = token
		s.buckets = append(s.buckets, nil)

		s.path = s.path.Append(key)
		rec := &processedObject{path: s.path, parent: s.current(), onPath: true}
		s.processed[id] = rec
		return pushFreshBoxed, flatToken(token), nil
	}

	if existing, seen := s.processed[id]; seen {
		if existing.onPath {
			// A revisit of an ancestor is a cycle: OnCycle decides between
			// a fixup and a fatal error.
			if s.OnCycle == nil || !s.OnCycle(existing.path) {
				return pushFresh, nil, Errorf(CodeMarshalError, "circular reference at %v", s.path)
			}
			target := s.path.Append(key)
			s.fixups = append(s.fixups, Fixup{Target: target, Source: existing.path})
			return pushFixup, existing.serialized, nil
		}

		switch s.Policy {
		case FixupCircular, FixupDuplicates:
			target := s.path.Append(key)
			s.fixups = append(s.fixups, Fixup{Target: target, Source: existing.path})
			return pushFixup, existing.serialized, nil

		default: // FixupNone
			// Duplicates are serialized again as independent copies; the
			// caller proceeds as if this were fresh.
		}
	}

	s.path = s.path.Append(key)
	rec := &processedObject{path: s.path, parent: s.current(), onPath: true}
	s.processed[id] = rec
	return pushFresh, nil, nil
}

func (s *SerializerState) current() *processedObject {
	// best-effort ancestor chain pointer, not required for correctness of
	// the fixup protocol above (we key off Policy, onPath and OnCycle), kept
	// for future ancestor-chain introspection.
	return nil
}

// SetSerialized records the final JSON-side form of the value most
// recently pushed, once the serializer has finished producing it.
func (s *SerializerState) SetSerialized(original reflect.Value, serialized interface{}) {
	id, ok := identityKey(original)
	if !ok {
		return
	}
	if rec, found := s.processed[id]; found {
		rec.serialized = serialized
	}
}

// FillBucket stores a flat-mode box's final serialized form once the
// serializer that produced it returns, completing the reservation Push
// made for it on first encounter.
func (s *SerializerState) FillBucket(original reflect.Value, serialized interface{}) {
	id, ok := identityKey(original)
	if !ok {
		return
	}
	if token, found := s.bucketOf[id]; found {
		s.buckets[token] = serialized
	}
}

// Pop removes the top of the descent stack. The processedObject record
// remains (its serialized form is now final) but is no longer considered
// an ancestor of the current path.
func (s *SerializerState) Pop(original reflect.Value) {
	if len(s.path) > 0 {
		s.path = s.path[:len(s.path)-1]
	}
	if id, ok := identityKey(original); ok {
		if rec, found := s.processed[id]; found {
			rec.onPath = false
		}
	}
}

// Fixups returns the accumulated fixup list in descent order.
func (s *SerializerState) Fixups() []Fixup {
	return s.fixups
}

// flatToken renders the flat-mode back-reference token for a bucket index,
// e.g. flatToken(1) == "_1".
func flatToken(n int) string {
	return "_" + strconv.Itoa(n+1)
}

// FlatOutput assembles the final flat-mode document: the root result plus
// every hoisted bucket keyed by its "_n" token.
func (s *SerializerState) FlatOutput(root interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(s.buckets)+1)
	out["result"] = root
	for i, v := range s.buckets {
		out[flatToken(i)] = v
	}
	return out
}

// EncodeFixups renders the accumulated fixups as the wire's
// array-of-two-path-arrays shape.
func EncodeFixups(fixups []Fixup) json.RawMessage {
	type pair = [2]Path
	pairs := make([]pair, len(fixups))
	for i, f := range fixups {
		pairs[i] = pair{f.Target, f.Source}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return nil
	}
	return data
}
