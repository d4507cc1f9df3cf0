// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"context"
	"reflect"

	"github.com/segmentio/encoding/json"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// selectCandidate runs the overload-resolution algorithm
// over candidates already filtered to the right (name, arity): trial
// unmarshal each wire argument against each candidate's parameter types,
// rank by worst mismatch, and break ties by signature specificity.
func selectCandidate(candidates []candidate, argsRaw []json.RawMessage, locals *localArgRegistry, serializer *JSONSerializer) (candidate, *Error) {
	matching := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.arity(locals) == len(argsRaw) {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		return candidate{}, Errorf(CodeNoSuchMethod, "no method matching name and %d argument(s)", len(argsRaw))
	}
	if len(matching) == 1 {
		return matching[0], nil
	}

	type scored struct {
		c     candidate
		score *ObjectMatch
	}
	var scores []scored
	for _, c := range matching {
		wp := c.wireParams(locals)
		worst := NewMatch(Okay)
		rejected := false
		for i, pt := range wp {
			m := serializer.TryUnmarshall(argsRaw[i], pt)
			if m == nil {
				rejected = true
				break
			}
			worst = Max(worst, m)
		}
		if rejected {
			continue
		}
		scores = append(scores, scored{c: c, score: worst})
	}
	if len(scores) == 0 {
		return candidate{}, Errorf(CodeNoSuchMethod, "no overload accepts the given argument types")
	}

	best := scores[0]
	for _, s := range scores[1:] {
		switch {
		case s.score.Mismatch < best.score.Mismatch:
			best = s
		case s.score.Mismatch == best.score.Mismatch:
			if compareSignatures(s.c.wireParams(locals), best.c.wireParams(locals)) > 0 {
				best = s
			}
		}
	}
	return best.c, nil
}

// unmarshalArgs builds the real reflect.Value argument list for fn's full
// parameter list (including local-argument positions), consuming argsRaw
// in wire order for every non-local position.
func unmarshalArgs(ctx context.Context, c candidate, argsRaw []json.RawMessage, locals *localArgRegistry, serializer *JSONSerializer) ([]reflect.Value, []interface{}, *Error) {
	out := make([]reflect.Value, len(c.params))
	visible := make([]interface{}, 0, len(argsRaw))
	wireIdx := 0
	for i, pt := range c.params {
		if v, ok, err := locals.Resolve(ctx, pt); ok {
			if err != nil {
				return nil, nil, Errorf(CodeUnmarshalError, "resolving local argument %d: %v", i, err)
			}
			out[i] = reflect.ValueOf(v)
			continue
		}
		if wireIdx >= len(argsRaw) {
			return nil, nil, Errorf(CodeUnmarshalError, "missing argument %d", wireIdx)
		}
		val, err := serializer.Unmarshall(argsRaw[wireIdx], pt)
		if err != nil {
			return nil, nil, Errorf(CodeUnmarshalError, "argument %d: %v", wireIdx, err)
		}
		out[i] = val
		visible = append(visible, val.Interface())
		wireIdx++
	}
	return out, visible, nil
}

// invoke calls c.fn with args, recovering from a panic inside the user
// method and reporting it the same way a returned error would be
// reported.
func invoke(c candidate, args []reflect.Value) (result interface{}, failure error) {
	defer func() {
		if r := recover(); r != nil {
			failure = Errorf(CodeRemoteException, "panic in invoked method: %v", r)
		}
	}()
	out := c.fn.Call(args)
	return splitResults(out)
}

// splitResults separates a Go method's return values into a single
// marshallable result plus an optional error, following the common
// (value, error) / (error) / (value) conventions.
func splitResults(out []reflect.Value) (interface{}, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(errorType) {
		var err error
		if !last.IsNil() {
			err, _ = last.Interface().(error)
		}
		if len(out) == 1 {
			return nil, err
		}
		if len(out) == 2 {
			return out[0].Interface(), err
		}
		vals := make([]interface{}, len(out)-1)
		for i := 0; i < len(out)-1; i++ {
			vals[i] = out[i].Interface()
		}
		return vals, err
	}
	if len(out) == 1 {
		return out[0].Interface(), nil
	}
	vals := make([]interface{}, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, nil
}
