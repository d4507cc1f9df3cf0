// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"github.com/segmentio/encoding/json"
)

// RequestParser extracts the per-argument RawMessage slice from a
// request's params/result subtree, applying whichever duplicate/cycle
// encoding the sender used. Exactly one variant is active
// per bridge; it must agree with the serializer's output FixupPolicy.
type RequestParser interface {
	ParseParams(params json.RawMessage) ([]json.RawMessage, error)
}

// NestedRequestParser reads params directly and, if the request carried a
// top-level "fixups" array, applies each entry by copying the subtree at
// the source path into the target path before params are split into
// individual arguments.
type NestedRequestParser struct {
	Fixups json.RawMessage // the request's top-level "fixups" field, or nil
}

// ParseParams implements RequestParser.
func (p *NestedRequestParser) ParseParams(params json.RawMessage) ([]json.RawMessage, error) {
	var tree interface{}
	if err := json.Unmarshal(params, &tree); err != nil {
		return nil, Errorf(CodeParseError, "malformed params: %v", err)
	}

	if len(p.Fixups) > 0 {
		fixups, err := DecodeFixups(p.Fixups)
		if err != nil {
			return nil, Errorf(CodeNoConstructor, "malformed fixups: %v", err)
		}
		// params itself descends as element 0 under the wire root, so
		// every fixup path's leading "params" segment is stripped before
		// applying it against the locally-parsed params tree.
		for _, f := range fixups {
			target := stripParamsPrefix(f.Target)
			source := stripParamsPrefix(f.Source)
			value, ok := getPath(tree, source)
			if !ok {
				return nil, Errorf(CodeNoConstructor, "fixup source path %v not found", f.Source)
			}
			if !setPath(&tree, target, value) {
				return nil, Errorf(CodeNoConstructor, "fixup target path %v not found", f.Target)
			}
		}
	}

	items, ok := tree.([]interface{})
	if !ok {
		if tree == nil {
			return nil, nil
		}
		return nil, Errorf(CodeParseError, "params is not an array")
	}
	return reEncodeAll(items)
}

func stripParamsPrefix(p Path) Path {
	if len(p) > 0 && p[0].IsField() && p[0].String() == "params" {
		return p[1:]
	}
	return p
}

// FlatRequestParser walks the request replacing any string of the form
// "_n" with the corresponding top-level sibling bucket object, reversing
// the marshaller's flat-mode output.
type FlatRequestParser struct {
	Buckets map[string]json.RawMessage // the request's top-level "_1", "_2", ... siblings
}

// ParseParams implements RequestParser.
func (p *FlatRequestParser) ParseParams(params json.RawMessage) ([]json.RawMessage, error) {
	var tree interface{}
	if err := json.Unmarshal(params, &tree); err != nil {
		return nil, Errorf(CodeParseError, "malformed params: %v", err)
	}

	materialized := make(map[string]interface{}, len(p.Buckets))
	visiting := make(map[string]bool)
	resolved, err := p.resolve(tree, materialized, visiting)
	if err != nil {
		return nil, err
	}

	items, ok := resolved.([]interface{})
	if !ok {
		if resolved == nil {
			return nil, nil
		}
		return nil, Errorf(CodeParseError, "params is not an array")
	}
	return reEncodeAll(items)
}

// resolve performs a small DFS substituting every "_n" token with its
// materialized bucket value. visiting tracks tokens currently being
// expanded on this DFS branch so a bucket that (incorrectly) refers back
// to an ancestor of itself fails instead of looping.
func (p *FlatRequestParser) resolve(node interface{}, materialized map[string]interface{}, visiting map[string]bool) (interface{}, error) {
	switch v := node.(type) {
	case string:
		if !isFlatToken(v) {
			return v, nil
		}
		if cached, ok := materialized[v]; ok {
			return cached, nil
		}
		if visiting[v] {
			return nil, Errorf(CodeNoConstructor, "flat-mode token %s re-entered during expansion", v)
		}
		raw, ok := p.Buckets[v]
		if !ok {
			return v, nil // not a recognized bucket; leave the literal string as-is
		}
		var bucketTree interface{}
		if err := json.Unmarshal(raw, &bucketTree); err != nil {
			return nil, Errorf(CodeParseError, "malformed bucket %s: %v", v, err)
		}
		visiting[v] = true
		resolved, err := p.resolve(bucketTree, materialized, visiting)
		visiting[v] = false
		if err != nil {
			return nil, err
		}
		materialized[v] = resolved
		return resolved, nil

	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			r, err := p.resolve(child, materialized, visiting)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil

	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			r, err := p.resolve(child, materialized, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil

	default:
		return v, nil
	}
}

func isFlatToken(s string) bool {
	if len(s) < 2 || s[0] != '_' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func reEncodeAll(items []interface{}) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, Errorf(CodeParseError, "re-encoding param %d: %v", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// getPath reads the value at p within a generic decoded JSON tree.
func getPath(tree interface{}, p Path) (interface{}, bool) {
	cur := tree
	for _, c := range p {
		switch {
		case c.IsIndex():
			arr, ok := cur.([]interface{})
			if !ok || c.index < 0 || c.index >= len(arr) {
				return nil, false
			}
			cur = arr[c.index]
		default:
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			v, present := obj[c.String()]
			if !present {
				return nil, false
			}
			cur = v
		}
	}
	return cur, true
}

// setPath writes value at p within a generic decoded JSON tree rooted at
// *tree, creating no new containers: every path element but the last must
// already exist.
func setPath(tree *interface{}, p Path, value interface{}) bool {
	if len(p) == 0 {
		*tree = value
		return true
	}
	cur := *tree
	for i := 0; i < len(p)-1; i++ {
		c := p[i]
		switch {
		case c.IsIndex():
			arr, ok := cur.([]interface{})
			if !ok || c.index < 0 || c.index >= len(arr) {
				return false
			}
			cur = arr[c.index]
		default:
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return false
			}
			v, present := obj[c.String()]
			if !present {
				return false
			}
			cur = v
		}
	}
	last := p[len(p)-1]
	switch {
	case last.IsIndex():
		arr, ok := cur.([]interface{})
		if !ok || last.index < 0 || last.index >= len(arr) {
			return false
		}
		arr[last.index] = value
	default:
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return false
		}
		obj[last.String()] = value
	}
	return true
}

// DecodeFixups parses the wire's array-of-two-path-arrays fixup encoding.
func DecodeFixups(raw json.RawMessage) ([]Fixup, error) {
	var pairs [][2]Path
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	out := make([]Fixup, len(pairs))
	for i, pair := range pairs {
		out[i] = Fixup{Target: pair[0], Source: pair[1]}
	}
	return out, nil
}
