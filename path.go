// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"strconv"

	"github.com/segmentio/encoding/json"
)

// PathComponent is one segment of a location within a marshalled tree: a
// struct/map field name, an array index, or a flat-mode bucket key (the
// top-level "_n" slots). Exactly one of the three is meaningful at a time.
type PathComponent struct {
	kind  pathKind
	field string
	index int
}

type pathKind int

const (
	pathField pathKind = iota
	pathIndex
	pathBucket
)

// FieldName builds a PathComponent naming a struct or map field.
func FieldName(name string) PathComponent {
	return PathComponent{kind: pathField, field: name}
}

// Index builds a PathComponent naming an array/slice position.
func Index(i int) PathComponent {
	return PathComponent{kind: pathIndex, index: i}
}

// BucketKey builds a PathComponent naming a flat-mode top-level bucket, e.g.
// "_1".
func BucketKey(key string) PathComponent {
	return PathComponent{kind: pathBucket, field: key}
}

// IsField reports whether this component names a field.
func (p PathComponent) IsField() bool { return p.kind == pathField }

// IsIndex reports whether this component names an array index.
func (p PathComponent) IsIndex() bool { return p.kind == pathIndex }

// IsBucket reports whether this component names a flat-mode bucket.
func (p PathComponent) IsBucket() bool { return p.kind == pathBucket }

// String renders the component the way it would appear marshalled on the
// wire: field names and bucket keys as themselves, indices as their decimal
// form.
func (p PathComponent) String() string {
	switch p.kind {
	case pathIndex:
		return strconv.Itoa(p.index)
	default:
		return p.field
	}
}

// MarshalJSON implements json.Marshaler, emitting indices as JSON numbers
// and everything else as JSON strings, matching the fixup array encoding
// of strings for fields and numbers for indices.
func (p PathComponent) MarshalJSON() ([]byte, error) {
	if p.kind == pathIndex {
		return []byte(strconv.Itoa(p.index)), nil
	}
	return []byte(strconv.Quote(p.field)), nil
}

// UnmarshalJSON implements json.Unmarshaler, reading a fixup path
// component off the wire: a JSON number becomes an Index, anything else
// becomes a FieldName.
func (p *PathComponent) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		i, err := n.Int64()
		if err == nil {
			*p = Index(int(i))
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = FieldName(s)
	return nil
}

// Path is an ordered descent from the root of a marshalled tree.
type Path []PathComponent

// Append returns a new Path with component appended; it never mutates p.
func (p Path) Append(c PathComponent) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = c
	return out
}
