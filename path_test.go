// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathComponentJSONRoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]PathComponent{
		"field": FieldName("widgets"),
		"index": Index(3),
		"bucket": BucketKey("_2"),
	}

	for name, c := range tests {
		c := c
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(c)
			require.NoError(t, err)

			var out PathComponent
			require.NoError(t, json.Unmarshal(data, &out))

			if c.IsIndex() {
				assert.True(t, out.IsIndex())
				assert.Equal(t, c.String(), out.String())
			} else {
				// BucketKey round-trips through UnmarshalJSON as a FieldName:
				// the wire has no separate bucket-token shape, only strings
				// and numbers.
				assert.True(t, out.IsField())
				assert.Equal(t, c.String(), out.String())
			}
		})
	}
}

func TestPathAppendDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := Path{FieldName("a")}
	extended := base.Append(FieldName("b"))

	require.Len(t, base, 1)
	require.Len(t, extended, 2)
	assert.Equal(t, "a", base[0].String())
	assert.Equal(t, "b", extended[1].String())
}

func TestFixupPairEncodeDecode(t *testing.T) {
	t.Parallel()

	fixups := []Fixup{
		{Target: Path{FieldName("a"), Index(1)}, Source: Path{FieldName("b")}},
	}

	encoded := EncodeFixups(fixups)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeFixups(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, fixups[0].Target, decoded[0].Target)
	assert.Equal(t, fixups[0].Source, decoded[0].Source)
}
