// SPDX-FileCopyrightText: Copyright 2021 The Go Language Server Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxPicksWorseMismatch(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		a, b *ObjectMatch
		want Mismatch
	}{
		"a worse":    {NewMatch(RoughlySimilar), NewMatch(Okay), RoughlySimilar},
		"b worse":    {NewMatch(Okay), NewMatch(Similar), Similar},
		"tie":        {NewMatch(Similar), NewMatch(Similar), Similar},
		"a nil":      {nil, NewMatch(Okay), Okay},
		"b nil":      {NewMatch(Okay), nil, Okay},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Max(tt.a, tt.b)
			assert.Equal(t, tt.want, got.Mismatch)
		})
	}
}
