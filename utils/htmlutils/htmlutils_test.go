// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

package htmlutils

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "br separated",
			input: "Level: 2<br>Temperature: Cold, Hot<br/>Operator: PUB",
			want:  []string{"Level: 2", "Temperature: Cold, Hot", "Operator: PUB"},
		},
		{
			name:  "blocks and inline",
			input: "<div><b>Level:</b> Ground</div><p>Operator:\n  NEA </p>",
			want:  []string{"Level: Ground", "Operator: NEA"},
		},
		{
			name:  "scripts are not text",
			input: "hello<script>alert(1)</script> world",
			want:  []string{"hello world"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FragmentLines(tt.input)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FragmentLines() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeyValues(t *testing.T) {
	got := KeyValues([]string{"Level: 2", "no colon here", "operator : PUB", "Level: 3", "Time: 10:30"})

	want := map[string]string{"level": "2", "operator": "PUB", "time": "10:30"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("KeyValues() mismatch (-want +got):\n%s", diff)
	}
}

func TestCharsetReader(t *testing.T) {
	r, err := CharsetReader("ISO-8859-1", strings.NewReader("Caf\xe9"))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Café", string(got))

	_, err = CharsetReader("no-such-charset", strings.NewReader(""))
	assert.Error(t, err)
}
