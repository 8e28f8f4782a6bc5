// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type video struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type page struct {
	Results []video `json:"results"`
}

func TestFilter_Apply(t *testing.T) {
	data := page{Results: []video{{ID: "v1", State: "Processed"}, {ID: "v2", State: "Failed"}}}

	tests := []struct {
		name       string
		expression string
		want       any
	}{
		{name: "empty expression returns data as-is", expression: "", want: data},
		{name: "field extraction", expression: ".results[0].id", want: "v1"},
		{name: "several results", expression: ".results[].id", want: []any{"v1", "v2"}},
		{name: "select", expression: `[.results[] | select(.state == "Failed") | .id]`, want: []any{"v2"}},
		{name: "count", expression: ".results | length", want: 2},
		{name: "no results", expression: "empty", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expression, 0, 0)
			require.NoError(t, err)
			got, err := f.Apply(context.Background(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(".[", 0, 0)
	assert.Error(t, err)
	_, err = Compile("nosuchfunc(1)", 0, 0)
	assert.Error(t, err)
}

func TestFilter_RuntimeError(t *testing.T) {
	f, err := Compile(".results + 1", 0, 0)
	require.NoError(t, err)
	_, err = f.Apply(context.Background(), page{})
	assert.Error(t, err)
}

func TestFilter_InputTooLarge(t *testing.T) {
	f, err := Compile(".", time.Second, 8)
	require.NoError(t, err)
	_, err = f.Apply(context.Background(), page{Results: []video{{ID: "long-enough"}}})
	assert.ErrorContains(t, err, "exceeds maximum")
}
