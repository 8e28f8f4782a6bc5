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

// Package jq applies jq expressions to command output.
package jq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
	jsoniter "github.com/json-iterator/go"
)

const (
	// DefaultTimeout is the default execution time for jq expressions.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the default maximum input size (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// genericJSON decodes numbers as float64, which gojq accepts.
var genericJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Filter is a compiled jq expression with timeout and size limits.
// A zero-expression Filter passes values through unchanged.
type Filter struct {
	expression   string
	code         *gojq.Code
	timeout      time.Duration
	maxInputSize int
}

// Compile parses and compiles expression. Zero limits use the defaults.
func Compile(expression string, timeout time.Duration, maxInputSize int) (*Filter, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}
	f := &Filter{expression: expression, timeout: timeout, maxInputSize: maxInputSize}
	if expression == "" {
		return f, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	f.code = code
	return f, nil
}

// Apply runs the filter over v, which may be any JSON-encodable value.
// One result is returned as is, several as a slice, none as nil.
func (f *Filter) Apply(ctx context.Context, v any) (any, error) {
	if f.code == nil {
		return v, nil
	}

	data, err := toGeneric(v, f.maxInputSize)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	iter := f.code.RunWithContext(execCtx, data)
	var results []any
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("execution timeout after %v", f.timeout)
			}
			return nil, err
		}
		results = append(results, out)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// toGeneric converts a typed value into the maps and slices gojq walks.
func toGeneric(v any, maxSize int) (any, error) {
	raw, err := genericJSON.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	if len(raw) > maxSize {
		return nil, fmt.Errorf("data size (%d bytes) exceeds maximum (%d bytes)", len(raw), maxSize)
	}
	var out any
	if err := genericJSON.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	return out, nil
}
