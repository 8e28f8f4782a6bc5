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

// Package response turns 2xx bodies into typed values.
//
// Field names are matched case-insensitively because the service does not
// keep casing stable across endpoints. A body that decodes to an empty value
// is an error, not a silent success.
package response

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/tombee/videoindexer/internal/apierr"
)

// Validator is implemented by models with invariants beyond struct tags.
type Validator interface {
	Validate() error
}

// Parser holds the one JSON configuration used for every response and
// request body. It is safe for concurrent use.
type Parser struct {
	api      jsoniter.API
	validate *validator.Validate
}

var defaultParser = NewParser()

// Default returns the process-wide parser.
func Default() *Parser {
	return defaultParser
}

// NewParser creates a parser with case-insensitive field matching.
func NewParser() *Parser {
	return &Parser{
		api: jsoniter.Config{
			CaseSensitive:          false,
			UseNumber:              true,
			EscapeHTML:             false,
			SortMapKeys:            true,
			ValidateJsonRawMessage: true,
		}.Froze(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Parse decodes body into a T.
//
// It fails with a KindParse error when the body is empty, is not valid JSON,
// decodes to T's zero value, or fails validation (a Validate method or
// `validate` struct tags).
func Parse[T any](p *Parser, body []byte) (T, error) {
	var v, zero T
	typeName := fmt.Sprintf("%T", v)

	if len(bytes.TrimSpace(body)) == 0 {
		return zero, apierr.Parse(apierr.ReasonEmptyBody, fmt.Sprintf("empty response body for %s", typeName), nil)
	}

	if err := p.api.Unmarshal(body, &v); err != nil {
		return zero, apierr.Parse(apierr.ReasonMalformed, fmt.Sprintf("malformed JSON for %s", typeName), err)
	}

	if reflect.ValueOf(&v).Elem().IsZero() {
		return zero, apierr.Parse(apierr.ReasonEmptyValue, fmt.Sprintf("response decoded to an empty %s", typeName), nil)
	}

	if err := p.check(&v); err != nil {
		return zero, apierr.Parse(apierr.ReasonInvalidValue, fmt.Sprintf("invalid %s: %s", typeName, err.Error()), err)
	}

	return v, nil
}

// check runs the model's Validate method if it has one, then struct tag
// validation for struct types. Both must pass.
func (p *Parser) check(ptr any) error {
	elem := reflect.ValueOf(ptr).Elem()
	if val, ok := ptr.(Validator); ok {
		if err := val.Validate(); err != nil {
			return err
		}
	} else if val, ok := elem.Interface().(Validator); ok {
		if err := val.Validate(); err != nil {
			return err
		}
	}

	for elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			return nil
		}
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil
	}
	return p.validate.Struct(elem.Interface())
}

// Marshal encodes v with the parser's configuration.
func (p *Parser) Marshal(v any) ([]byte, error) {
	return p.api.Marshal(v)
}

// Unmarshal decodes body into v without emptiness or validation checks.
func (p *Parser) Unmarshal(body []byte, v any) error {
	return p.api.Unmarshal(body, v)
}
