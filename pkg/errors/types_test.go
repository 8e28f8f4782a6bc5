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

package errors_test

import (
	"errors"
	"strings"
	"testing"

	vierrors "github.com/tombee/videoindexer/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *vierrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &vierrors.ValidationError{Field: "video-id", Message: "must not be empty"},
			wantMsg: "validation failed on video-id: must not be empty",
		},
		{
			name:    "without field",
			err:     &vierrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	cause := errors.New("status 404")
	err := &vierrors.NotFoundError{Resource: "video", ID: "vid-1", Cause: cause}

	if got := err.Error(); got != "video not found: vid-1" {
		t.Errorf("NotFoundError.Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("NotFoundError should unwrap to its cause")
	}
}

func TestConfigError(t *testing.T) {
	tests := []struct {
		name    string
		err     *vierrors.ConfigError
		wantMsg string
	}{
		{
			name:    "with key",
			err:     &vierrors.ConfigError{Key: "account_id", Reason: "is required"},
			wantMsg: "config error at account_id: is required",
		},
		{
			name:    "without key",
			err:     &vierrors.ConfigError{Reason: "file unreadable"},
			wantMsg: "config error: file unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ConfigError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	cause := errors.New("permission denied")
	wrapped := vierrors.Wrap(&vierrors.ConfigError{Key: "endpoint", Reason: "unreadable", Cause: cause}, "loading config")

	var cfgErr *vierrors.ConfigError
	if !errors.As(wrapped, &cfgErr) {
		t.Fatal("expected ConfigError in chain")
	}
	if cfgErr.Key != "endpoint" {
		t.Errorf("Key = %q", cfgErr.Key)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause in chain")
	}
}

func TestWrap(t *testing.T) {
	if vierrors.Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if vierrors.Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}

	err := vierrors.Wrapf(errors.New("boom"), "fetching %s", "vid-1")
	if !strings.Contains(err.Error(), "fetching vid-1: boom") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAuthError(t *testing.T) {
	cause := errors.New("secret not found")
	err := &vierrors.AuthError{AccountID: "abc-123", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("AuthError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "abc-123") {
		t.Errorf("Error() = %q, want account id", err.Error())
	}

	var userErr vierrors.UserVisibleError = err
	if !userErr.IsUserVisible() || userErr.Suggestion() == "" {
		t.Error("AuthError should be user visible with a suggestion")
	}
}
