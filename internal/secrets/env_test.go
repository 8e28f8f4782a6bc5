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

package secrets

import (
	"context"
	"errors"
	"testing"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"access_token":                  "VIDEOINDEXER_SECRET_ACCESS_TOKEN",
		"accounts/abc-123/access_token": "VIDEOINDEXER_SECRET_ACCOUNTS_ABC_123_ACCESS_TOKEN",
		"arm.token":                     "VIDEOINDEXER_SECRET_ARM_TOKEN",
	}
	for key, want := range tests {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestEnvBackend_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		key       string
		envVars   map[string]string
		wantValue string
		wantErr   error
	}{
		{
			name:      "normalized key found",
			key:       "accounts/abc-123/access_token",
			envVars:   map[string]string{"VIDEOINDEXER_SECRET_ACCOUNTS_ABC_123_ACCESS_TOKEN": "tok-1"},
			wantValue: "tok-1",
		},
		{
			name:      "alias found",
			key:       "access_token",
			envVars:   map[string]string{"VIDEO_INDEXER_ACCESS_TOKEN": "tok-alias"},
			wantValue: "tok-alias",
		},
		{
			name: "normalized takes precedence over alias",
			key:  "access_token",
			envVars: map[string]string{
				"VIDEOINDEXER_SECRET_ACCESS_TOKEN": "tok-normalized",
				"VIDEO_INDEXER_ACCESS_TOKEN":       "tok-alias",
			},
			wantValue: "tok-normalized",
		},
		{
			name:    "whitespace only is missing",
			key:     "access_token",
			envVars: map[string]string{"VIDEOINDEXER_SECRET_ACCESS_TOKEN": "   "},
			wantErr: ErrSecretNotFound,
		},
		{
			name:    "key not found",
			key:     "accounts/missing/access_token",
			wantErr: ErrSecretNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &EnvBackend{lookup: func(k string) string { return tt.envVars[k] }}

			got, err := backend.Get(ctx, tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Get() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.wantValue {
				t.Errorf("Get() = %q, want %q", got, tt.wantValue)
			}
		})
	}
}

func TestEnvBackend_FromProcessEnv(t *testing.T) {
	t.Setenv("VIDEOINDEXER_SECRET_ACCESS_TOKEN", "from-env")
	got, err := NewEnvBackend().Get(context.Background(), "access_token")
	if err != nil || got != "from-env" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
}

func TestEnvBackend_ReadOnly(t *testing.T) {
	backend := NewEnvBackend()
	ctx := context.Background()

	if err := backend.Set(ctx, "k", "v"); !errors.Is(err, ErrReadOnlyBackend) {
		t.Errorf("Set() error = %v, want ErrReadOnlyBackend", err)
	}
	if err := backend.Delete(ctx, "k"); !errors.Is(err, ErrReadOnlyBackend) {
		t.Errorf("Delete() error = %v, want ErrReadOnlyBackend", err)
	}
	if !backend.ReadOnly() || !backend.Available() || backend.Priority() != EnvBackendPriority {
		t.Error("unexpected metadata")
	}
}
