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
	"fmt"
	"os"
	"strings"
)

const (
	// EnvBackendPriority is the priority for environment variable backend.
	// This is the highest priority to allow environment overrides.
	EnvBackendPriority = 100

	// EnvSecretPrefix prefixes every secret environment variable.
	EnvSecretPrefix = "VIDEOINDEXER_SECRET_"
)

// envAliases maps well-known keys to the variable names other tooling uses.
var envAliases = map[string]string{
	"access_token": "VIDEO_INDEXER_ACCESS_TOKEN",
	"arm_token":    "AZURE_ACCESS_TOKEN",
}

// EnvBackend provides read-only access to secrets via environment variables.
// A key such as "accounts/abc-123/access_token" is read from
// VIDEOINDEXER_SECRET_ACCOUNTS_ABC_123_ACCESS_TOKEN.
type EnvBackend struct {
	lookup func(string) string
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.Getenv}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from environment variables.
func (e *EnvBackend) Get(_ context.Context, key string) (string, error) {
	if value := strings.TrimSpace(e.lookup(EnvName(key))); value != "" {
		return value, nil
	}
	if alias, ok := envAliases[key]; ok {
		if value := strings.TrimSpace(e.lookup(alias)); value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, EnvName(key))
}

// Set returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Set(context.Context, string, string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Delete(context.Context, string) error {
	return ErrReadOnlyBackend
}

// Available returns true as environment variables are always available.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns the backend priority (highest).
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}

// ReadOnly returns true as environment backend is read-only.
func (e *EnvBackend) ReadOnly() bool {
	return true
}

// EnvName converts a secret key to its environment variable name.
func EnvName(key string) string {
	normalized := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(key)
	return EnvSecretPrefix + strings.ToUpper(normalized)
}
