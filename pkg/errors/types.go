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

package errors

import (
	"fmt"
)

// ValidationError represents user input validation failures.
// Use this for invalid command arguments or malformed identifiers.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a remote resource that does not exist.
// Cause keeps the underlying API error so its kind survives translation.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "video", "account")
	Resource string

	// ID is the identifier that was not found
	ID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "account_id", "http.retry.max_attempts")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// AuthError represents a failure to obtain credentials before a request is
// sent. It is distinct from the API error kinds: no request reached the
// service.
type AuthError struct {
	// AccountID is the account the token was requested for
	AccountID string

	// Cause is the underlying token provider error
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("obtaining access token for account %s", e.AccountID)
	}
	return fmt.Sprintf("obtaining access token for account %s: %v", e.AccountID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *AuthError) IsUserVisible() bool {
	return true
}

// UserMessage implements UserVisibleError.
func (e *AuthError) UserMessage() string {
	return "could not obtain an access token"
}

// Suggestion implements UserVisibleError.
func (e *AuthError) Suggestion() string {
	return "Store a token with 'vi secrets set access_token' or check token.client_credentials"
}
