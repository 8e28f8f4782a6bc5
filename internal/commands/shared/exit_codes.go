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

package shared

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/tombee/videoindexer/internal/apierr"
	pkgerrors "github.com/tombee/videoindexer/pkg/errors"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitExecutionFailed = 1
	ExitUsage           = 2
	ExitConfig          = 3
	ExitNotFound        = 4
	ExitAuth            = 5
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for invalid arguments
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: msg, Cause: cause}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var (
		cfgErr     *pkgerrors.ConfigError
		notFound   *pkgerrors.NotFoundError
		validation *pkgerrors.ValidationError
		authErr    *pkgerrors.AuthError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &notFound), apierr.IsStatus(err, http.StatusNotFound):
		return ExitNotFound
	case errors.As(err, &authErr),
		apierr.IsStatus(err, http.StatusUnauthorized), apierr.IsStatus(err, http.StatusForbidden):
		return ExitAuth
	case errors.As(err, &validation):
		return ExitUsage
	default:
		return ExitExecutionFailed
	}
}

// HandleExitError prints err with any suggestion and exits with its code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes the error line and the first suggestion found in the chain.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)
}

// printUserVisibleSuggestion walks the error chain to find a UserVisibleError
// and prints its suggestion if available.
func printUserVisibleSuggestion(w io.Writer, err error) {
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok && userErr.IsUserVisible() {
			if suggestion := userErr.Suggestion(); suggestion != "" {
				fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
			}
			return
		}
		err = errors.Unwrap(err)
	}
}
