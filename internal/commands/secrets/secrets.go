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

// Package secrets implements the secrets command group.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/videoindexer/internal/commands/shared"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/secrets"
)

// newResolver is replaced in tests.
var newResolver = secrets.DefaultResolver

// NewCommand creates the secrets command for token storage.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage stored access tokens and client secrets",
		Long: `Manage secrets used to authenticate against the service.

Secrets are resolved from these backends, highest priority first:
  1. Environment variables (read-only)
  2. System keychain
  3. Encrypted file (needs VIDEOINDEXER_MASTER_KEY)

Examples:
  vi secrets set access_token
  echo "$TOKEN" | vi secrets set access_token --backend file
  vi secrets get access_token
  vi secrets delete access_token`,
	}

	cmd.AddCommand(
		newSetCommand(),
		newGetCommand(),
		newDeleteCommand(),
		newBackendsCommand(),
	)
	return cmd
}

func newSetCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := validateKey(key); err != nil {
				return shared.NewUsageError("invalid secret key", err)
			}

			value, err := readValue(cmd)
			if err != nil {
				return fmt.Errorf("reading secret value: %w", err)
			}
			if value == "" {
				return shared.NewUsageError("secret value cannot be empty", nil)
			}

			resolver, err := newResolver()
			if err != nil {
				return err
			}
			if err := resolver.Set(cmd.Context(), key, value, backend); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Stored secret %s\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "Target backend (keychain, file)")
	return cmd
}

func newGetCommand() *cobra.Command {
	var unmask bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Show a secret, masked unless --unmask is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver()
			if err != nil {
				return err
			}
			value, err := resolver.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !unmask {
				value = log.SanitizeAPIKey(value)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unmask, "unmask", false, "Print the full value")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a secret from every writable backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver()
			if err != nil {
				return err
			}
			if err := resolver.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Deleted secret %s\n", args[0])
			return nil
		},
	}
}

type backendInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	ReadOnly bool   `json:"read_only"`
}

func newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List available secret backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolver, err := newResolver()
			if err != nil {
				return err
			}
			var out []backendInfo
			for _, b := range resolver.Backends() {
				ro, ok := b.(secrets.ReadOnlyBackend)
				out = append(out, backendInfo{
					Name:     b.Name(),
					Priority: b.Priority(),
					ReadOnly: ok && ro.ReadOnly(),
				})
			}
			return shared.PrintResult(cmd, out)
		},
	}
}

// readValue reads a hidden value from a terminal, or all of a piped stdin.
func readValue(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter secret value (hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("secret key cannot be empty")
	}
	if strings.ContainsAny(key, " \t\n") {
		return errors.New("secret key cannot contain whitespace")
	}
	return nil
}
