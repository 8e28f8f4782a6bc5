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

// Package account implements the account command.
package account

import (
	"github.com/spf13/cobra"

	"github.com/tombee/videoindexer/internal/commands/shared"
)

// NewCommand creates the account command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the configured account",
		Long: `Fetch the account the CLI is configured for, including its
region, type and quota limits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return shared.WithApp(cmd.Context(), func(app *shared.App) error {
				acct, err := app.Client.Accounts().Current(cmd.Context())
				if err != nil {
					return err
				}
				return shared.PrintResult(cmd, acct)
			})
		},
	}
}
