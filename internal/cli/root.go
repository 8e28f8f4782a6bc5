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

// Package cli builds the vi root command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/videoindexer/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vi",
		Short: "vi - command-line access to a video indexing service",
		Long: `vi reads and manages videos and insights in a video indexing account.

Configure the account with ~/.config/videoindexer/config.yaml or the
VIDEOINDEXER_* environment variables, then store a token with
'vi secrets set access_token'.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	config, logLevel, query, trace := shared.RegisterFlagPointers()

	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/videoindexer/config.yaml)")
	cmd.PersistentFlags().StringVar(logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(query, "query", "q", "", "jq expression applied to JSON output")
	cmd.PersistentFlags().BoolVar(trace, "trace", false, "Print request spans to stderr")

	return cmd
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
