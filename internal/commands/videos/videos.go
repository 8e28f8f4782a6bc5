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

// Package videos implements the videos command group.
package videos

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/videoindexer/internal/commands/shared"
	"github.com/tombee/videoindexer/internal/videoindexer"
)

// NewCommand creates the videos command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List, inspect and manage indexed videos",
	}
	cmd.AddCommand(
		newListCommand(),
		newGetCommand(),
		newDeleteCommand(),
		newRenameCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	var (
		pageSize     int
		skip         int
		createdAfter string
		states       []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List videos in the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := &videoindexer.ListOptions{States: states}
			if cmd.Flags().Changed("page-size") {
				opts.PageSize = &pageSize
			}
			if cmd.Flags().Changed("skip") {
				opts.Skip = &skip
			}
			if createdAfter != "" {
				t, err := time.Parse(time.RFC3339, createdAfter)
				if err != nil {
					return shared.NewUsageError("--created-after must be RFC3339", err)
				}
				opts.CreatedAfter = &t
			}

			return shared.WithApp(cmd.Context(), func(app *shared.App) error {
				list, err := app.Client.Videos().List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return shared.PrintResult(cmd, list)
			})
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 25, "Number of videos per page")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of videos to skip")
	cmd.Flags().StringVar(&createdAfter, "created-after", "", "Only videos created after this RFC3339 time")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by processing state (repeatable)")
	return cmd
}

func newGetCommand() *cobra.Command {
	var (
		language    string
		reTranslate bool
		streaming   bool
		summarized  bool
	)

	cmd := &cobra.Command{
		Use:   "get <video-id>",
		Short: "Show the index of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &videoindexer.GetIndexOptions{}
			if language != "" {
				opts.Language = &language
			}
			if cmd.Flags().Changed("retranslate") {
				opts.ReTranslate = &reTranslate
			}
			if cmd.Flags().Changed("streaming-urls") {
				opts.IncludeStreamingURLs = &streaming
			}
			if cmd.Flags().Changed("summarized-insights") {
				opts.IncludeSummarizedInsights = &summarized
			}

			return shared.WithApp(cmd.Context(), func(app *shared.App) error {
				idx, err := app.Client.Videos().GetIndex(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return shared.PrintResult(cmd, idx)
			})
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Translate insights into this language")
	cmd.Flags().BoolVar(&reTranslate, "retranslate", false, "Force retranslation")
	cmd.Flags().BoolVar(&streaming, "streaming-urls", false, "Include streaming URLs")
	cmd.Flags().BoolVar(&summarized, "summarized-insights", true, "Include summarized insights")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <video-id>",
		Short: "Delete a video and its insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithApp(cmd.Context(), func(app *shared.App) error {
				if err := app.Client.Videos().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Deleted video %s\n", args[0])
				return nil
			})
		},
	}
}

func newRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <video-id> <name>",
		Short: "Change the display name of a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.WithApp(cmd.Context(), func(app *shared.App) error {
				idx, err := app.Client.Videos().UpdateName(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return shared.PrintResult(cmd, idx)
			})
		},
	}
}
