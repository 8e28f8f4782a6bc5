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
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/videoindexer/internal/jq"
)

var outputJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintResult applies the --query filter to v and writes it as JSON,
// indented when stdout is a terminal and compact otherwise.
func PrintResult(cmd *cobra.Command, v any) error {
	filter, err := jq.Compile(GetQuery(), 0, 0)
	if err != nil {
		return NewUsageError("invalid --query", err)
	}
	out, err := filter.Apply(cmd.Context(), v)
	if err != nil {
		return fmt.Errorf("applying --query: %w", err)
	}
	return WriteJSON(cmd.OutOrStdout(), out, isTerminal(cmd.OutOrStdout()))
}

// WriteJSON writes v followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = outputJSON.MarshalIndent(v, "", "  ")
	} else {
		data, err = outputJSON.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
