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

// Global flag values - set by root command
var (
	configFlag   string
	logLevelFlag string
	queryFlag    string
	traceFlag    bool

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() (config, logLevel, query *string, trace *bool) {
	return &configFlag, &logLevelFlag, &queryFlag, &traceFlag
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// GetConfigPath returns the config file path flag
func GetConfigPath() string {
	return configFlag
}

// GetLogLevel returns the log level override, if any
func GetLogLevel() string {
	return logLevelFlag
}

// GetQuery returns the jq filter applied to output
func GetQuery() string {
	return queryFlag
}

// GetTrace reports whether spans are printed to stderr
func GetTrace() bool {
	return traceFlag
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	configFlag, logLevelFlag, queryFlag, traceFlag = "", "", "", false
}
