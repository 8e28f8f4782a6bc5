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

// Package secrets resolves the access token and other credentials used by
// the client.
//
// Secrets are looked up by key (for example "access_token" or
// "accounts/abc-123/access_token") through a chain of backends queried in
// priority order:
//
//   - env (100): VIDEOINDEXER_SECRET_<KEY>, read-only
//   - keychain (50): the system keyring under the service "videoindexer"
//   - file (25): an AES-256-GCM encrypted file keyed by VIDEOINDEXER_MASTER_KEY
//
// Values returned here must never be logged. Pass them to the executor as
// the Secret of a request, which masks them.
package secrets
