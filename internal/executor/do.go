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

package executor

import (
	"context"

	"github.com/tombee/videoindexer/internal/apierr"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/response"
)

// Do executes spec and parses the 2xx body into a T.
func Do[T any](ctx context.Context, e *Executor, spec RequestSpec) (T, error) {
	body, requestID, err := e.execute(ctx, spec)
	if err != nil {
		var zero T
		return zero, err
	}

	v, err := response.Parse[T](e.parser, body)
	if err != nil {
		if apiErr, ok := apierr.As(err); ok {
			apiErr.RequestID = requestID
		}
		e.logger.WarnContext(ctx, "response not understood",
			log.MethodKey, spec.Method,
			log.ClientRequestIDKey, requestID,
			"error", err.Error(),
		)
		var zero T
		return zero, err
	}
	return v, nil
}

// DoNoContent executes spec and discards the body. It suits DELETE and
// other calls whose success carries no payload.
func (e *Executor) DoNoContent(ctx context.Context, spec RequestSpec) error {
	_, _, err := e.execute(ctx, spec)
	return err
}
