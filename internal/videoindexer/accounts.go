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

package videoindexer

import (
	"context"
	"net/http"

	"github.com/tombee/videoindexer/internal/apierr"
	"github.com/tombee/videoindexer/internal/log"
	"github.com/tombee/videoindexer/internal/memo"
	vierrors "github.com/tombee/videoindexer/pkg/errors"
)

// AccountsService reads the account the client is bound to.
type AccountsService struct {
	client *Client
	cell   *memo.Cell[Account]
}

// Current returns the account record, fetching it on first use. Concurrent
// first calls share one request and failures are not remembered.
func (s *AccountsService) Current(ctx context.Context) (Account, error) {
	return s.cell.Get(ctx, s.fetch)
}

// Refresh drops the remembered account and fetches it again.
func (s *AccountsService) Refresh(ctx context.Context) (Account, error) {
	s.cell.Invalidate()
	return s.Current(ctx)
}

func (s *AccountsService) fetch(ctx context.Context) (Account, error) {
	c := s.client
	spec, err := c.newSpec(ctx, http.MethodGet, nil)
	if err != nil {
		return Account{}, err
	}

	account, err := do[Account](ctx, c, spec)
	if err != nil {
		if apierr.IsStatus(err, http.StatusNotFound) {
			return Account{}, &vierrors.NotFoundError{Resource: "account", ID: c.accountID, Cause: err}
		}
		return Account{}, err
	}

	c.logger.DebugContext(ctx, "account loaded", log.AccountKey, account.ID)
	return account, nil
}
