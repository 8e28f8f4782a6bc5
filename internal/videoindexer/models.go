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
	"fmt"
	"time"
)

// Account is the account record returned by GET {location}/Accounts/{id}.
type Account struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name"`
	Location    string         `json:"location"`
	AccountType string         `json:"accountType"`
	URL         string         `json:"url"`
	Limits      *AccountLimits `json:"limits,omitempty"`
}

// AccountLimits are the quota figures reported with an account.
type AccountLimits struct {
	MaxUploadFileSizeInBytes int64 `json:"maxUploadFileSizeInBytes"`
	MaxNumberOfVideos        int   `json:"maxNumberOfVideos"`
}

// Video is one entry of a video list.
type Video struct {
	AccountID          string    `json:"accountId"`
	ID                 string    `json:"id" validate:"required"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Created            time.Time `json:"created"`
	LastModified       time.Time `json:"lastModified"`
	State              string    `json:"state"`
	ProcessingProgress string    `json:"processingProgress,omitempty"`
	DurationInSeconds  int       `json:"durationInSeconds"`
	ThumbnailID        string    `json:"thumbnailId,omitempty"`
}

// NextPage describes how to fetch the following page of a list.
type NextPage struct {
	PageSize int  `json:"pageSize"`
	Skip     int  `json:"skip"`
	Done     bool `json:"done"`
}

// VideoList is a page of videos.
type VideoList struct {
	Results  []Video  `json:"results"`
	NextPage NextPage `json:"nextPage"`
}

// Validate rejects a page that is neither done nor carries results.
func (l VideoList) Validate() error {
	if l.Results == nil && !l.NextPage.Done {
		return fmt.Errorf("list has no results and is not marked done")
	}
	return nil
}

// VideoIndex is the insight document of a video.
type VideoIndex struct {
	AccountID string         `json:"accountId"`
	ID        string         `json:"id" validate:"required"`
	Name      string         `json:"name"`
	State     string         `json:"state"`
	Created   time.Time      `json:"created"`
	Duration  string         `json:"duration,omitempty"`
	Videos    []IndexedVideo `json:"videos"`

	// SummarizedInsights is kept undecoded; its shape varies by preset.
	SummarizedInsights map[string]any `json:"summarizedInsights,omitempty"`
}

// IndexedVideo is one processed video inside an index.
type IndexedVideo struct {
	ID                 string         `json:"id"`
	State              string         `json:"state"`
	Language           string         `json:"language,omitempty"`
	ProcessingProgress string         `json:"processingProgress,omitempty"`
	Insights           map[string]any `json:"insights,omitempty"`
}

// PatchOperation is one JSON Patch (RFC 6902) operation.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}
