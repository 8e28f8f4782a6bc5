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
	"strings"
	"time"

	"github.com/tombee/videoindexer/internal/apierr"
	"github.com/tombee/videoindexer/internal/uri"
	vierrors "github.com/tombee/videoindexer/pkg/errors"
)

// GetIndexOptions are the optional parameters of VideosService.GetIndex.
type GetIndexOptions struct {
	Language                  *string
	ReTranslate               *bool
	IncludeStreamingURLs      *bool
	IncludeSummarizedInsights *bool
}

// ListOptions are the optional parameters of VideosService.List.
type ListOptions struct {
	PageSize     *int
	Skip         *int
	CreatedAfter *time.Time
	States       []string
}

// VideosService accesses the videos of the account.
type VideosService struct {
	client *Client
}

// GetIndex returns the insight index of a video.
func (s *VideosService) GetIndex(ctx context.Context, videoID string, opts *GetIndexOptions) (VideoIndex, error) {
	if err := validateVideoID(videoID); err != nil {
		return VideoIndex{}, err
	}
	if opts == nil {
		opts = &GetIndexOptions{}
	}

	q := uri.NewQuery().
		SetString("language", opts.Language).
		SetBool("reTranslate", opts.ReTranslate).
		SetBool("includeStreamingUrls", opts.IncludeStreamingURLs).
		SetBool("includeSummarizedInsights", opts.IncludeSummarizedInsights)

	spec, err := s.client.newSpec(ctx, http.MethodGet, q, "Videos", uri.Segment(videoID), "Index")
	if err != nil {
		return VideoIndex{}, err
	}
	index, err := do[VideoIndex](ctx, s.client, spec)
	return index, notFound(err, videoID)
}

// List returns one page of videos.
func (s *VideosService) List(ctx context.Context, opts *ListOptions) (VideoList, error) {
	if opts == nil {
		opts = &ListOptions{}
	}

	q := uri.NewQuery().
		SetInt("pageSize", opts.PageSize).
		SetInt("skip", opts.Skip).
		SetTime("createdAfter", opts.CreatedAfter).
		SetList("state", opts.States)

	spec, err := s.client.newSpec(ctx, http.MethodGet, q, "Videos")
	if err != nil {
		return VideoList{}, err
	}
	return do[VideoList](ctx, s.client, spec)
}

// Delete removes a video and its insights.
func (s *VideosService) Delete(ctx context.Context, videoID string) error {
	if err := validateVideoID(videoID); err != nil {
		return err
	}
	spec, err := s.client.newSpec(ctx, http.MethodDelete, nil, "Videos", uri.Segment(videoID))
	if err != nil {
		return err
	}
	err = s.client.exec.DoNoContent(ctx, spec)
	if err != nil {
		s.client.observe(ctx, err)
	}
	return notFound(err, videoID)
}

// UpdateName renames a video and returns the updated index.
func (s *VideosService) UpdateName(ctx context.Context, videoID, name string) (VideoIndex, error) {
	if err := validateVideoID(videoID); err != nil {
		return VideoIndex{}, err
	}
	if strings.TrimSpace(name) == "" {
		return VideoIndex{}, &vierrors.ValidationError{
			Field:      "name",
			Message:    "must not be empty",
			Suggestion: "Provide the new video name",
		}
	}

	spec, err := s.client.newSpec(ctx, http.MethodPatch, nil, "Videos", uri.Segment(videoID), "Index")
	if err != nil {
		return VideoIndex{}, err
	}
	if err := spec.WithJSONBody([]PatchOperation{{Op: "replace", Path: "/name", Value: name}}); err != nil {
		return VideoIndex{}, err
	}
	index, err := do[VideoIndex](ctx, s.client, spec)
	return index, notFound(err, videoID)
}

func validateVideoID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &vierrors.ValidationError{
			Field:      "video_id",
			Message:    "must not be empty",
			Suggestion: "Run 'vi videos list' to find video ids",
		}
	}
	return nil
}

// notFound turns a 404 into a NotFoundError that still wraps the API error.
func notFound(err error, videoID string) error {
	if err != nil && apierr.IsStatus(err, http.StatusNotFound) {
		return &vierrors.NotFoundError{Resource: "video", ID: videoID, Cause: err}
	}
	return err
}
