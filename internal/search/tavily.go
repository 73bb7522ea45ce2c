// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package search gives the setup agent a web search collaborator.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Searcher runs one query and returns the results serialized to text,
// ready to be used as an observation.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

const defaultEndpoint = "https://api.tavily.com/search"

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	maxResults int
}

// NewTavilyClient creates a search client. maxResults caps how many hits
// one query returns.
func NewTavilyClient(apiKey string, maxResults int) *TavilyClient {
	if maxResults < 1 {
		maxResults = 3
	}
	return &TavilyClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		maxResults: maxResults,
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Search runs the query and returns the result list as compact JSON.
func (c *TavilyClient) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: c.maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search returned status %d: %s", resp.StatusCode, data)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	out, err := json.Marshal(parsed.Results)
	if err != nil {
		return "", fmt.Errorf("failed to encode search results: %w", err)
	}
	return string(out), nil
}
