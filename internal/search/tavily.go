// Package search provides web evidence retrieval through the Tavily API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"stocksleuth/internal/logger"
	"stocksleuth/internal/models"
)

// DefaultFinancialDomains restricts results to outlets that regularly
// carry market-moving coverage.
var DefaultFinancialDomains = []string{
	"sec.gov", "reuters.com", "bloomberg.com", "finance.yahoo.com",
	"seekingalpha.com", "marketwatch.com", "fool.com", "cnbc.com",
	"wsj.com", "ft.com",
}

// Client calls the Tavily search API with rate limiting and retries.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	searchDepth    string
	recencyDays    int
	includeDomains []string
}

// Options configures a search client. Zero values fall back to sane
// defaults.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	SearchDepth       string
	RecencyDays       int
	IncludeDomains    []string
}

// NewClient creates a Tavily search client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.tavily.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 1.0
	}
	if opts.SearchDepth == "" {
		opts.SearchDepth = "advanced"
	}
	if opts.RecencyDays == 0 {
		opts.RecencyDays = 7
	}
	if opts.IncludeDomains == nil {
		opts.IncludeDomains = DefaultFinancialDomains
	}

	return &Client{
		baseURL:        opts.BaseURL,
		apiKey:         opts.APIKey,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		maxRetries:     opts.MaxRetries,
		searchDepth:    opts.SearchDepth,
		recencyDays:    opts.RecencyDays,
		includeDomains: opts.IncludeDomains,
	}
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	Days           int      `json:"days,omitempty"`
	Topic          string   `json:"topic,omitempty"`
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Results []searchResult `json:"results"`
}

// Search executes one query and returns its results. The AI-synthesized
// answer is included when the API provides one.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*models.SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:         c.apiKey,
		Query:          query,
		MaxResults:     maxResults,
		SearchDepth:    c.searchDepth,
		IncludeAnswer:  true,
		IncludeDomains: c.includeDomains,
		Days:           c.recencyDays,
		Topic:          "news",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("search API returned status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, strategy); err != nil {
		return nil, fmt.Errorf("search failed for %q: %w", query, err)
	}

	var wire searchResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := &models.SearchResponse{
		Query:  query,
		Answer: wire.Answer,
	}
	for _, r := range wire.Results {
		out.Results = append(out.Results, models.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}
	return out, nil
}

// SearchAll executes every query and collects responses keyed by query.
// A failed query is logged and mapped to an empty response so that one
// bad search never aborts an investigation.
func (c *Client) SearchAll(ctx context.Context, queries []string, maxResults int) map[string]*models.SearchResponse {
	results := make(map[string]*models.SearchResponse, len(queries))
	for _, q := range queries {
		resp, err := c.Search(ctx, q, maxResults)
		if err != nil {
			logger.Warn("Search failed for query %q: %v", q, err)
			results[q] = &models.SearchResponse{Query: q}
			continue
		}
		results[q] = resp
	}
	return results
}
