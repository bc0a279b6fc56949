package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls a Firecrawl-compatible search and scrape API.
type Client struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	// WaitFor is the render delay requested for scraped pages.
	WaitFor time.Duration
	// Timeout bounds each provider-side page fetch.
	Timeout time.Duration
}

// NewClient creates a Client. An empty apiKey is a configuration error.
func NewClient(client HTTPClient, baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		WaitFor: 2 * time.Second,
		Timeout: 10 * time.Second,
	}, nil
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	WaitFor         int64    `json:"waitFor,omitempty"`
	Timeout         int64    `json:"timeout,omitempty"`
}

type searchRequest struct {
	Query         string         `json:"query"`
	Limit         int            `json:"limit"`
	Country       string         `json:"country"`
	Location      string         `json:"location,omitempty"`
	ScrapeOptions *scrapeOptions `json:"scrapeOptions,omitempty"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Markdown    string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

type scrapeRequest struct {
	URL string `json:"url"`
	scrapeOptions
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// Search runs a free-text query restricted to Australian results. An empty
// result set is not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	req := searchRequest{
		Query:   query,
		Limit:   limit,
		Country: "au",
		ScrapeOptions: &scrapeOptions{
			Formats: []string{"markdown"},
			WaitFor: c.WaitFor.Milliseconds(),
			Timeout: c.Timeout.Milliseconds(),
		},
	}
	var resp searchResponse
	if err := c.post(ctx, "/v1/search", req, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("search %q: %s", query, resp.Error)
	}

	out := make([]Result, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL == "" {
			continue
		}
		out = append(out, Result{URL: d.URL, Title: d.Title, Snippet: d.Description, Markdown: d.Markdown})
	}
	return out, nil
}

// Scrape fetches a single page as markdown and HTML.
func (c *Client) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	req := scrapeRequest{
		URL: pageURL,
		scrapeOptions: scrapeOptions{
			Formats: []string{"markdown", "html"},
			WaitFor: c.WaitFor.Milliseconds(),
			Timeout: c.Timeout.Milliseconds(),
		},
	}
	var resp scrapeResponse
	if err := c.post(ctx, "/v1/scrape", req, &resp); err != nil {
		return nil, fmt.Errorf("scrape %s: %w", pageURL, err)
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("scrape %s: %s", pageURL, resp.Error)
	}
	if resp.Data.Markdown == "" && resp.Data.HTML == "" {
		return nil, fmt.Errorf("scrape %s: empty body", pageURL)
	}
	return &Page{
		URL:      pageURL,
		Title:    resp.Data.Metadata.Title,
		Markdown: resp.Data.Markdown,
		HTML:     resp.Data.HTML,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
