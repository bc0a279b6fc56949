package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedReader downloads and parses saved-search RSS and Atom feeds.
type FeedReader struct {
	client  HTTPClient
	timeout time.Duration
}

// NewFeedReader creates a FeedReader with the given HTTP client.
func NewFeedReader(client HTTPClient) *FeedReader {
	return &FeedReader{
		client:  client,
		timeout: 10 * time.Second,
	}
}

// Fetch downloads and parses the feed at url.
func (f *FeedReader) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "DealerHunt/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// Read fetches url and returns its entries as search results.
func (f *FeedReader) Read(ctx context.Context, url string) ([]Result, error) {
	feed, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", url, err)
	}
	return FeedResults(feed.Items), nil
}

// FeedResults maps feed items with a link onto search results.
func FeedResults(items []*gofeed.Item) []Result {
	var out []Result
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		snippet := item.Description
		if snippet == "" {
			snippet = item.Content
		}
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		out = append(out, Result{URL: link, Title: strings.TrimSpace(item.Title), Snippet: snippet})
	}
	return out
}
