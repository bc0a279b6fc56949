// Package provider talks to the outside world: the search and scrape API,
// saved-search feeds and the per-domain fetch throttle.
package provider

import (
	"errors"
	"net/http"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrMissingAPIKey is returned when a client is built without credentials.
var ErrMissingAPIKey = errors.New("search api key is not configured")

// Result is one search hit or feed entry.
type Result struct {
	URL      string
	Title    string
	Snippet  string
	Markdown string
}

// Page is the content of a scraped URL.
type Page struct {
	URL      string
	Title    string
	Markdown string
	HTML     string
}

const maxBody = 5 * 1024 * 1024
