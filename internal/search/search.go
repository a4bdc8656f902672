// Package search looks up a diagnosed condition on web-search APIs.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Skufu/radiolens/internal/logging"
)

var logger = logging.Logger(logging.SourceSearch)

var (
	ErrAPIKeyRequired = errors.New("search API key is required")
	ErrEmptyQuery     = errors.New("search query is empty")
	ErrBodyTooLarge   = errors.New("search response is too large")
)

// Provider responses are read up to maxBodyBytes; error statuses quote at most maxErrorBytes of the body.
const (
	maxBodyBytes  = 2 << 20
	maxErrorBytes = 512
)

func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}
	return body, nil
}

func errorSnippet(body []byte) string {
	if len(body) > maxErrorBytes {
		return string(body[:maxErrorBytes]) + "..."
	}
	return string(body)
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Response is what callers get back from a search, shaped for the API response.
type Response struct {
	Query        string   `json:"query"`
	Results      []Result `json:"results"`
	Answer       string   `json:"answer,omitempty"`
	TotalResults int      `json:"total_results"`
}

// Searcher runs a web search for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*Response, error)
	Name() string
}

// Placeholders for fields a provider left out.
const (
	noTitle   = "No title"
	noContent = "No content available"
	noURL     = "No URL"
	noAnswer  = "No direct answer available"
)

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
