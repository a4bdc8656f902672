package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const tavilyURL = "https://api.tavily.com/search"

// Trusted consumer-health sites the Tavily search is restricted to.
var medicalDomains = []string{"mayoclinic.org", "webmd.com", "healthline.com", "medlineplus.gov"}

// Tavily queries the Tavily search API.
type Tavily struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewTavily creates a Tavily client.
func NewTavily(apiKey string) (*Tavily, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily: %w", ErrAPIKeyRequired)
	}
	return &Tavily{
		apiKey:   apiKey,
		endpoint: tavilyURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithEndpoint points the client at another base URL.
func (t *Tavily) WithEndpoint(endpoint string) *Tavily {
	cp := *t
	cp.endpoint = endpoint
	return &cp
}

// Name identifies the provider.
func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeImages  bool     `json:"include_images"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Snippet string `json:"snippet"`
		URL     string `json:"url"`
	} `json:"results"`
}

// Search looks up the condition together with treatment and symptom keywords.
func (t *Tavily) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	payload := tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query + " medical condition treatment symptoms",
		SearchDepth:    "basic",
		IncludeAnswer:  true,
		IncludeImages:  false,
		MaxResults:     5,
		IncludeDomains: medicalDomains,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Info("tavily search", "query", query)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tavily response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily search failed with status: %d, response: %s", resp.StatusCode, errorSnippet(body))
	}

	var data tavilyResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(data.Results))
	for _, item := range data.Results {
		snippet := item.Content
		if snippet == "" {
			snippet = item.Snippet
		}
		results = append(results, Result{
			Title:   orDefault(item.Title, noTitle),
			Snippet: orDefault(snippet, noContent),
			URL:     orDefault(item.URL, noURL),
		})
	}

	logger.Info("tavily search finished", "query", query, "results", len(results))

	return &Response{
		Query:        query,
		Results:      results,
		Answer:       orDefault(data.Answer, noAnswer),
		TotalResults: len(results),
	}, nil
}
