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

const serperURL = "https://google.serper.dev/search"

// Serper queries the Serper Google search API. The agent pipeline uses it for reference material.
type Serper struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerper creates a Serper client.
func NewSerper(apiKey string) (*Serper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serper: %w", ErrAPIKeyRequired)
	}
	return &Serper{
		apiKey:   apiKey,
		endpoint: serperURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithEndpoint points the client at another base URL.
func (s *Serper) WithEndpoint(endpoint string) *Serper {
	cp := *s
	cp.endpoint = endpoint
	return &cp
}

// Name identifies the provider.
func (s *Serper) Name() string { return "serper" }

type serperResponse struct {
	AnswerBox *struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search runs a plain Google search for query.
func (s *Serper) Search(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	jsonBody, err := json.Marshal(map[string]any{"q": query, "num": 5})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	logger.Info("serper search", "query", query)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read serper response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper search failed with status: %d, response: %s", resp.StatusCode, errorSnippet(body))
	}

	var data serperResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode serper response: %w", err)
	}

	results := make([]Result, 0, len(data.Organic))
	for _, item := range data.Organic {
		results = append(results, Result{
			Title:   orDefault(item.Title, noTitle),
			Snippet: orDefault(item.Snippet, noContent),
			URL:     orDefault(item.Link, noURL),
		})
	}

	answer := ""
	if data.AnswerBox != nil {
		answer = orDefault(data.AnswerBox.Answer, data.AnswerBox.Snippet)
	}

	return &Response{
		Query:        query,
		Results:      results,
		Answer:       orDefault(answer, noAnswer),
		TotalResults: len(results),
	}, nil
}
