package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTavilySearch(t *testing.T) {
	var got tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"","results":[{"title":"Pneumonia - Mayo Clinic","content":"Pneumonia is an infection","url":"https://mayoclinic.org/p"},{"snippet":"fallback snippet"}]}`))
	}))
	defer server.Close()

	client, err := NewTavily("key")
	if err != nil {
		t.Fatalf("NewTavily: %v", err)
	}

	resp, err := client.WithEndpoint(server.URL).Search(context.Background(), " Pneumonia ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got.Query != "Pneumonia medical condition treatment symptoms" {
		t.Fatalf("unexpected query %q", got.Query)
	}
	if got.APIKey != "key" || got.MaxResults != 5 || !got.IncludeAnswer || len(got.IncludeDomains) != 4 {
		t.Fatalf("unexpected payload %+v", got)
	}

	if resp.Query != "Pneumonia" || resp.TotalResults != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Answer != noAnswer {
		t.Fatalf("expected placeholder answer, got %q", resp.Answer)
	}
	if resp.Results[0].Snippet != "Pneumonia is an infection" {
		t.Fatalf("unexpected first result %+v", resp.Results[0])
	}
	second := resp.Results[1]
	if second.Title != noTitle || second.Snippet != "fallback snippet" || second.URL != noURL {
		t.Fatalf("unexpected defaults %+v", second)
	}
}

func TestTavilyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer server.Close()

	client, _ := NewTavily("key")
	_, err := client.WithEndpoint(server.URL).Search(context.Background(), "asthma")
	if err == nil || !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestErrorStatusQuotesBoundedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 4*maxErrorBytes)))
	}))
	defer server.Close()

	client, _ := NewSerper("key")
	_, err := client.WithEndpoint(server.URL).Search(context.Background(), "asthma")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
	if strings.Count(err.Error(), "x") > maxErrorBytes {
		t.Fatalf("expected error body to be truncated, got %d bytes", len(err.Error()))
	}
}

func TestOversizedResponseIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[],"answer":"`))
		_, _ = w.Write([]byte(strings.Repeat("a", maxBodyBytes)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer server.Close()

	client, _ := NewTavily("key")
	_, err := client.WithEndpoint(server.URL).Search(context.Background(), "asthma")
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestNewClientsRequireKeys(t *testing.T) {
	if _, err := NewTavily(""); !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
	if _, err := NewSerper(""); !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
}

func TestEmptyQuery(t *testing.T) {
	client, _ := NewTavily("key")
	if _, err := client.Search(context.Background(), "  "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSerperSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "serper-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"answerBox":{"snippet":"Fractures heal in 6-8 weeks"},"organic":[{"title":"Fracture care","link":"https://example.org/f","snippet":"Cast or splint"}]}`))
	}))
	defer server.Close()

	client, _ := NewSerper("serper-key")
	resp, err := client.WithEndpoint(server.URL).Search(context.Background(), "fracture treatment")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Answer != "Fractures heal in 6-8 weeks" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://example.org/f" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
}

type memoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type countingSearcher struct {
	calls int
	err   error
}

func (c *countingSearcher) Name() string { return "fake" }

func (c *countingSearcher) Search(ctx context.Context, query string) (*Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &Response{Query: query, Results: []Result{{Title: "t"}}, TotalResults: 1}, nil
}

func TestCachedServesRepeatQueries(t *testing.T) {
	store := &memoryStore{data: map[string][]byte{}}
	next := &countingSearcher{}
	cached := NewCached(next, store, time.Hour)

	for i := 0; i < 3; i++ {
		resp, err := cached.Search(context.Background(), "Pneumonia")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if resp.TotalResults != 1 {
			t.Fatalf("unexpected response %+v", resp)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if _, ok := store.data["search:fake:pneumonia"]; !ok {
		t.Fatalf("expected normalised cache key, got %v", store.data)
	}
}

func TestCachedBypassesBrokenStore(t *testing.T) {
	store := &memoryStore{data: map[string][]byte{}, getErr: errors.New("connection refused")}
	next := &countingSearcher{}

	if _, err := NewCached(next, store, time.Hour).Search(context.Background(), "asthma"); err != nil {
		t.Fatalf("expected cache failure to be bypassed, got %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected upstream call, got %d", next.calls)
	}
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	store := &memoryStore{data: map[string][]byte{}}
	next := &countingSearcher{err: errors.New("upstream down")}

	if _, err := NewCached(next, store, time.Hour).Search(context.Background(), "asthma"); err == nil {
		t.Fatal("expected upstream error")
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing cached, got %v", store.data)
	}
}
