package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Skufu/radiolens/internal/report"
	"github.com/Skufu/radiolens/internal/search"
)

type call struct {
	system string
	prompt string
}

type fakeLLM struct {
	replies []string
	err     error
	calls   []call
}

func (f *fakeLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls = append(f.calls, call{system: system, prompt: prompt})
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type fakeSearcher struct {
	query string
	err   error
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(ctx context.Context, query string) (*search.Response, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return &search.Response{
		Query:   query,
		Results: []search.Result{{Title: "Fracture care", URL: "https://example.org", Snippet: "Splint it"}},
	}, nil
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	llm := &fakeLLM{replies: []string{"1. Distal radius fracture", "Cast for 6 weeks"}}
	searcher := &fakeSearcher{}

	out, err := New(llm, searcher).Run(context.Background(), "report body", "Distal radius fracture")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(llm.calls) != 2 {
		t.Fatalf("expected two agent calls, got %d", len(llm.calls))
	}
	if !strings.Contains(llm.calls[0].system, "General Medical Diagnostician") {
		t.Fatalf("first stage should be the diagnostician, got %q", llm.calls[0].system)
	}
	if !strings.Contains(llm.calls[1].system, "Treatment and Prescription Recommender") {
		t.Fatalf("second stage should be the treatment advisor, got %q", llm.calls[1].system)
	}
	if !strings.Contains(llm.calls[1].prompt, "1. Distal radius fracture") {
		t.Fatal("treatment prompt should include the diagnoses")
	}
	for _, c := range llm.calls {
		if !strings.Contains(c.prompt, "Splint it") {
			t.Fatalf("expected search references in prompt %q", c.prompt)
		}
	}
	if searcher.query != "Distal radius fracture diagnosis treatment" {
		t.Fatalf("unexpected search query %q", searcher.query)
	}
	if !strings.Contains(out, "DIAGNOSIS ANALYSIS:\n1. Distal radius fracture") || !strings.Contains(out, "TREATMENT RECOMMENDATIONS:\nCast for 6 weeks") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPipelineWithoutSearch(t *testing.T) {
	llm := &fakeLLM{replies: []string{"d", "t"}}

	if _, err := New(llm, nil).Run(context.Background(), "report", "Gout"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(llm.calls[0].prompt, "Use your medical knowledge") {
		t.Fatalf("expected knowledge-only instructions, got %q", llm.calls[0].prompt)
	}
}

func TestPipelineSearchFailureIsIgnored(t *testing.T) {
	llm := &fakeLLM{replies: []string{"d", "t"}}

	if _, err := New(llm, &fakeSearcher{err: errors.New("quota")}).Run(context.Background(), "report", "Gout"); err != nil {
		t.Fatalf("expected search failure to be tolerated, got %v", err)
	}
	if strings.Contains(llm.calls[0].prompt, "Web search results") {
		t.Fatal("did not expect references after a failed search")
	}
}

func TestPipelineErrors(t *testing.T) {
	if _, err := New(&fakeLLM{}, nil).Run(context.Background(), "  ", ""); !errors.Is(err, ErrEmptyReport) {
		t.Fatalf("expected ErrEmptyReport, got %v", err)
	}

	boom := errors.New("model down")
	_, err := New(&fakeLLM{err: boom}, nil).Run(context.Background(), "report", "")
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "diagnosis agent") {
		t.Fatalf("expected wrapped diagnosis error, got %v", err)
	}
}

func TestBuildReportText(t *testing.T) {
	profile, _ := report.DefaultProfiles().Get(report.ProfileComprehensive)
	rep := report.NewParser(profile).Parse("**Detailed Analysis**: da\n**Analysis Report**: ar\n**Recommendations**: rec")

	text := BuildReportText(rep)
	for _, want := range []string{"Detected Condition: Not specified", "Detailed Analysis: da", "Analysis Report: ar", "Initial Recommendations: rec"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}

func TestFallback(t *testing.T) {
	out := Fallback("findings", errors.New("timeout"))
	if !strings.Contains(out, "findings") || !strings.Contains(out, "ERROR DETAILS: timeout") {
		t.Fatalf("unexpected fallback %q", out)
	}
}
