// Package agents runs the second-stage analysis: a diagnostician followed by a treatment advisor, each a
// prompt against a text model, optionally grounded with web-search results.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skufu/radiolens/internal/logging"
	"github.com/Skufu/radiolens/internal/report"
	"github.com/Skufu/radiolens/internal/search"
)

var logger = logging.Logger(logging.SourceAI)

var ErrEmptyReport = errors.New("report text is empty")

// Completer runs one prompt under a system instruction.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Agent is one stage of the pipeline.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
}

func (a Agent) system() string {
	return fmt.Sprintf("You are the %s.\nGoal: %s\n%s", a.Role, a.Goal, a.Backstory)
}

var diagnostician = Agent{
	Role:      "General Medical Diagnostician",
	Goal:      "Understand and classify the medical report, then determine top 5 possible diagnoses with reasoning and reference links.",
	Backstory: "You're a highly experienced physician with medical knowledge. You understand all types of medical reports: radiology, pathology, lab tests, and summaries. Provide detailed analysis based on medical knowledge and the reference material you are given.",
}

var treatmentAdvisor = Agent{
	Role:      "Treatment and Prescription Recommender",
	Goal:      "For each diagnosis, suggest relevant medications, ointments, or procedures using clinical knowledge and the reference material you are given.",
	Backstory: "You're a medical treatment specialist. You recommend treatment plans (medications, ointments, physiotherapy, etc.) and provide dosage based on diagnosis and established medical protocols.",
}

// Pipeline runs the diagnostician and then the treatment advisor.
type Pipeline struct {
	llm      Completer
	searcher search.Searcher
}

// New creates a pipeline. searcher may be nil, in which case the agents rely on model knowledge alone.
func New(llm Completer, searcher search.Searcher) *Pipeline {
	return &Pipeline{llm: llm, searcher: searcher}
}

// Run analyses reportText. condition, when set, is looked up first and handed to both agents.
func (p *Pipeline) Run(ctx context.Context, reportText, condition string) (string, error) {
	reportText = strings.TrimSpace(reportText)
	if reportText == "" {
		return "", ErrEmptyReport
	}

	references := p.references(ctx, condition)

	diagnosisPrompt := diagnosisTask(reportText, references)
	diagnoses, err := p.llm.Complete(ctx, diagnostician.system(), diagnosisPrompt)
	if err != nil {
		return "", fmt.Errorf("diagnosis agent: %w", err)
	}
	logger.Info("diagnosis agent finished", "chars", len(diagnoses))

	treatmentPrompt := treatmentTask(reportText, diagnoses, references)
	treatments, err := p.llm.Complete(ctx, treatmentAdvisor.system(), treatmentPrompt)
	if err != nil {
		return "", fmt.Errorf("treatment agent: %w", err)
	}
	logger.Info("treatment agent finished", "chars", len(treatments))

	return "DIAGNOSIS ANALYSIS:\n" + strings.TrimSpace(diagnoses) +
		"\n\nTREATMENT RECOMMENDATIONS:\n" + strings.TrimSpace(treatments), nil
}

func (p *Pipeline) references(ctx context.Context, condition string) string {
	condition = strings.TrimSpace(condition)
	if p.searcher == nil || condition == "" {
		return ""
	}

	resp, err := p.searcher.Search(ctx, condition+" diagnosis treatment")
	if err != nil {
		logger.Warn("agent reference search failed", "provider", p.searcher.Name(), "error", err)
		return ""
	}

	var sb strings.Builder
	for _, r := range resp.Results {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}

func diagnosisTask(reportText, references string) string {
	var sb strings.Builder
	sb.WriteString("Analyze this medical report, identify the report category, and provide the top 5 most likely diagnoses with reasoning.\n")
	if references != "" {
		sb.WriteString("Use the web search results below for additional medical information.\n")
	} else {
		sb.WriteString("Use your medical knowledge for comprehensive analysis.\n")
	}
	sb.WriteString("Expected output: list of 5 possible diagnoses with supporting explanation for each in detail, including relevant medical references where possible.\n\n")
	sb.WriteString("Report:\n")
	sb.WriteString(reportText)
	writeReferences(&sb, references)
	return sb.String()
}

func treatmentTask(reportText, diagnoses, references string) string {
	var sb strings.Builder
	sb.WriteString("Based on the diagnoses, recommend medications or therapies with dosage.\n")
	if references != "" {
		sb.WriteString("Use the web search results below to support choices and provide comprehensive treatment plans.\n")
	} else {
		sb.WriteString("Use established medical protocols to provide comprehensive treatment plans.\n")
	}
	sb.WriteString("Expected output: detailed list of medicines/treatments per diagnosis with usage instructions, medicine names, dosages, and reference information for each treatment plan.\n\n")
	sb.WriteString("Report:\n")
	sb.WriteString(reportText)
	sb.WriteString("\n\nDiagnoses:\n")
	sb.WriteString(diagnoses)
	writeReferences(&sb, references)
	return sb.String()
}

func writeReferences(sb *strings.Builder, references string) {
	if references == "" {
		return
	}
	sb.WriteString("\n\nWeb search results:\n")
	sb.WriteString(references)
}

// BuildReportText assembles the agent input from an initial parsed analysis.
func BuildReportText(rep report.Report) string {
	condition := rep.DiagnosedCondition
	if condition == "" {
		condition = "Not specified"
	}

	return fmt.Sprintf(`Medical Image Analysis Report:

Detected Condition: %s

Detailed Analysis: %s

Analysis Report: %s

Initial Recommendations: %s`,
		condition,
		rep.Section("detailed_analysis"),
		rep.Section(report.KeyAnalysisReport),
		rep.Section("recommendations"),
	)
}

// Fallback is the basic report returned when the pipeline fails.
func Fallback(reportText string, cause error) string {
	return fmt.Sprintf(`Medical Analysis Report:

DIAGNOSIS ANALYSIS:
Based on the provided medical report, here are the key findings:

%s

TREATMENT RECOMMENDATIONS:
1. Consult with a healthcare professional for proper diagnosis
2. Follow standard medical protocols for the identified condition
3. Consider appropriate medications as prescribed by a physician
4. Monitor symptoms and follow up as recommended

Note: This is a basic analysis because the specialist agents were unavailable.

ERROR DETAILS: %v`, reportText, cause)
}
