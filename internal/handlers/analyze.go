package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Skufu/radiolens/internal/agents"
	"github.com/Skufu/radiolens/internal/archive"
	"github.com/Skufu/radiolens/internal/pdfreport"
	"github.com/Skufu/radiolens/internal/report"
	"github.com/Skufu/radiolens/internal/search"
)

const (
	noConditionMessage = "No specific medical condition identified for web search"
	searchDisabled     = "web search is not configured"

	summaryLimit = 1000
)

var errAgentsUnavailable = errors.New("agent pipeline is not configured")

// AnalyzeImage runs the vision model on an upload, parses the reply and looks up the condition.
func (h *Handler) AnalyzeImage(c *gin.Context) {
	img, ok := readImage(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	text, err := h.deps.Analyzer.AnalyzeImage(ctx, img.data, img.mimeType, h.prompts[report.ProfileImaging])
	if err != nil {
		fail(c, http.StatusInternalServerError, "Gemini API error", err)
		return
	}

	rep := h.parsers[report.ProfileImaging].Parse(text)
	logger.Info("analysis parsed", "filename", img.filename, "condition", rep.DiagnosedCondition, "warning", rep.Warning)
	if rep.Error != "" {
		capture(c, errors.New(rep.Error))
	}

	web, found := h.lookup(ctx, c, rep.DiagnosedCondition)

	resp := gin.H{
		"status":     "success",
		"filename":   img.filename,
		"analysis":   rep,
		"web_search": web,
		"disclaimer": Disclaimer,
	}

	a := archive.FromReport(archive.KindImage, img.filename, report.ProfileImaging, rep)
	a.WebSearch = found
	if id := h.saveAnalysis(ctx, a); id != "" {
		resp["id"] = id
	}

	c.JSON(http.StatusOK, resp)
}

// TestSearch runs the web search for a condition on its own.
func (h *Handler) TestSearch(c *gin.Context) {
	condition := strings.TrimSpace(c.Param("condition"))
	if h.deps.Search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": searchDisabled})
		return
	}

	results, err := h.deps.Search.Search(c.Request.Context(), condition)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fail(c, http.StatusInternalServerError, "Test search failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "search_results": results})
}

// AnalyzeMedicalImage runs the full workflow: vision model, agents and web search, then the PDF report.
func (h *Handler) AnalyzeMedicalImage(c *gin.Context) {
	img, ok := readImage(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	text, err := h.deps.Analyzer.AnalyzeImage(ctx, img.data, img.mimeType, h.prompts[report.ProfileComprehensive])
	if err != nil {
		fail(c, http.StatusInternalServerError, "Gemini API error", err)
		return
	}

	rep := h.parsers[report.ProfileComprehensive].Parse(text)
	if rep.Error != "" {
		capture(c, errors.New(rep.Error))
	}
	reportText := agents.BuildReportText(rep)

	var (
		comprehensive string
		web           any
		found         *search.Response
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		comprehensive = h.runAgents(gctx, c, reportText, rep.DiagnosedCondition)
		return nil
	})
	g.Go(func() error {
		web, found = h.lookup(gctx, c, rep.DiagnosedCondition)
		return nil
	})
	_ = g.Wait()

	name, path, err := h.deps.Reports.Save(pdfreport.Input{
		Filename:      img.filename,
		Image:         img.data,
		Analysis:      rep,
		Comprehensive: comprehensive,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, "PDF creation failed", err)
		return
	}

	resp := gin.H{
		"status":                 "success",
		"filename":               img.filename,
		"initial_analysis":       rep,
		"comprehensive_analysis": truncate(comprehensive, summaryLimit),
		"pdf_report_path":        path,
		"pdf_report":             "/download-report/" + name,
		"web_search":             web,
		"message":                "Complete medical analysis finished successfully. PDF report generated.",
		"disclaimer":             Disclaimer,
	}

	a := archive.FromReport(archive.KindComprehensive, img.filename, report.ProfileComprehensive, rep)
	a.WebSearch = found
	a.Comprehensive = comprehensive
	a.ReportFile = name
	if id := h.saveAnalysis(ctx, a); id != "" {
		resp["id"] = id
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) runAgents(ctx context.Context, c *gin.Context, reportText, condition string) string {
	if h.deps.Agents == nil {
		return agents.Fallback(reportText, errAgentsUnavailable)
	}

	out, err := h.deps.Agents.Run(ctx, reportText, condition)
	if err != nil {
		logger.Error("agent pipeline failed", "error", err)
		capture(c, err)
		return agents.Fallback(reportText, err)
	}
	return out
}

// lookup searches for condition. The first value is what the API returns; the second is set only on success.
func (h *Handler) lookup(ctx context.Context, c *gin.Context, condition string) (any, *search.Response) {
	condition = strings.TrimSpace(condition)
	if utf8.RuneCountInString(condition) <= 2 {
		return gin.H{"message": noConditionMessage, "query": "", "results": []search.Result{}}, nil
	}
	if h.deps.Search == nil {
		return gin.H{"error": searchDisabled, "query": condition}, nil
	}

	resp, err := h.deps.Search.Search(ctx, condition)
	if err != nil {
		logger.Error("web search failed", "provider", h.deps.Search.Name(), "query", condition, "error", err)
		capture(c, err)
		return gin.H{"error": err.Error(), "query": condition}, nil
	}

	logger.Info("web search completed", "query", condition, "results", resp.TotalResults)
	return resp, resp
}

// saveAnalysis saves a and returns its id, or "" when archiving is off or failed.
func (h *Handler) saveAnalysis(ctx context.Context, a *archive.Analysis) string {
	if h.deps.Archive == nil {
		return ""
	}
	if err := h.deps.Archive.Save(ctx, a); err != nil {
		logger.Warn("failed to archive analysis", "error", err)
		return ""
	}
	return a.ID
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
