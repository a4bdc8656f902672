package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/radiolens/internal/pdfreport"
	"github.com/Skufu/radiolens/internal/report"
)

// DownloadReport serves a previously generated PDF.
func (h *Handler) DownloadReport(c *gin.Context) {
	path, err := h.deps.Reports.Path(c.Param("filename"))
	switch {
	case errors.Is(err, pdfreport.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report name"})
		return
	case err != nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	c.FileAttachment(path, "medical_report_"+time.Now().Format("20060102_150405")+".pdf")
}

type treatmentRequest struct {
	DetailedAnalysis string `json:"detailed_analysis" binding:"required"`
}

// TreatmentDiagnosis runs the agent pipeline over free text.
func (h *Handler) TreatmentDiagnosis(c *gin.Context) {
	var req treatmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if h.deps.Agents == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errAgentsUnavailable.Error()})
		return
	}

	condition := h.parsers[report.ProfileComprehensive].Parse(req.DetailedAnalysis).DiagnosedCondition

	answer, err := h.deps.Agents.Run(c.Request.Context(), req.DetailedAnalysis, condition)
	if err != nil {
		logger.Error("treatment diagnosis failed", "error", err)
		capture(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// ParseReport parses raw model text with the profile named by ?profile= (imaging by default).
func (h *Handler) ParseReport(c *gin.Context) {
	name := c.DefaultQuery("profile", report.ProfileImaging)
	parser, ok := h.parsers[name]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown profile: " + name})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is empty"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":  name,
		"analysis": parser.Parse(string(body)),
	})
}
