package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/radiolens/internal/archive"
	"github.com/Skufu/radiolens/internal/store"
)

// CreateDoctor inserts a doctor row.
func (h *Handler) CreateDoctor(c *gin.Context) {
	var d store.Doctor
	h.insert(c, &d, func(ctx context.Context) error { return h.deps.Records.InsertDoctor(ctx, d) })
}

// CreatePatient inserts a patient visit.
func (h *Handler) CreatePatient(c *gin.Context) {
	var p store.Patient
	h.insert(c, &p, func(ctx context.Context) error { return h.deps.Records.InsertPatient(ctx, p) })
}

// CreateDiagnosis inserts a diagnosis with its image.
func (h *Handler) CreateDiagnosis(c *gin.Context) {
	var d store.Diagnosis
	h.insert(c, &d, func(ctx context.Context) error { return h.deps.Records.InsertDiagnosis(ctx, d) })
}

// insert binds the JSON body into dst and runs fn.
func (h *Handler) insert(c *gin.Context, dst any, fn func(ctx context.Context) error) {
	if h.deps.Records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database is disabled"})
		return
	}

	if err := c.ShouldBindJSON(dst); err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := fn(c.Request.Context()); err != nil {
		if errors.Is(err, store.ErrInvalidRecord) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fail(c, http.StatusInternalServerError, "database error", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// ListAnalyses returns archived analyses, newest first.
func (h *Handler) ListAnalyses(c *gin.Context) {
	if h.deps.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis history is disabled"})
		return
	}

	limit := archive.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = archive.ClampLimit(n)
	}

	analyses, err := h.deps.Archive.List(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list analyses", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": analyses, "limit": limit})
}

// GetAnalysis returns one archived analysis.
func (h *Handler) GetAnalysis(c *gin.Context) {
	if h.deps.Archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis history is disabled"})
		return
	}

	a, err := h.deps.Archive.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, archive.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to load analysis", err)
		return
	}

	c.JSON(http.StatusOK, a)
}
