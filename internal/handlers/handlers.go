// Package handlers implements the HTTP API on top of gin.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/radiolens/internal/archive"
	"github.com/Skufu/radiolens/internal/gemini"
	"github.com/Skufu/radiolens/internal/logging"
	"github.com/Skufu/radiolens/internal/pdfreport"
	"github.com/Skufu/radiolens/internal/report"
	"github.com/Skufu/radiolens/internal/search"
	"github.com/Skufu/radiolens/internal/store"
)

var logger = logging.Logger(logging.SourceWeb)

// Disclaimer accompanies every analysis response.
const Disclaimer = "This analysis is for informational purposes only. Always consult with a qualified healthcare professional before making medical decisions."

var (
	ErrAnalyzerRequired = errors.New("image analyzer is required")
	ErrReportsRequired  = errors.New("report renderer is required")
)

// ImageAnalyzer sends an image and prompt to the vision model.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Pipeline produces the comprehensive agent analysis.
type Pipeline interface {
	Run(ctx context.Context, reportText, condition string) (string, error)
}

// Reports saves and looks up rendered PDF reports.
type Reports interface {
	Save(in pdfreport.Input) (string, string, error)
	Path(name string) (string, error)
}

// Records writes clinic rows.
type Records interface {
	InsertDoctor(ctx context.Context, d store.Doctor) error
	InsertPatient(ctx context.Context, p store.Patient) error
	InsertDiagnosis(ctx context.Context, d store.Diagnosis) error
}

// Deps are the collaborators of the API. Search, Agents, Records and Archive are optional.
type Deps struct {
	Analyzer ImageAnalyzer
	Profiles report.Profiles
	Search   search.Searcher
	Agents   Pipeline
	Reports  Reports
	Records  Records
	Archive  archive.Archive
	Version  string
}

// Handler serves the API routes.
type Handler struct {
	deps    Deps
	parsers map[string]*report.Parser
	prompts map[string]string
}

// New prepares a parser and prompt for every configured profile.
func New(deps Deps) (*Handler, error) {
	if deps.Analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	if deps.Reports == nil {
		return nil, ErrReportsRequired
	}
	if deps.Profiles == nil {
		deps.Profiles = report.DefaultProfiles()
	}

	h := &Handler{
		deps:    deps,
		parsers: make(map[string]*report.Parser, len(deps.Profiles)),
		prompts: make(map[string]string, len(deps.Profiles)),
	}

	for _, name := range []string{report.ProfileImaging, report.ProfileComprehensive} {
		if _, err := deps.Profiles.Get(name); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}

	for name, profile := range deps.Profiles {
		h.parsers[name] = report.NewParser(profile)
		h.prompts[name] = gemini.ImagePrompt(profile)
	}

	return h, nil
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/analyze-image", h.AnalyzeImage)
	r.GET("/test-search/:condition", h.TestSearch)
	r.POST("/analyze-medical-image", h.AnalyzeMedicalImage)
	r.GET("/download-report/:filename", h.DownloadReport)
	r.POST("/get-treatment-diagnosis/", h.TreatmentDiagnosis)

	api := r.Group("/api/v1")
	api.POST("/reports/parse", h.ParseReport)
	api.POST("/doctors", h.CreateDoctor)
	api.POST("/patients", h.CreatePatient)
	api.POST("/diagnoses", h.CreateDiagnosis)
	api.GET("/analyses", h.ListAnalyses)
	api.GET("/analyses/:id", h.GetAnalysis)
}

// Health reports the service status and enabled features.
func (h *Handler) Health(c *gin.Context) {
	features := []string{"Image Analysis", "AI Agents", "PDF Reports"}
	if h.deps.Search != nil {
		features = append(features, "Web Search")
	}
	if h.deps.Records != nil {
		features = append(features, "Clinical Records")
	}
	if h.deps.Archive != nil {
		features = append(features, "Analysis History")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"message":  "Medical Image Analysis API is running",
		"version":  h.deps.Version,
		"features": features,
	})
}

var validImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

// readImage reads the multipart "file" field. On failure the response has already been written.
func readImage(c *gin.Context) (upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return upload{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return upload{}, false
	}

	mimeType := strings.ToLower(header.Header.Get("Content-Type"))
	if !validImageTypes[mimeType] {
		logger.Warn("rejected upload", "filename", header.Filename, "content_type", mimeType)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid file type. Only PNG, JPG, JPEG allowed. Received: %s", mimeType)})
		return upload{}, false
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return upload{}, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty image file"})
		return upload{}, false
	}

	logger.Info("image received", "filename", header.Filename, "content_type", mimeType, "bytes", len(data))
	return upload{filename: header.Filename, mimeType: mimeType, data: data}, true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

// capture reports err to Sentry when the request carries a hub.
func capture(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

// fail logs and reports err, then writes a JSON error with message.
func fail(c *gin.Context, status int, message string, err error) {
	logger.Error(message, "path", c.FullPath(), "error", err)
	capture(c, err)
	c.JSON(status, gin.H{"error": fmt.Sprintf("%s: %v", message, err)})
}
