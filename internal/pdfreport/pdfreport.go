// Package pdfreport renders the downloadable A4 analysis report.
package pdfreport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/Skufu/radiolens/internal/logging"
	"github.com/Skufu/radiolens/internal/report"
)

var logger = logging.Logger(logging.SourceApp)

var (
	ErrInvalidName = errors.New("invalid report filename")
	ErrNotFound    = errors.New("report not found")
)

const (
	// thumbnails fit in a thumbMaxPx square and are laid out at thumbMMPerPx.
	thumbMaxPx   = 400
	thumbMMPerPx = 101.6 / thumbMaxPx

	filePrefix = "medical_report_"
	fileExt    = ".pdf"

	Disclaimer = "This analysis is for informational purposes only. " +
		"Always consult with a qualified healthcare professional before making medical decisions. " +
		"This AI-generated report should not replace professional medical advice, diagnosis, or treatment."
)

// Input is everything that goes on the report.
type Input struct {
	Filename      string
	Image         []byte
	Analysis      report.Report
	Comprehensive string
	GeneratedAt   time.Time
}

// Renderer writes reports into a directory.
type Renderer struct {
	dir string
	now func() time.Time
}

// New creates the reports directory when needed.
func New(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &Renderer{dir: dir, now: time.Now}, nil
}

// Dir is where reports are written.
func (r *Renderer) Dir() string { return r.dir }

// Save renders in and writes it to a new file, returning its base name and full path.
func (r *Renderer) Save(in Input) (string, string, error) {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = r.now()
	}

	data, err := Render(in)
	if err != nil {
		return "", "", err
	}

	name := fmt.Sprintf("%s%s_%s%s", filePrefix, in.GeneratedAt.Format("20060102_150405"), uuid.NewString()[:8], fileExt)
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}

	logger.Info("pdf report created", "path", path, "bytes", len(data))
	return name, path, nil
}

// Path resolves a previously saved report. Only bare .pdf names inside the reports directory are accepted.
func (r *Renderer) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), fileExt) {
		return "", ErrInvalidName
	}

	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// Render builds the PDF document in memory.
func Render(in Input) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Medical Image Analysis Report", true)
	pdf.SetCreator("radiolens", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(0, 14, "Medical Image Analysis Report", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	labelled(pdf, tr, "Report Generated: ", in.GeneratedAt.Format("2006-01-02 15:04:05"))
	labelled(pdf, tr, "Original Filename: ", in.Filename)
	pdf.Ln(8)

	addImage(pdf, in.Image)

	heading(pdf, "Initial AI Analysis")
	if in.Analysis.DiagnosedCondition != "" {
		labelled(pdf, tr, "Detected Condition: ", in.Analysis.DiagnosedCondition)
		pdf.Ln(4)
	}
	subsection(pdf, tr, "Detailed Analysis:", in.Analysis.Section("detailed_analysis"))
	subsection(pdf, tr, "Analysis Report:", in.Analysis.Section(report.KeyAnalysisReport))
	subsection(pdf, tr, "Initial Recommendations:", in.Analysis.Section("recommendations"))

	pdf.AddPage()
	heading(pdf, "Comprehensive Medical Analysis")
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 5, "Generated by specialized medical AI agents with web research", "", "L", false)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, para := range strings.Split(in.Comprehensive, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		pdf.MultiCell(0, 5, tr(para), "", "L", false)
		pdf.Ln(3)
	}

	pdf.Ln(12)
	pdf.SetDrawColor(255, 0, 0)
	pdf.SetTextColor(255, 0, 0)
	pdf.SetLineWidth(0.4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.MultiCell(0, 6, "IMPORTANT DISCLAIMER: "+Disclaimer, "1", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetTextColor(0, 0, 0)
}

func labelled(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Write(6, label)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Write(6, tr(value))
	pdf.Ln(6)
}

func subsection(pdf *fpdf.Fpdf, tr func(string) string, title, body string) {
	if body == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(body), "", "L", false)
	pdf.Ln(4)
}

func addImage(pdf *fpdf.Fpdf, data []byte) {
	thumb, err := Thumbnail(data)
	if err != nil {
		logger.Error("failed to add image to pdf", "error", err)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "Image could not be displayed", "", 1, "L", false, 0, "")
		pdf.Ln(8)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		logger.Error("failed to encode thumbnail", "error", err)
		return
	}

	heading(pdf, "Medical Image")
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("scan", opts, &buf)
	b := thumb.Bounds()
	w, h := float64(b.Dx())*thumbMMPerPx, float64(b.Dy())*thumbMMPerPx
	pdf.ImageOptions("scan", pdf.GetX(), pdf.GetY(), w, h, true, opts, 0, "")
	pdf.Ln(8)
}

// Thumbnail decodes data and scales it down to fit a 400x400 square, keeping the aspect ratio.
// Images already inside the square are returned unscaled.
func Thumbnail(data []byte) (image.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= thumbMaxPx && h <= thumbMaxPx {
		return src, nil
	}

	if w >= h {
		h = max(1, h*thumbMaxPx/w)
		w = thumbMaxPx
	} else {
		w = max(1, w*thumbMaxPx/h)
		h = thumbMaxPx
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst, nil
}
