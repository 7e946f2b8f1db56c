package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Shimizu-Technology/media-tools-api/internal/models"
)

// PDFExtractor extracts text from an uploaded PDF file using the pure-Go
// ledongthuc/pdf library — no CGO, no external binary, simple deployment.
type PDFExtractor struct{}

// NewPDFExtractor builds a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract satisfies extractor.Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, job *models.Job) (*Result, error) {
	if job.SourcePath == nil {
		return nil, fmt.Errorf("pdf job has no source path")
	}

	data, err := os.ReadFile(*job.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	pageCount := reader.NumPage()
	var allText strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		allText.WriteString(text)
		allText.WriteString("\n")
	}

	text := strings.TrimSpace(allText.String())
	if text == "" {
		return nil, fmt.Errorf("transcript_unavailable: PDF contains no extractable text")
	}

	return &Result{
		Text: text,
		Meta: map[string]interface{}{
			"page_count": pageCount,
			"title":      titleFromPath(*job.SourcePath),
		},
		Label: models.LabelPDF,
	}, nil
}

// ValidatePDF checks the magic bytes of an uploaded file before it's saved
// to disk.
func ValidatePDF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}
