package recognize

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/upload"
)

// PDFText extracts the embedded text layer of a PDF candidate. Scanned
// PDFs without a text layer come back empty, which the orchestrator
// reports as a no-content outcome rather than an engine failure.
type PDFText struct {
	logger *slog.Logger
}

func NewPDFText(logger *slog.Logger) *PDFText {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFText{logger: logger}
}

func (p *PDFText) Recognize(ctx context.Context, c upload.Candidate, onProgress ProgressFunc) (result Result, err error) {
	start := time.Now()
	report(onProgress, "Opening PDF", 0)

	// The pdf package panics on some malformed inputs; keep that inside
	// the engine boundary and classify it like any other engine fault.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pdf reader panic", "file", c.Filename, "panic", r)
			result = Result{}
			err = common.NewAppError("ENGINE_FAILURE", "pdf parsing failed", fmt.Errorf("%w: %v", common.ErrEngine, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(c.Data), c.Size)
	if err != nil {
		return Result{}, common.NewAppError("ENGINE_FAILURE", "open pdf", fmt.Errorf("%w: %w", common.ErrEngine, err))
	}

	total := reader.NumPage()
	var b strings.Builder
	var warnings []string
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, common.NewAppError("ENGINE_FAILURE", "pdf read interrupted", fmt.Errorf("%w: %w", common.ErrEngine, err))
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		report(onProgress, fmt.Sprintf("Reading page %d of %d", i, total), float64(i)/float64(total))
	}

	report(onProgress, "Done", 1)
	return Result{
		Text:     Normalize(b.String()),
		Pages:    total,
		Method:   "pdf-text",
		Duration: time.Since(start),
		Warnings: warnings,
	}, nil
}
