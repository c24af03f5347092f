package recognize

import (
	"context"
	"time"

	"github.com/appealai/ticket-intake/internal/upload"
)

// DefaultPhase is used when the underlying engine reports only numeric
// progress without a status label.
const DefaultPhase = "Processing…"

// Progress is a normalized progress signal. Not guaranteed monotonic;
// consumers treat it as "latest known".
type Progress struct {
	Phase    string
	Fraction float64 // 0..1
}

// ProgressFunc receives best-effort progress notifications. A nil func is
// allowed; missing callbacks never affect correctness.
type ProgressFunc func(Progress)

// Result is a successful recognition outcome. Text is trimmed of
// surrounding whitespace; interior newlines are preserved because field
// extraction depends on line structure.
type Result struct {
	Text     string
	Pages    int
	Method   string // "image-ocr" | "pdf-text"
	Language string
	Duration time.Duration
	Warnings []string
}

// Engine converts visual document content into raw text. Implementations
// never let an engine fault escape unclassified: every failure is wrapped
// into the engine-error kind before crossing this boundary.
type Engine interface {
	Recognize(ctx context.Context, c upload.Candidate, onProgress ProgressFunc) (Result, error)
}

// report delivers a progress tick, clamping the fraction and supplying the
// default phase label when the engine gave none.
func report(fn ProgressFunc, phase string, fraction float64) {
	if fn == nil {
		return
	}
	if phase == "" {
		phase = DefaultPhase
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	fn(Progress{Phase: phase, Fraction: fraction})
}
