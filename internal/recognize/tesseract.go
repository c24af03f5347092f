package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/upload"
)

// Tesseract runs the tesseract binary over a raster image candidate.
type Tesseract struct {
	cfg    common.OCR
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg common.OCR, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &Tesseract{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// Recognize spills the candidate bytes to a temp file, runs tesseract, and
// returns normalized text. The temp file is the only intermediate resource
// and is removed on every exit path.
func (t *Tesseract) Recognize(ctx context.Context, c upload.Candidate, onProgress ProgressFunc) (Result, error) {
	start := time.Now()
	report(onProgress, "Initializing OCR", 0)

	path, cleanup, err := spillTemp(c)
	if err != nil {
		return Result{}, common.NewAppError("ENGINE_FAILURE", "stage candidate for recognition", fmt.Errorf("%w: %w", common.ErrEngine, err))
	}
	defer cleanup()

	report(onProgress, "Recognizing text", 0.2)

	args := []string{path, "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		t.logger.Error("tesseract failed", "file", c.Filename, "error", err)
		return Result{}, common.NewAppError(
			"ENGINE_FAILURE",
			"text recognition failed",
			fmt.Errorf("%w: tesseract: %w: %s", common.ErrEngine, err, truncate(string(errb), 512)),
		)
	}

	report(onProgress, "Recognizing text", 0.9)
	text := Normalize(string(out))
	report(onProgress, "Done", 1)

	return Result{
		Text:     text,
		Pages:    1,
		Method:   "image-ocr",
		Language: t.cfg.Language,
		Duration: time.Since(start),
	}, nil
}

// spillTemp writes candidate bytes to a temp file tesseract can read.
// The returned cleanup is safe to call exactly once on any path.
func spillTemp(c upload.Candidate) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(c.Filename))
	if ext == "" {
		ext = ".img"
	}
	f, err := os.CreateTemp("", "intake-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp: %w", err)
	}
	path := f.Name()
	cleanup := func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			slog.Warn("failed to remove temp file", "path", path, "error", rmErr)
		}
	}
	if _, err := f.Write(c.Data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp: %w", err)
	}
	return path, cleanup, nil
}
