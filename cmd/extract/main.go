package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/appealai/ticket-intake/constants"
	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/fields"
	"github.com/appealai/ticket-intake/internal/pipeline"
	"github.com/appealai/ticket-intake/internal/recognize"
	"github.com/appealai/ticket-intake/internal/upload"
)

// extract runs a single document through the pipeline and prints the
// structured fields as JSON on stdout. Logs go to stderr.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: extract <document-file>")
		os.Exit(2)
	}

	cfg := common.LoadConfig()

	c, err := upload.FromFile(os.Args[1])
	if err != nil {
		logger.Error("read document", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	engines := pipeline.Engines{
		Image: recognize.NewTesseract(cfg.OCR, logger),
		PDF:   recognize.NewPDFText(logger),
	}
	orch := pipeline.New(cfg.Upload, engines, pipeline.Callbacks{}, logger)
	orch.Watch(func(s pipeline.Snapshot) {
		if s.Phase == constants.PhaseRecognizing && s.Progress.Phase != "" {
			fmt.Fprintf(os.Stderr, "%s (%.0f%%)\n", s.Progress.Phase, s.Progress.Fraction*100)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ProcessTimeout)
	defer cancel()

	snap, err := orch.Run(ctx, c)
	if err == nil {
		err = snap.Err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, common.UserMessage(err))
		logger.Error("pipeline failed", "file", c.Filename, "error", err)
		os.Exit(1)
	}
	for _, w := range snap.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if snap.NoContent {
		fmt.Fprintln(os.Stderr, common.NoContentMessage)
		os.Exit(0)
	}

	out := struct {
		File     string        `json:"file"`
		Chars    int           `json:"chars"`
		Duration string        `json:"duration"`
		Fields   fields.Fields `json:"fields"`
	}{
		File:     c.Filename,
		Chars:    len(snap.Text),
		Duration: snap.SettledAt.Sub(snap.StartedAt).Round(time.Millisecond).String(),
		Fields:   snap.Fields,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
