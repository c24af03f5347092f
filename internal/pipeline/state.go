package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/appealai/ticket-intake/constants"
	"github.com/appealai/ticket-intake/internal/fields"
	"github.com/appealai/ticket-intake/internal/recognize"
	"github.com/appealai/ticket-intake/internal/upload"
)

// Snapshot is the externally visible pipeline state at a point in time.
// Owned exclusively by the orchestrator; consumers receive copies.
type Snapshot struct {
	RunID    uuid.UUID
	Phase    constants.RunPhase
	Filename string

	// Progress is the latest known recognition progress; only meaningful
	// while recognizing.
	Progress recognize.Progress

	// Terminal payloads.
	Text      string
	Fields    fields.Fields
	NoContent bool
	Warnings  []string
	Err       error

	StartedAt time.Time
	SettledAt time.Time
}

// Settled reports whether the run reached a terminal phase.
func (s Snapshot) Settled() bool {
	return s.Phase.Terminal()
}

// Callbacks are the two consumer hooks fired on completion: one as soon
// as text is available, one once the whole run has settled. Both fire
// exactly once per completed run, in that order.
type Callbacks struct {
	OnTextExtracted func(text string, c upload.Candidate)
	OnComplete      func(c upload.Candidate, text string)
}

// Engines selects the recognition path per candidate: raster images go
// through OCR, PDFs through text-layer extraction.
type Engines struct {
	Image recognize.Engine
	PDF   recognize.Engine
}
