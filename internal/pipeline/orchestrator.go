package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appealai/ticket-intake/constants"
	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/fields"
	"github.com/appealai/ticket-intake/internal/recognize"
	"github.com/appealai/ticket-intake/internal/upload"
)

// PDFAdvisory is attached to runs routed through the text-layer path.
// Accepted by validation, but the user is warned rather than blocked.
const PDFAdvisory = "PDF uploads use the embedded text layer; scanned PDFs work better converted to an image first."

// Orchestrator sequences validation, recognition, and extraction for one
// candidate at a time and owns the run state machine. Starting a run
// while another is in flight is rejected; Reset returns to idle from any
// phase and discards late results from an abandoned run.
type Orchestrator struct {
	policy  common.Upload
	engines Engines
	cb      Callbacks
	logger  *slog.Logger

	mu       sync.Mutex
	snap     Snapshot
	gen      uint64 // bumped on every Start and Reset; stale completions compare against it
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	watchers []func(Snapshot)
}

func New(policy common.Upload, engines Engines, cb Callbacks, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		policy:  policy,
		engines: engines,
		cb:      cb,
		logger:  logger,
		snap:    Snapshot{Phase: constants.PhaseIdle},
	}
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Watch registers a push subscriber for state changes. Callbacks must be
// cheap: progress ticks can arrive many times per second.
func (o *Orchestrator) Watch(fn func(Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.watchers = append(o.watchers, fn)
}

func (o *Orchestrator) notify(s Snapshot) {
	o.mu.Lock()
	ws := make([]func(Snapshot), len(o.watchers))
	copy(ws, o.watchers)
	o.mu.Unlock()
	for _, fn := range ws {
		fn(s)
	}
}

// Start begins a pipeline run for the candidate. It validates
// synchronously and hands recognition to a goroutine; the final state is
// observable via Watch, Snapshot, or Wait. A second Start while a run is
// in flight returns a run-in-progress error and leaves the active run
// untouched.
func (o *Orchestrator) Start(ctx context.Context, c upload.Candidate) (uuid.UUID, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return uuid.Nil, common.NewAppError("RUN_IN_PROGRESS", "a pipeline run is already active", common.ErrRunInProgress)
	}
	o.gen++
	gen := o.gen
	runID := uuid.New()
	o.running = true
	o.done = make(chan struct{})
	o.snap = Snapshot{
		RunID:     runID,
		Filename:  c.Filename,
		Phase:     constants.PhaseValidating,
		StartedAt: time.Now().UTC(),
	}
	s := o.snap
	o.mu.Unlock()
	o.notify(s)

	o.logger.Info("pipeline.validating",
		"run_id", runID, "file", c.Filename, "media_type", c.MediaType, "size", c.Size)

	if err := upload.Validate(c, o.policy); err != nil {
		o.logger.Warn("pipeline.rejected", "run_id", runID, "file", c.Filename, "error", err)
		o.fail(gen, err)
		return runID, err
	}

	engine := o.engines.Image
	var warnings []string
	if constants.IsPDF(c.MediaType) {
		engine = o.engines.PDF
		warnings = append(warnings, PDFAdvisory)
	}
	if engine == nil {
		err := common.NewAppError("ENGINE_FAILURE", "no recognition engine for media type", common.ErrEngine)
		o.fail(gen, err)
		return runID, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if gen != o.gen {
		// reset raced validation; the run is already abandoned
		o.mu.Unlock()
		cancel()
		return runID, nil
	}
	o.cancel = cancel
	o.snap.Phase = constants.PhaseRecognizing
	o.snap.Progress = recognize.Progress{Phase: "Initializing", Fraction: 0}
	o.snap.Warnings = warnings
	s = o.snap
	o.mu.Unlock()
	o.notify(s)

	go func() {
		res, err := engine.Recognize(runCtx, c, func(p recognize.Progress) {
			o.onProgress(gen, p)
		})
		o.settle(gen, c, res, err)
	}()
	return runID, nil
}

// Run starts a pipeline run and blocks until it settles. The returned
// error covers start rejection or a cancelled wait; pipeline faults live
// in Snapshot.Err.
func (o *Orchestrator) Run(ctx context.Context, c upload.Candidate) (Snapshot, error) {
	if _, err := o.Start(ctx, c); err != nil {
		return o.Snapshot(), err
	}
	return o.Wait(ctx)
}

// Wait blocks until the current run settles or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return o.Snapshot(), nil
	}
	select {
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	case <-done:
		return o.Snapshot(), nil
	}
}

// Reset returns the orchestrator to idle from any phase. Safe to call
// mid-recognition: the in-flight engine call is cancelled, its temp
// resources are released by the engine's own cleanup, and a completion
// arriving afterwards is discarded without touching state or firing
// callbacks.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.gen++
	cancel := o.cancel
	o.cancel = nil
	var done chan struct{}
	if o.running {
		done = o.done
		o.running = false
	}
	o.done = nil
	o.snap = Snapshot{Phase: constants.PhaseIdle}
	s := o.snap
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		close(done)
	}
	o.notify(s)
}

// onProgress merges the latest progress tick into state. Dropped when the
// run is stale or no longer recognizing; a consumer missing ticks loses
// nothing but UX.
func (o *Orchestrator) onProgress(gen uint64, p recognize.Progress) {
	o.mu.Lock()
	if gen != o.gen || o.snap.Phase != constants.PhaseRecognizing {
		o.mu.Unlock()
		return
	}
	if p.Phase == "" {
		p.Phase = recognize.DefaultPhase
	}
	o.snap.Progress = p
	s := o.snap
	o.mu.Unlock()
	o.notify(s)
}

func (o *Orchestrator) fail(gen uint64, err error) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.snap.Phase = constants.PhaseFailed
	o.snap.Err = err
	o.snap.SettledAt = time.Now().UTC()
	s := o.snap
	done := o.done
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	o.notify(s)
	if done != nil {
		close(done)
	}
}

// settle applies a recognition outcome. A result belonging to an
// abandoned generation is discarded entirely.
func (o *Orchestrator) settle(gen uint64, c upload.Candidate, res recognize.Result, err error) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		o.logger.Info("pipeline.stale_result_discarded", "file", c.Filename)
		return
	}

	if err != nil {
		o.mu.Unlock()
		o.logger.Error("pipeline.recognition_failed", "run_id", o.Snapshot().RunID, "file", c.Filename, "error", err)
		o.fail(gen, err)
		return
	}

	o.snap.Warnings = append(o.snap.Warnings, res.Warnings...)
	text := res.Text

	if text == "" {
		// recognition succeeded but yielded nothing usable; extraction is
		// skipped and the run completes with a distinguished no-content
		// marker
		o.snap.Phase = constants.PhaseCompleted
		o.snap.NoContent = true
		o.snap.SettledAt = time.Now().UTC()
		s := o.snap
		done := o.done
		o.running = false
		o.cancel = nil
		o.mu.Unlock()

		o.logger.Info("pipeline.no_content", "run_id", s.RunID, "file", c.Filename)
		o.notify(s)
		o.fireCallbacks(c, "")
		if done != nil {
			close(done)
		}
		return
	}

	o.snap.Phase = constants.PhaseExtracting
	o.snap.Text = text
	s := o.snap
	o.mu.Unlock()
	o.notify(s)
	if o.cb.OnTextExtracted != nil {
		o.cb.OnTextExtracted(text, c)
	}

	fx := fields.Extract(text)

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.snap.Phase = constants.PhaseCompleted
	o.snap.Fields = fx
	o.snap.SettledAt = time.Now().UTC()
	s = o.snap
	done := o.done
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	o.logger.Info("pipeline.completed",
		"run_id", s.RunID, "file", c.Filename,
		"text_chars", len(text), "method", res.Method, "duration_ms", res.Duration.Milliseconds())
	o.notify(s)
	if o.cb.OnComplete != nil {
		o.cb.OnComplete(c, text)
	}
	if done != nil {
		close(done)
	}
}

// fireCallbacks delivers both completion hooks in order for runs that
// never reached extraction.
func (o *Orchestrator) fireCallbacks(c upload.Candidate, text string) {
	if o.cb.OnTextExtracted != nil {
		o.cb.OnTextExtracted(text, c)
	}
	if o.cb.OnComplete != nil {
		o.cb.OnComplete(c, text)
	}
}
